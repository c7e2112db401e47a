// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file (.toml, .yaml or .yml)",
		Value:   "config.toml",
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	}
}

// runFlags are shared by reconcile and plan.
func runFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		verboseFlag(),
		&cli.IntFlag{
			Name:  "max-changes",
			Usage: "Cap additions and removals per target when the target has no cap of its own",
		},
		&cli.StringFlag{
			Name:  "window-start",
			Usage: "First day (YYYY-MM-DD) of the ranking window; requires --window-end",
		},
		&cli.StringFlag{
			Name:  "window-end",
			Usage: "Last day (YYYY-MM-DD) of the ranking window; requires --window-start",
		},
		&cli.StringSliceFlag{
			Name:  "only",
			Usage: "Reconcile only the named targets (repeatable)",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: table, markdown or json",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Also write the report to this file (.md, .json or text)",
		},
		&cli.BoolFlag{
			Name:  "no-save",
			Usage: "Do not record the run in the history database",
		},
	}
}

// reconcileCommand applies changes to the configured playlists.
func reconcileCommand(r *Runner) *cli.Command {
	flags := append(runFlags(), &cli.BoolFlag{
		Name:    "dry-run",
		Aliases: []string{"n"},
		Usage:   "Compute plans without mutating any playlist",
	})

	return &cli.Command{
		Name:   "reconcile",
		Usage:  "Reconcile configured playlists with their rankings",
		Flags:  flags,
		Action: r.Reconcile,
	}
}

// planCommand is a dry-run reconcile.
func planCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "plan",
		Usage:  "Show what reconcile would change, without mutating anything",
		Flags:  runFlags(),
		Action: r.Plan,
	}
}

// historyCommand inspects recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded reconciliation runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of runs to show",
						Value:   20,
					},
					&cli.StringFlag{
						Name:    "target",
						Aliases: []string{"t"},
						Usage:   "Show the recorded plans of one target instead",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:  "show",
				Usage: "Show the full result of a run by ID or unique ID prefix",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: table, markdown or json",
						Value:   "table",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "prune",
				Usage: "Delete all but the most recent runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "keep",
						Usage: "Number of runs to keep",
						Value: 100,
					},
				},
				Action: r.HistoryPrune,
			},
		},
	}
}

// configCommand manages the configuration file.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write an example configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:  "validate",
				Usage: "Load and validate the configuration, then list its targets",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ConfigValidate,
			},
		},
	}
}
