package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the configuration file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config == nil {
		if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				return err
			}
			r.writePlain("Created %s. Fill in the [youtube] credentials and playlist IDs.\n", configPath)
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	r.writePlain("Database: %s\n", config.Database.Path)
	for _, m := range applied {
		r.writePlain("  migration %04d applied %s\n", m.Version, m.AppliedAt.Format("2006-01-02 15:04:05"))
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)

	counts, err := repositories.NewRankingRepository(db).CountByKind(ctx)
	if err != nil {
		return err
	}
	if len(counts) == 0 {
		r.writePlain("No ranked videos yet; the ingestion pipeline fills the videos table.\n")
		return nil
	}

	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		r.writePlain("  %-10s %d videos\n", kind, counts[kind])
	}
	return nil
}

// ConfigInit writes the embedded example configuration to --config.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	return r.writePlain("Wrote example configuration to %s\n", path)
}

// ConfigValidate loads the configuration and prints the resolved targets.
func (r *Runner) ConfigValidate(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(config.Targets, true)
	}

	r.writePlain("Configuration OK (reference timezone %s)\n", config.ReferenceTimezone)
	for _, t := range config.Targets {
		r.writePlain("  %-10s %-20s kind=%s limit=%d mode=%s", t.Label(), t.PlaylistID, t.Kind, t.Limit, t.Mode)
		if t.Schedule != nil {
			r.writePlain(" window=%s-%s %s", t.Schedule.Start, t.Schedule.End, t.Schedule.Timezone)
		}
		if t.UseDateWindow {
			r.writePlain(" date-window")
		}
		r.writePlain("\n")
	}
	return nil
}

// setupCommand initializes the configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the configuration file if missing, initialize the database and run migrations",
		Flags:  []cli.Flag{configFlag(), verboseFlag()},
		Action: r.Setup,
	}
}
