package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// HistoryList lists recorded runs, or the recorded plans of one target with --target.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	repo := repositories.NewRunRepository(db)
	limit := cmd.Int("limit")

	if target := cmd.String("target"); target != "" {
		records, err := repo.TargetHistory(ctx, target, limit)
		if err != nil {
			return err
		}
		if cmd.Bool("json") {
			return r.writeJSON(records, true)
		}
		return r.writePlain("%s", formatter.TargetHistoryToTable(target, records))
	}

	runs, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}
	return r.writePlain("%s", formatter.RunsToTable(runs))
}

// HistoryShow prints the stored result of one run.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	result, err := repositories.NewRunRepository(db).Get(ctx, id)
	if err != nil {
		return err
	}

	data, err := formatter.Render(result, format, formatter.Options{Color: format == formatter.FormatTable})
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// HistoryPrune deletes old runs, keeping the newest --keep.
func (r *Runner) HistoryPrune(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	removed, err := repositories.NewRunRepository(db).Prune(ctx, cmd.Int("keep"))
	if err != nil {
		return err
	}

	r.logger.Info("pruned run history", "removed", removed)
	return r.writePlain("Removed %d runs\n", removed)
}
