package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Reconcile reconciles every configured target and records the run.
func (r *Runner) Reconcile(ctx context.Context, cmd *cli.Command) error {
	return r.reconcile(ctx, cmd, cmd.Bool("dry-run"))
}

// Plan runs the reconciliation in dry-run mode.
func (r *Runner) Plan(ctx context.Context, cmd *cli.Command) error {
	return r.reconcile(ctx, cmd, true)
}

func (r *Runner) reconcile(ctx context.Context, cmd *cli.Command, dryRun bool) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	opts, err := r.runOptions(cmd, config, dryRun)
	if err != nil {
		return err
	}

	db, closeDB, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer closeDB()

	svc, err := r.remoteService(ctx, config)
	if err != nil {
		return err
	}

	engine, err := r.newEngine(svc, repositories.NewRankingRepository(db), config)
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if format == formatter.FormatTable {
				r.writePlain("%s\n", update.Message)
			} else {
				r.logger.Debug(update.Message, "phase", update.Phase, "target", update.Target)
			}
		}
	}()
	opts.Progress = progressCh

	result, runErr := engine.Reconcile(ctx, config.Targets, opts)
	close(progressCh)
	<-done

	// Rejected before any remote call: nothing to record.
	if result == nil || tasks.IsConfigError(runErr) || errors.Is(runErr, shared.ErrInvalidArgument) {
		return runErr
	}

	if !cmd.Bool("no-save") {
		if err := repositories.NewRunRepository(db).Save(context.WithoutCancel(ctx), result); err != nil {
			r.logger.Warn("failed to record run", "run", result.RunID, "error", err)
		}
	}

	if err := r.report(cmd, result, format); err != nil {
		return err
	}

	return runErr
}

// runOptions translates flags into [tasks.RunOptions].
func (r *Runner) runOptions(cmd *cli.Command, config *shared.Config, dryRun bool) (tasks.RunOptions, error) {
	opts := tasks.RunOptions{
		DryRun: dryRun,
		Only:   cmd.StringSlice("only"),
	}

	if cmd.IsSet("max-changes") {
		n := cmd.Int("max-changes")
		if n < 0 {
			return opts, fmt.Errorf("%w: --max-changes must not be negative", shared.ErrInvalidArgument)
		}
		opts.MaxChanges = &n
	}

	start, end := cmd.String("window-start"), cmd.String("window-end")
	if start != "" || end != "" {
		window, err := tasks.ResolveDateWindow(r.now()(), config.ReferenceTimezone, start, end)
		if err != nil {
			return opts, err
		}
		opts.DateWindow = window
	}

	return opts, nil
}

// report renders result to the output and, with --output, to a file.
func (r *Runner) report(cmd *cli.Command, result *models.ExecutionResult, format formatter.Format) error {
	data, err := formatter.Render(result, format, formatter.Options{Color: format == formatter.FormatTable})
	if err != nil {
		return err
	}
	if err := r.writeBytes(data); err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteReport(result, path)
		if err != nil {
			return err
		}
		r.logger.Info("report written", "path", written)
	}
	return nil
}
