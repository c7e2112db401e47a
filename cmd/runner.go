package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ServiceFactory builds the remote playlist service from configuration.
type ServiceFactory func(ctx context.Context, conf shared.YouTubeConfig) (services.PlaylistItemService, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil are built lazily from the configuration file named by the --config flag.
type Runner struct {
	config     *shared.Config
	db         *sql.DB
	service    services.PlaylistItemService
	newService ServiceFactory
	clock      tasks.Clock
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	DB         *sql.DB
	Service    services.PlaylistItemService
	NewService ServiceFactory
	Clock      tasks.Clock
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.NewService == nil {
		opts.NewService = func(ctx context.Context, conf shared.YouTubeConfig) (services.PlaylistItemService, error) {
			svc, err := services.NewYouTubeService(ctx, conf)
			if err != nil {
				return nil, err
			}
			return svc, nil
		}
	}

	return &Runner{
		config:     opts.Config,
		db:         opts.DB,
		service:    opts.Service,
		newService: opts.NewService,
		clock:      opts.Clock,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, reconcileCommand, planCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig returns the injected configuration or loads the file named by --config, then applies the log level.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	config := r.config
	if config == nil {
		path := cmd.String("config")
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		config = loaded
		r.config = config
	}

	if err := shared.SetLogLevel(r.logger, config.Log.Level); err != nil {
		return nil, err
	}
	if cmd.Bool("verbose") {
		r.logger.SetLevel(log.DebugLevel)
	}

	return config, nil
}

// openDatabase returns the injected database or opens the configured one and migrates it.
//
// The returned close function is a no-op for an injected database.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database)

	applied, err := shared.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if applied > 0 {
		r.logger.Info("applied database migrations", "count", applied, "path", config.Database.Path)
	}

	return db, func() { db.Close() }, nil
}

// remoteService returns the injected service or builds one from the [youtube] section.
func (r *Runner) remoteService(ctx context.Context, config *shared.Config) (services.PlaylistItemService, error) {
	if r.service != nil {
		return r.service, nil
	}

	svc, err := r.newService(ctx, config.YouTube)
	if err != nil {
		return nil, err
	}
	r.service = svc
	return svc, nil
}

// newEngine wires the reconciliation engine from configuration.
func (r *Runner) newEngine(svc services.PlaylistItemService, provider tasks.DesiredStateProvider, config *shared.Config) (*tasks.ReconcileEngine, error) {
	retry := tasks.RetryPolicy{
		MaxAttempts: config.Retry.MaxAttempts,
		BaseDelay:   config.Retry.BaseDelay.Duration,
		MaxDelay:    config.Retry.MaxDelay.Duration,
	}

	return tasks.NewReconcileEngine(tasks.ReconcileEngineOpts{
		Service:   svc,
		Provider:  provider,
		Logger:    r.logger,
		Clock:     r.clock,
		Pacer:     tasks.NewPacer(config.Pacing.Mutation.Duration),
		Retry:     &retry,
		PageDelay: config.Pacing.ListPage.Duration,
		Timezone:  config.ReferenceTimezone,
	})
}

func (r *Runner) now() func() time.Time {
	if r.clock != nil {
		return r.clock
	}
	return time.Now
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
