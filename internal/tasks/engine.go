package tasks

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
)

// ReconcileError reports the target and phase at which a run was aborted.
type ReconcileError struct {
	Target string
	Phase  Phase
	Err    error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("target %q: %s: %v", e.Target, e.Phase, e.Err)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// RunOptions are the per-invocation settings of [ReconcileEngine.Reconcile].
type RunOptions struct {
	DryRun bool
	// MaxChanges caps additions and removals for targets without an explicit cap in that direction.
	MaxChanges *int
	// DateWindow is passed to the provider for targets with UseDateWindow. A zero value resolves to the default window.
	DateWindow models.DateWindow
	// Only restricts the run to the named targets.
	Only     []string
	Progress chan<- ProgressUpdate
}

// ReconcileEngineOpts holds the dependencies of a [ReconcileEngine].
type ReconcileEngineOpts struct {
	Service  services.PlaylistItemService
	Provider DesiredStateProvider
	Logger   *log.Logger
	Clock    Clock
	Sleep    Sleeper
	Pacer    Pacer
	Retry    *RetryPolicy
	// PageDelay is the pause between list pages. Zero uses [DefaultPageDelay]; negative disables it.
	PageDelay time.Duration
	// Timezone is the reference timezone for schedule windows and the default date window.
	Timezone string
}

// ReconcileEngine implements [Engine]. Targets are processed strictly in order, one remote call at a time.
type ReconcileEngine struct {
	svc       services.PlaylistItemService
	provider  DesiredStateProvider
	logger    *log.Logger
	clock     Clock
	sleep     Sleeper
	pacer     Pacer
	retry     RetryPolicy
	pageDelay time.Duration
	timezone  string
}

// NewReconcileEngine creates an engine, filling unset options with production defaults.
func NewReconcileEngine(opts ReconcileEngineOpts) (*ReconcileEngine, error) {
	if opts.Service == nil {
		return nil, fmt.Errorf("%w: playlist item service is required", shared.ErrInvalidArgument)
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: desired-state provider is required", shared.ErrInvalidArgument)
	}

	e := &ReconcileEngine{
		svc:       opts.Service,
		provider:  opts.Provider,
		logger:    opts.Logger,
		clock:     opts.Clock,
		sleep:     opts.Sleep,
		pacer:     opts.Pacer,
		pageDelay: opts.PageDelay,
		timezone:  opts.Timezone,
	}

	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.sleep == nil {
		e.sleep = SleepContext
	}
	if e.pacer == nil {
		e.pacer = NewPacer(DefaultMutationDelay)
	}
	if e.pageDelay == 0 {
		e.pageDelay = DefaultPageDelay
	}
	if e.timezone == "" {
		e.timezone = shared.DefaultTimezone
	}

	if opts.Retry != nil {
		e.retry = *opts.Retry
	} else {
		e.retry = DefaultRetryPolicy()
	}
	e.retry.Sleep = e.sleep
	e.retry.Logger = e.logger

	return e, nil
}

// run holds the per-invocation collaborators, bound to the run's call counters.
type run struct {
	opts    RunOptions
	window  models.DateWindow
	reader  *RemoteListReader
	exec    *ChangeExecutor
	gate    ScheduleGate
	limiter ChangeLimiter
}

// Reconcile validates every target, then reconciles them in order.
//
// The first fatal error stops the run: the result holds the plans produced so far (including the
// failing target's partial plan) and the error is returned alongside it as a [*ReconcileError].
func (e *ReconcileEngine) Reconcile(ctx context.Context, targets []models.PlaylistTarget, opts RunOptions) (*models.ExecutionResult, error) {
	started := e.clock()
	result := &models.ExecutionResult{
		RunID:     shared.GenerateID(),
		StartedAt: started,
		DryRun:    opts.DryRun,
		Plans:     []models.ReconciliationPlan{},
	}

	fail := func(err error) (*models.ExecutionResult, error) {
		result.Error = err.Error()
		result.Metrics.DurationSec = roundSeconds(e.clock().Sub(started))
		e.logger.Error("reconcile failed", "run", result.RunID, "error", err)
		return result, err
	}

	selected, err := e.prepare(targets, opts)
	if err != nil {
		return fail(err)
	}

	window := opts.DateWindow
	if window == (models.DateWindow{}) {
		if window, err = ResolveDateWindow(started, e.timezone, "", ""); err != nil {
			return fail(err)
		}
	}
	result.DateWindow = window

	svc := &countingService{PlaylistItemService: e.svc, metrics: &result.Metrics.API}
	pageDelay := max(e.pageDelay, 0)
	reader := NewRemoteListReader(svc, e.retry, pageDelay, e.sleep, e.logger)
	r := &run{
		opts:    opts,
		window:  window,
		reader:  reader,
		exec:    NewChangeExecutor(svc, reader, e.retry, e.pacer, e.logger),
		gate:    ScheduleGate{Now: e.clock, DefaultTimezone: e.timezone},
		limiter: ChangeLimiter{MaxChanges: opts.MaxChanges},
	}

	e.logger.Info("reconcile started", "run", result.RunID, "targets", len(selected), "dry_run", opts.DryRun,
		"window", window.Start+"~"+window.End)

	for i, target := range selected {
		plan, err := e.reconcileTarget(ctx, r, i+1, len(selected), target)
		if plan != nil {
			result.Plans = append(result.Plans, *plan)
		}
		if err != nil {
			return fail(err)
		}
	}

	result.Metrics.DurationSec = roundSeconds(e.clock().Sub(started))
	e.logger.Info("reconcile finished", "run", result.RunID,
		"list", result.Metrics.API.List, "insert", result.Metrics.API.Insert, "delete", result.Metrics.API.Delete,
		"duration", result.Metrics.DurationSec)

	return result, nil
}

// prepare applies the Only filter and validates the selected targets before any remote call.
func (e *ReconcileEngine) prepare(targets []models.PlaylistTarget, opts RunOptions) ([]models.PlaylistTarget, error) {
	selected := targets
	if len(opts.Only) > 0 {
		selected = make([]models.PlaylistTarget, 0, len(opts.Only))
		for _, name := range opts.Only {
			idx := slices.IndexFunc(targets, func(t models.PlaylistTarget) bool { return t.Label() == name })
			if idx < 0 {
				return nil, fmt.Errorf("%w: unknown target %q", shared.ErrInvalidArgument, name)
			}
		}
		for _, t := range targets {
			if slices.Contains(opts.Only, t.Label()) {
				selected = append(selected, t)
			}
		}
	}

	if len(selected) == 0 {
		return nil, fmt.Errorf("%w: no targets to reconcile", shared.ErrInvalidConfig)
	}

	for _, t := range selected {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
		if t.Schedule != nil {
			window := *t.Schedule
			if window.Timezone == "" {
				window.Timezone = e.timezone
			}
			if _, err := window.Bounds(); err != nil {
				return nil, fmt.Errorf("%w: target %q: %v", shared.ErrInvalidConfig, t.Label(), err)
			}
		}
	}
	return selected, nil
}

func (e *ReconcileEngine) reconcileTarget(ctx context.Context, r *run, step, total int, target models.PlaylistTarget) (*models.ReconciliationPlan, error) {
	logger := shared.WithLogger(e.logger, "target", target.Label(), "playlist", target.PlaylistID)
	abort := func(phase Phase, err error) error {
		return &ReconcileError{Target: target.Label(), Phase: phase, Err: err}
	}

	plan := &models.ReconciliationPlan{
		Target:     target.Label(),
		PlaylistID: target.PlaylistID,
		Mode:       target.Mode,
		DryRun:     r.opts.DryRun,
	}

	allowed, err := r.gate.Allow(target)
	if err != nil {
		return nil, abort(PhaseGate, err)
	}
	if !allowed {
		plan.Status = models.StatusSkippedTimeWindow
		logger.Info("outside schedule window, skipped", "start", target.Schedule.Start, "end", target.Schedule.End)
		sendProgress(r.opts.Progress, skippedUpdate(step, total, target))
		return plan, nil
	}

	sendProgress(r.opts.Progress, desiredUpdate(step, total, target))
	var window *models.DateWindow
	if target.UseDateWindow {
		window = &r.window
	}
	ids, err := e.provider.Desired(ctx, target.Kind, target.Limit, window)
	if err != nil {
		return nil, abort(PhaseDesired, err)
	}
	plan.Desired = models.NewSnapshot(ids)

	sendProgress(r.opts.Progress, readUpdate(step, total, target))
	listing, err := r.reader.List(ctx, target.PlaylistID)
	if err != nil {
		return nil, abort(PhaseRead, err)
	}
	plan.Before = listing.Snapshot

	decision := Decide(target.Mode, listing.Sequence, plan.Desired)
	changes, addDeferred, removeDeferred := r.limiter.Apply(target, decision.Changes)
	plan.Status = decision.Status
	plan.Rebuild = decision.Rebuild
	plan.Add = changes.Add
	plan.Remove = changes.Remove
	plan.AddDeferred = addDeferred
	plan.RemoveDeferred = removeDeferred

	logger.Info("plan", "status", plan.Status, "before", len(plan.Before), "target", len(plan.Desired),
		"add", len(plan.Add), "remove", len(plan.Remove))
	if addDeferred > 0 || removeDeferred > 0 {
		logger.Warn("change cap reached, deferring to next run", "add_deferred", addDeferred, "remove_deferred", removeDeferred)
	}
	sendProgress(r.opts.Progress, diffUpdate(step, total, plan))

	if r.opts.DryRun {
		plan.Deleted = listing.HandleCount(plan.Remove)
		plan.Inserted = len(plan.Add)
		sendProgress(r.opts.Progress, doneUpdate(step, total, plan))
		return plan, nil
	}

	if plan.Status == models.StatusSkipIdentical {
		sendProgress(r.opts.Progress, doneUpdate(step, total, plan))
		return plan, nil
	}

	if len(plan.Remove) > 0 {
		sendProgress(r.opts.Progress, deleteUpdate(step, total, plan.Target, len(plan.Remove)))
	}
	plan.Deleted, err = r.exec.Remove(ctx, target.PlaylistID, plan.Remove, listing)
	if err != nil {
		return plan, abort(PhaseDelete, err)
	}

	if len(plan.Add) > 0 {
		sendProgress(r.opts.Progress, insertUpdate(step, total, plan.Target, len(plan.Add), plan.Rebuild))
	}
	plan.Inserted, err = r.exec.Insert(ctx, target.PlaylistID, plan.Add, plan.Rebuild)
	if err != nil {
		return plan, abort(PhaseInsert, err)
	}

	logger.Info("applied", "inserted", plan.Inserted, "deleted", plan.Deleted)
	sendProgress(r.opts.Progress, doneUpdate(step, total, plan))
	return plan, nil
}

// IsConfigError reports whether err was raised by target validation before any remote call.
func IsConfigError(err error) bool {
	return errors.Is(err, shared.ErrInvalidConfig)
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
