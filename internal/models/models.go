// package models defines the data model for playlist reconciliation
package models

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// VideoID is an opaque identifier of a remote member item.
type VideoID string

// OrderingMode selects the reconciliation strategy for a target.
type OrderingMode string

const (
	// UnorderedDiff reconciles membership only; order is ignored.
	UnorderedDiff OrderingMode = "unordered-diff"
	// OrderedRebuild fully replaces the playlist whenever the sequence differs.
	OrderedRebuild OrderingMode = "ordered-rebuild"
)

// Valid reports whether m is a known mode.
func (m OrderingMode) Valid() bool {
	return m == UnorderedDiff || m == OrderedRebuild
}

// PlanStatus is the per-target outcome of a reconciliation cycle.
type PlanStatus string

const (
	StatusSkippedTimeWindow PlanStatus = "skipped_time_window"
	StatusSkipIdentical     PlanStatus = "skip_identical"
	StatusPlanned           PlanStatus = "planned"
	StatusClearAndRebuild   PlanStatus = "clear_and_rebuild"
)

// ChangeCap limits how many additions and removals one cycle may apply.
// A nil field means unlimited.
type ChangeCap struct {
	MaxAdd    *int `json:"max_add,omitempty" toml:"max_add" yaml:"max_add"`
	MaxRemove *int `json:"max_remove,omitempty" toml:"max_remove" yaml:"max_remove"`
}

// ScheduleWindow is a daily window [Start, End) evaluated in Timezone.
//
// Start and End use the 24h "HH:MM" form. An End earlier than Start wraps past midnight.
type ScheduleWindow struct {
	Start    string `json:"start" toml:"start" yaml:"start"`
	End      string `json:"end" toml:"end" yaml:"end"`
	Timezone string `json:"timezone,omitempty" toml:"timezone" yaml:"timezone"`
}

// WindowBounds is a parsed ScheduleWindow. Start and End are offsets from local midnight.
type WindowBounds struct {
	Start    time.Duration
	End      time.Duration
	Location *time.Location
}

// Bounds parses the window. An empty Timezone resolves to UTC; callers fill the reference timezone first.
func (w ScheduleWindow) Bounds() (WindowBounds, error) {
	start, err := parseClock(w.Start)
	if err != nil {
		return WindowBounds{}, fmt.Errorf("schedule start: %w", err)
	}
	end, err := parseClock(w.End)
	if err != nil {
		return WindowBounds{}, fmt.Errorf("schedule end: %w", err)
	}
	if start == end {
		return WindowBounds{}, fmt.Errorf("schedule start and end must differ")
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return WindowBounds{}, fmt.Errorf("schedule timezone %q: %w", w.Timezone, err)
	}
	return WindowBounds{Start: start, End: end, Location: loc}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// PlaylistTarget is one remote playlist kept in sync with a desired ranking.
type PlaylistTarget struct {
	Name          string          `json:"name" toml:"name" yaml:"name"`
	PlaylistID    string          `json:"playlist_id" toml:"playlist_id" yaml:"playlist_id"`
	Kind          string          `json:"kind" toml:"kind" yaml:"kind"`
	Limit         int             `json:"limit" toml:"limit" yaml:"limit"`
	Mode          OrderingMode    `json:"mode" toml:"mode" yaml:"mode"`
	Cap           *ChangeCap      `json:"cap,omitempty" toml:"cap" yaml:"cap"`
	Schedule      *ScheduleWindow `json:"schedule,omitempty" toml:"schedule" yaml:"schedule"`
	UseDateWindow bool            `json:"use_date_window" toml:"use_date_window" yaml:"use_date_window"`
}

// Label returns the target name, falling back to the playlist ID.
func (t PlaylistTarget) Label() string {
	if t.Name != "" {
		return t.Name
	}
	return t.PlaylistID
}

// Validate checks the fields required before any remote call is made.
func (t PlaylistTarget) Validate() error {
	var problems []string
	if strings.TrimSpace(t.PlaylistID) == "" {
		problems = append(problems, "playlist_id is required")
	}
	if strings.TrimSpace(t.Kind) == "" {
		problems = append(problems, "kind is required")
	}
	if !t.Mode.Valid() {
		problems = append(problems, fmt.Sprintf("unknown mode %q", t.Mode))
	}
	if t.Limit < 0 {
		problems = append(problems, "limit must not be negative")
	}
	if t.Cap != nil {
		if t.Cap.MaxAdd != nil && *t.Cap.MaxAdd < 0 {
			problems = append(problems, "cap.max_add must not be negative")
		}
		if t.Cap.MaxRemove != nil && *t.Cap.MaxRemove < 0 {
			problems = append(problems, "cap.max_remove must not be negative")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("target %q: %s", t.Label(), strings.Join(problems, "; "))
	}
	return nil
}

// Snapshot is an ordered membership list without duplicates.
type Snapshot []VideoID

// NewSnapshot builds a Snapshot from ids, keeping the first occurrence of duplicates and dropping empty ids.
func NewSnapshot(ids []VideoID) Snapshot {
	seen := make(map[VideoID]struct{}, len(ids))
	out := make(Snapshot, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Set returns the snapshot members as a set.
func (s Snapshot) Set() map[VideoID]struct{} {
	set := make(map[VideoID]struct{}, len(s))
	for _, id := range s {
		set[id] = struct{}{}
	}
	return set
}

// Equal reports whether s and o hold the same values in the same positions.
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.Equal(s, o)
}

// ChangeSet holds the incremental changes for an unordered-diff target.
//
// Add follows the desired (rank) order and Remove follows the current (remote position) order.
type ChangeSet struct {
	Add    []VideoID `json:"add"`
	Remove []VideoID `json:"remove"`
}

// Empty reports whether there is nothing to change.
func (c ChangeSet) Empty() bool {
	return len(c.Add) == 0 && len(c.Remove) == 0
}

// ReconciliationPlan is the decision and outcome for one target in one cycle.
type ReconciliationPlan struct {
	Target         string       `json:"target"`
	PlaylistID     string       `json:"playlist_id"`
	Mode           OrderingMode `json:"mode"`
	Status         PlanStatus   `json:"status"`
	Before         Snapshot     `json:"before"`
	Desired        Snapshot     `json:"target_list"`
	Add            []VideoID    `json:"add,omitempty"`
	Remove         []VideoID    `json:"remove,omitempty"`
	Rebuild        bool         `json:"rebuild"`
	AddDeferred    int          `json:"add_deferred,omitempty"`
	RemoveDeferred int          `json:"remove_deferred,omitempty"`
	Inserted       int          `json:"inserted"`
	Deleted        int          `json:"deleted"`
	DryRun         bool         `json:"dry_run"`
}

// CallMetrics counts remote calls; every attempt counts.
type CallMetrics struct {
	List   int `json:"list"`
	Insert int `json:"insert"`
	Delete int `json:"delete"`
}

// Mutations returns the number of mutating calls.
func (m CallMetrics) Mutations() int {
	return m.Insert + m.Delete
}

// RunMetrics holds the aggregate counters of a run.
type RunMetrics struct {
	API         CallMetrics `json:"api"`
	DurationSec float64     `json:"duration_sec"`
}

// DateWindow is an inclusive YYYY-MM-DD range passed to the desired-state provider.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExecutionResult is the aggregate result of a reconciliation run.
//
// When a run aborts, Plans ends with the partial plan of the failing target and Error holds the cause.
type ExecutionResult struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	DryRun     bool                 `json:"dry_run"`
	DateWindow DateWindow           `json:"window"`
	Plans      []ReconciliationPlan `json:"plans"`
	Metrics    RunMetrics           `json:"metrics"`
	Error      string               `json:"error,omitempty"`
}

// Plan returns the plan for the named target, if present.
func (r *ExecutionResult) Plan(target string) (*ReconciliationPlan, bool) {
	for i := range r.Plans {
		if r.Plans[i].Target == target {
			return &r.Plans[i], true
		}
	}
	return nil, false
}

// Succeeded reports whether the run completed without an aborting error.
func (r *ExecutionResult) Succeeded() bool {
	return r.Error == ""
}
