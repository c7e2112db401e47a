package tasks

import (
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
)

// ProgressUpdate represents a progress event during a reconciliation run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Target  string // Target name
	Step    int    // Current target number (1-based)
	Total   int    // Total targets in the run
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, e.g. the finished plan
}

// Operation phase enumeration
type Phase int

const (
	PhaseGate Phase = iota
	PhaseDesired
	PhaseRead
	PhaseDiff
	PhaseDelete
	PhaseInsert
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseGate:
		return "gate"
	case PhaseDesired:
		return "desired"
	case PhaseRead:
		return "read"
	case PhaseDiff:
		return "diff"
	case PhaseDelete:
		return "delete"
	case PhaseInsert:
		return "insert"
	case PhaseDone:
		return "done"
	default:
		return ""
	}
}

func skippedUpdate(step, total int, t models.PlaylistTarget) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseGate,
		Target:  t.Label(),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: outside schedule window, skipped", step, total, t.Label()),
	}
}

func desiredUpdate(step, total int, t models.PlaylistTarget) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDesired,
		Target:  t.Label(),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: fetching desired %s (top %d)...", step, total, t.Label(), t.Kind, t.Limit),
	}
}

func readUpdate(step, total int, t models.PlaylistTarget) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRead,
		Target:  t.Label(),
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: reading playlist %s...", step, total, t.Label(), t.PlaylistID),
	}
}

func diffUpdate(step, total int, plan *models.ReconciliationPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDiff,
		Target:  plan.Target,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s (add=%d remove=%d)", step, total, plan.Target, plan.Status, len(plan.Add), len(plan.Remove)),
	}
}

func deleteUpdate(step, total int, target string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDelete,
		Target:  target,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: removing %d items...", step, total, target, count),
	}
}

func insertUpdate(step, total int, target string, count int, ordered bool) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] %s: inserting %d items...", step, total, target, count)
	if ordered {
		msg = fmt.Sprintf("[%d/%d] %s: inserting %d items in order...", step, total, target, count)
	}
	return ProgressUpdate{
		Phase:   PhaseInsert,
		Target:  target,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

func doneUpdate(step, total int, plan *models.ReconciliationPlan) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDone,
		Target:  plan.Target,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (inserted=%d deleted=%d)", step, total, plan.Target, plan.Inserted, plan.Deleted),
		Data:    plan,
	}
}
