package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
)

// ScheduleGate decides whether a target may run at the current time.
type ScheduleGate struct {
	Now             Clock
	DefaultTimezone string
}

// Allow reports whether target is inside its schedule window. Targets without a schedule always pass.
func (g ScheduleGate) Allow(target models.PlaylistTarget) (bool, error) {
	if target.Schedule == nil {
		return true, nil
	}

	window := *target.Schedule
	if window.Timezone == "" {
		window.Timezone = g.DefaultTimezone
	}
	bounds, err := window.Bounds()
	if err != nil {
		return false, fmt.Errorf("target %q: %w", target.Label(), err)
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return InWindow(now(), bounds), nil
}

// InWindow reports whether t, converted to the window's location, falls in [Start, End).
// A window whose End is before its Start wraps past midnight.
func InWindow(t time.Time, b models.WindowBounds) bool {
	local := t.In(b.Location)
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())

	if b.Start <= b.End {
		return offset >= b.Start && offset < b.End
	}
	return offset >= b.Start || offset < b.End
}
