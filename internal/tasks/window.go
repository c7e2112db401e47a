package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

const dateLayout = "2006-01-02"

// ResolveDateWindow returns the provider date window.
//
// With both start and end given they are validated and used as is.
// With neither, the window is D-9 through D-2 relative to now's date in timezone.
func ResolveDateWindow(now time.Time, timezone, start, end string) (models.DateWindow, error) {
	if start != "" || end != "" {
		if start == "" || end == "" {
			return models.DateWindow{}, fmt.Errorf("%w: window start and end must be given together", shared.ErrInvalidArgument)
		}
		s, err := time.Parse(dateLayout, start)
		if err != nil {
			return models.DateWindow{}, fmt.Errorf("%w: window start %q: expected YYYY-MM-DD", shared.ErrInvalidArgument, start)
		}
		e, err := time.Parse(dateLayout, end)
		if err != nil {
			return models.DateWindow{}, fmt.Errorf("%w: window end %q: expected YYYY-MM-DD", shared.ErrInvalidArgument, end)
		}
		if e.Before(s) {
			return models.DateWindow{}, fmt.Errorf("%w: window end %s is before start %s", shared.ErrInvalidArgument, end, start)
		}
		return models.DateWindow{Start: start, End: end}, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return models.DateWindow{}, fmt.Errorf("%w: timezone %q: %v", shared.ErrInvalidConfig, timezone, err)
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return models.DateWindow{
		Start: today.AddDate(0, 0, -9).Format(dateLayout),
		End:   today.AddDate(0, 0, -2).Format(dateLayout),
	}, nil
}
