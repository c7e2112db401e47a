// package tasks implements the playlist reconciliation engine.
//
// The core abstraction is [Engine], which reconciles a list of configured targets against their desired rankings.
// Progress is emitted on an optional channel for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"golang.org/x/time/rate"
)

// Engine reconciles remote playlists with their desired state.
type Engine interface {
	// Reconcile processes targets in order and returns the aggregate result.
	// On a fatal error the partial result is returned together with the error.
	Reconcile(ctx context.Context, targets []models.PlaylistTarget, opts RunOptions) (*models.ExecutionResult, error)
}

// DesiredStateProvider supplies the ranked list a target should contain.
type DesiredStateProvider interface {
	// Desired returns up to limit video IDs for kind, best first. window is nil unless the target uses the run's date window.
	Desired(ctx context.Context, kind string, limit int, window *models.DateWindow) ([]models.VideoID, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Pacer blocks until the next mutating call may be sent. [*rate.Limiter] satisfies it.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer returns a limiter that allows one call per interval. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// countingService counts every remote call, including retried attempts, into metrics.
type countingService struct {
	services.PlaylistItemService
	metrics *models.CallMetrics
}

func (c *countingService) ListPage(ctx context.Context, playlistID, pageToken string) (*services.PlaylistItemPage, error) {
	c.metrics.List++
	return c.PlaylistItemService.ListPage(ctx, playlistID, pageToken)
}

func (c *countingService) Insert(ctx context.Context, playlistID string, videoID models.VideoID, position *int) (string, error) {
	c.metrics.Insert++
	return c.PlaylistItemService.Insert(ctx, playlistID, videoID, position)
}

func (c *countingService) Delete(ctx context.Context, playlistID, itemID string) error {
	c.metrics.Delete++
	return c.PlaylistItemService.Delete(ctx, playlistID, itemID)
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
