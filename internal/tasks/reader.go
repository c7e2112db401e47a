package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// DefaultPageDelay is the pause between consecutive list page requests.
const DefaultPageDelay = 50 * time.Millisecond

// Listing is the current state of a remote playlist.
type Listing struct {
	// Sequence is every remote entry in position order, duplicates included.
	Sequence []models.VideoID
	// Snapshot is the ordered membership with duplicates removed.
	Snapshot models.Snapshot
	// Handles maps each video to every playlist item that holds it, in remote position order.
	Handles map[models.VideoID][]string
}

// HandleCount returns the number of handles known for ids.
func (l *Listing) HandleCount(ids []models.VideoID) int {
	n := 0
	for _, id := range ids {
		n += len(l.Handles[id])
	}
	return n
}

// RemoteListReader reads the full membership of a playlist, one page at a time.
type RemoteListReader struct {
	svc       services.PlaylistItemService
	retry     RetryPolicy
	pageDelay time.Duration
	sleep     Sleeper
	logger    *log.Logger
}

// NewRemoteListReader creates a reader. Every page request goes through retry.
func NewRemoteListReader(svc services.PlaylistItemService, retry RetryPolicy, pageDelay time.Duration, sleep Sleeper, logger *log.Logger) *RemoteListReader {
	if sleep == nil {
		sleep = SleepContext
	}
	return &RemoteListReader{svc: svc, retry: retry, pageDelay: pageDelay, sleep: sleep, logger: logger}
}

// List fetches every page of playlistID.
func (r *RemoteListReader) List(ctx context.Context, playlistID string) (*Listing, error) {
	listing := &Listing{Handles: make(map[models.VideoID][]string)}
	var ids []models.VideoID

	token := ""
	seen := make(map[string]struct{})
	for page := 0; ; page++ {
		if page > 0 && r.pageDelay > 0 {
			if err := r.sleep(ctx, r.pageDelay); err != nil {
				return nil, err
			}
		}

		var resp *services.PlaylistItemPage
		err := r.retry.Do(ctx, "list", func(ctx context.Context) error {
			var err error
			resp, err = r.svc.ListPage(ctx, playlistID, token)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list playlist %s: %w", playlistID, err)
		}

		for _, item := range resp.Items {
			ids = append(ids, item.VideoID)
			listing.Handles[item.VideoID] = append(listing.Handles[item.VideoID], item.ItemID)
		}

		if resp.NextPageToken == "" {
			break
		}
		if _, dup := seen[resp.NextPageToken]; dup {
			return nil, fmt.Errorf("failed to list playlist %s: page token %q repeated", playlistID, resp.NextPageToken)
		}
		seen[resp.NextPageToken] = struct{}{}
		token = resp.NextPageToken
	}

	listing.Sequence = ids
	listing.Snapshot = models.NewSnapshot(ids)
	if r.logger != nil && len(listing.Snapshot) != len(ids) {
		r.logger.Warn("playlist contains duplicate entries", "playlist", playlistID, "items", len(ids), "unique", len(listing.Snapshot))
	}
	return listing, nil
}
