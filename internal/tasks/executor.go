package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// DefaultMutationDelay is the minimum spacing between mutating calls.
const DefaultMutationDelay = 300 * time.Millisecond

// ChangeExecutor applies removals and insertions to a remote playlist.
//
// Every call goes through the retry policy and waits on the shared pacer first.
type ChangeExecutor struct {
	svc    services.PlaylistItemService
	reader *RemoteListReader
	retry  RetryPolicy
	pacer  Pacer
	logger *log.Logger
}

// NewChangeExecutor creates an executor. reader is used to rescan a playlist when a handle is missing.
func NewChangeExecutor(svc services.PlaylistItemService, reader *RemoteListReader, retry RetryPolicy, pacer Pacer, logger *log.Logger) *ChangeExecutor {
	if pacer == nil {
		pacer = NewPacer(0)
	}
	return &ChangeExecutor{svc: svc, reader: reader, retry: retry, pacer: pacer, logger: logger}
}

// Remove deletes every playlist item holding one of ids and returns the number of deleted items.
//
// Handles come from listing. A video with no known handle triggers one rescan of the playlist;
// if it is still missing it is skipped.
func (e *ChangeExecutor) Remove(ctx context.Context, playlistID string, ids []models.VideoID, listing *Listing) (int, error) {
	deleted := 0
	rescanned := false

	for _, id := range ids {
		handles := listing.Handles[id]
		if len(handles) == 0 && !rescanned && e.reader != nil {
			rescanned = true
			fresh, err := e.reader.List(ctx, playlistID)
			if err != nil {
				return deleted, fmt.Errorf("rescan for %s: %w", id, err)
			}
			listing.Handles = fresh.Handles
			handles = listing.Handles[id]
		}
		if len(handles) == 0 {
			e.warn("no playlist item for video, skipping", "playlist", playlistID, "video", id)
			continue
		}

		for _, itemID := range handles {
			if err := e.pacer.Wait(ctx); err != nil {
				return deleted, err
			}
			err := e.retry.Do(ctx, "delete", func(ctx context.Context) error {
				return e.svc.Delete(ctx, playlistID, itemID)
			})
			if err != nil {
				return deleted, fmt.Errorf("delete %s (item %s): %w", id, itemID, err)
			}
			deleted++
		}
		delete(listing.Handles, id)
	}

	return deleted, nil
}

// Insert adds ids to the playlist. When ordered is set each item is placed at its index in ids.
func (e *ChangeExecutor) Insert(ctx context.Context, playlistID string, ids []models.VideoID, ordered bool) (int, error) {
	inserted := 0

	for idx, id := range ids {
		var position *int
		if ordered {
			position = &idx
		}

		if err := e.pacer.Wait(ctx); err != nil {
			return inserted, err
		}
		err := e.retry.Do(ctx, "insert", func(ctx context.Context) error {
			_, err := e.svc.Insert(ctx, playlistID, id, position)
			return err
		})
		if err != nil {
			return inserted, fmt.Errorf("insert %s: %w", id, err)
		}
		inserted++
	}

	return inserted, nil
}

func (e *ChangeExecutor) warn(msg string, kv ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, kv...)
	}
}
