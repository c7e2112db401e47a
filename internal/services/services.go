// package services defines the remote playlist item service used by the reconciliation engine
package services

import (
	"context"

	"github.com/desertthunder/plsync/internal/models"
)

// PlaylistItemService is the remote ordered list service. Implementations make exactly one remote call per method invocation.
type PlaylistItemService interface {
	// ListPage fetches one page of playlist items. An empty pageToken requests the first page.
	ListPage(ctx context.Context, playlistID, pageToken string) (*PlaylistItemPage, error)

	// Insert appends videoID to the playlist, or places it at position when position is non-nil.
	// Returns the new item handle.
	Insert(ctx context.Context, playlistID string, videoID models.VideoID, position *int) (string, error)

	// Delete removes the playlist item identified by itemID.
	Delete(ctx context.Context, playlistID, itemID string) error

	// Name returns the name of the service
	Name() string
}

// RemoteItem is one playlist entry: the member video and its opaque item handle.
type RemoteItem struct {
	ItemID  string
	VideoID models.VideoID
}

// PlaylistItemPage is one page of a paginated list response.
type PlaylistItemPage struct {
	Items         []RemoteItem
	NextPageToken string
}
