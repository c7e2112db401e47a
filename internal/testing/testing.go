// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
)

// MockPlaylistService is an in-memory [services.PlaylistItemService].
//
// Playlists must be seeded before they can be listed; unknown playlists and items fail permanently with [shared.ErrPlaylistNotFound].
type MockPlaylistService struct {
	mu        sync.Mutex
	pageSize  int
	nextID    int
	playlists map[string][]services.RemoteItem

	Lists   int
	Inserts int
	Deletes int
}

// NewMockPlaylistService creates an empty service returning pageSize items per page (50 when pageSize <= 0).
func NewMockPlaylistService(pageSize int) *MockPlaylistService {
	if pageSize <= 0 {
		pageSize = services.PageSize
	}
	return &MockPlaylistService{pageSize: pageSize, playlists: make(map[string][]services.RemoteItem)}
}

// Seed replaces the contents of a playlist.
func (m *MockPlaylistService) Seed(playlistID string, ids ...models.VideoID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]services.RemoteItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, services.RemoteItem{ItemID: m.newItemID(), VideoID: id})
	}
	m.playlists[playlistID] = items
}

// Contents returns the video ids of a playlist in order.
func (m *MockPlaylistService) Contents(playlistID string) []models.VideoID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]models.VideoID, 0, len(m.playlists[playlistID]))
	for _, item := range m.playlists[playlistID] {
		ids = append(ids, item.VideoID)
	}
	return ids
}

func (m *MockPlaylistService) ListPage(ctx context.Context, playlistID, pageToken string) (*services.PlaylistItemPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists++

	items, ok := m.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w: %w", playlistID, shared.ErrPermanentRemote, shared.ErrPlaylistNotFound)
	}

	start := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, fmt.Errorf("%w: bad page token %q", shared.ErrPermanentRemote, pageToken)
		}
		start = n
	}
	end := min(start+m.pageSize, len(items))

	page := &services.PlaylistItemPage{Items: slices.Clone(items[start:end])}
	if end < len(items) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (m *MockPlaylistService) Insert(ctx context.Context, playlistID string, videoID models.VideoID, position *int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inserts++

	items, ok := m.playlists[playlistID]
	if !ok {
		return "", fmt.Errorf("playlist %s: %w: %w", playlistID, shared.ErrPermanentRemote, shared.ErrPlaylistNotFound)
	}

	item := services.RemoteItem{ItemID: m.newItemID(), VideoID: videoID}
	if position != nil && *position < len(items) {
		items = slices.Insert(items, *position, item)
	} else {
		items = append(items, item)
	}
	m.playlists[playlistID] = items
	return item.ItemID, nil
}

func (m *MockPlaylistService) Delete(ctx context.Context, playlistID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++

	items := m.playlists[playlistID]
	i := slices.IndexFunc(items, func(it services.RemoteItem) bool { return it.ItemID == itemID })
	if i < 0 {
		return fmt.Errorf("item %s: %w: %w", itemID, shared.ErrPermanentRemote, shared.ErrPlaylistNotFound)
	}
	m.playlists[playlistID] = slices.Delete(items, i, i+1)
	return nil
}

func (m *MockPlaylistService) Name() string { return "mock" }

func (m *MockPlaylistService) newItemID() string {
	m.nextID++
	return "item-" + strconv.Itoa(m.nextID)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
