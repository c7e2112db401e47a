package tasks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// fakePlaylists is an in-memory [services.PlaylistItemService].
type fakePlaylists struct {
	items    map[string][]services.RemoteItem
	pageSize int
	nextID   int
	errs     map[string][]error // op -> errors returned before the real behaviour
	calls    []string
}

func newFakePlaylists(pageSize int) *fakePlaylists {
	return &fakePlaylists{
		items:    make(map[string][]services.RemoteItem),
		pageSize: pageSize,
		errs:     make(map[string][]error),
	}
}

func (f *fakePlaylists) seed(playlistID string, ids ...models.VideoID) {
	for _, id := range ids {
		f.nextID++
		f.items[playlistID] = append(f.items[playlistID], services.RemoteItem{
			ItemID:  fmt.Sprintf("item-%d", f.nextID),
			VideoID: id,
		})
	}
}

func (f *fakePlaylists) ids(playlistID string) []models.VideoID {
	out := []models.VideoID{}
	for _, item := range f.items[playlistID] {
		out = append(out, item.VideoID)
	}
	return out
}

func (f *fakePlaylists) failNext(op string, errs ...error) {
	f.errs[op] = append(f.errs[op], errs...)
}

func (f *fakePlaylists) popErr(op string) error {
	queue := f.errs[op]
	if len(queue) == 0 {
		return nil
	}
	f.errs[op] = queue[1:]
	return queue[0]
}

func (f *fakePlaylists) countCalls(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (f *fakePlaylists) Name() string { return "fake" }

func (f *fakePlaylists) ListPage(ctx context.Context, playlistID, pageToken string) (*services.PlaylistItemPage, error) {
	f.calls = append(f.calls, "list:"+playlistID)
	if err := f.popErr("list"); err != nil {
		return nil, err
	}

	start := 0
	if pageToken != "" {
		var err error
		if start, err = strconv.Atoi(pageToken); err != nil {
			return nil, fmt.Errorf("bad page token %q", pageToken)
		}
	}

	items := f.items[playlistID]
	end := min(start+f.pageSize, len(items))
	page := &services.PlaylistItemPage{Items: append([]services.RemoteItem{}, items[start:end]...)}
	if end < len(items) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakePlaylists) Insert(ctx context.Context, playlistID string, videoID models.VideoID, position *int) (string, error) {
	pos := "end"
	if position != nil {
		pos = strconv.Itoa(*position)
	}
	f.calls = append(f.calls, fmt.Sprintf("insert:%s:%s@%s", playlistID, videoID, pos))
	if err := f.popErr("insert"); err != nil {
		return "", err
	}

	f.nextID++
	item := services.RemoteItem{ItemID: fmt.Sprintf("item-%d", f.nextID), VideoID: videoID}
	items := f.items[playlistID]
	if position == nil || *position >= len(items) {
		f.items[playlistID] = append(items, item)
	} else {
		idx := max(*position, 0)
		items = append(items[:idx], append([]services.RemoteItem{item}, items[idx:]...)...)
		f.items[playlistID] = items
	}
	return item.ItemID, nil
}

func (f *fakePlaylists) Delete(ctx context.Context, playlistID, itemID string) error {
	f.calls = append(f.calls, fmt.Sprintf("delete:%s:%s", playlistID, itemID))
	if err := f.popErr("delete"); err != nil {
		return err
	}

	items := f.items[playlistID]
	for i, item := range items {
		if item.ItemID == itemID {
			f.items[playlistID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &services.APIError{Op: "delete", StatusCode: 404, Reason: "playlistItemNotFound"}
}

type providerCall struct {
	kind   string
	limit  int
	window *models.DateWindow
}

// fakeProvider returns fixed rankings per kind.
type fakeProvider struct {
	rankings map[string][]models.VideoID
	err      error
	calls    []providerCall
}

func (p *fakeProvider) Desired(ctx context.Context, kind string, limit int, window *models.DateWindow) ([]models.VideoID, error) {
	p.calls = append(p.calls, providerCall{kind: kind, limit: limit, window: window})
	if p.err != nil {
		return nil, p.err
	}
	ids := p.rankings[kind]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

// countingPacer counts waits without blocking.
type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func ids(values ...string) []models.VideoID {
	out := make([]models.VideoID, len(values))
	for i, v := range values {
		out[i] = models.VideoID(v)
	}
	return out
}

func snap(values ...string) models.Snapshot {
	return models.Snapshot(ids(values...))
}

func intPtr(n int) *int { return &n }
