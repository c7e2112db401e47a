package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// KindRecent ranks every video by views inside the date window, regardless of its kind.
const KindRecent = shared.KindRecent

// Video is a row of the videos table, maintained by the ingestion pipeline.
type Video struct {
	ID          models.VideoID
	Kind        string
	Title       string
	PublishedAt time.Time
	ViewCount   int64
}

// RankingRepository reads ranked video lists from SQLite. It implements the engine's desired-state provider.
type RankingRepository struct {
	db *sql.DB
}

// NewRankingRepository creates a new RankingRepository with the given database connection
func NewRankingRepository(db *sql.DB) *RankingRepository {
	return &RankingRepository{db: db}
}

// Desired returns the top limit videos for kind.
//
// Without a window, videos of kind are ranked by lifetime views.
// With a window, videos are ranked by the sum of their daily views inside it; [KindRecent] includes every kind.
func (r *RankingRepository) Desired(ctx context.Context, kind string, limit int, window *models.DateWindow) ([]models.VideoID, error) {
	if limit <= 0 {
		return []models.VideoID{}, nil
	}
	if window != nil {
		return r.TopInWindow(ctx, kind, limit, *window)
	}
	if kind == KindRecent {
		return nil, fmt.Errorf("%w: %q requires a date window", shared.ErrUnknownKind, kind)
	}
	return r.TopByKind(ctx, kind, limit)
}

// TopByKind ranks videos of kind by view_count, newest first on ties.
func (r *RankingRepository) TopByKind(ctx context.Context, kind string, limit int) ([]models.VideoID, error) {
	query := `
		SELECT video_id
		FROM videos
		WHERE kind = ?
		ORDER BY view_count DESC, published_at DESC, video_id ASC
		LIMIT ?
	`

	return r.queryIDs(ctx, query, kind, limit)
}

// TopInWindow ranks videos by views summed over the inclusive date window.
func (r *RankingRepository) TopInWindow(ctx context.Context, kind string, limit int, window models.DateWindow) ([]models.VideoID, error) {
	query := `
		SELECT v.video_id
		FROM videos v
		JOIN video_daily_views d ON d.video_id = v.video_id
		WHERE d.day BETWEEN ? AND ?
		  AND (? = '' OR v.kind = ?)
		GROUP BY v.video_id
		HAVING SUM(d.views) > 0
		ORDER BY SUM(d.views) DESC, v.published_at DESC, v.video_id ASC
		LIMIT ?
	`

	kindFilter := kind
	if kind == KindRecent {
		kindFilter = ""
	}
	return r.queryIDs(ctx, query, window.Start, window.End, kindFilter, kindFilter, limit)
}

// UpsertVideo inserts or updates a video row.
func (r *RankingRepository) UpsertVideo(ctx context.Context, v Video) error {
	if v.ID == "" || v.Kind == "" {
		return fmt.Errorf("%w: video id and kind are required", shared.ErrInvalidArgument)
	}

	query := `
		INSERT INTO videos (video_id, kind, title, published_at, view_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			published_at = excluded.published_at,
			view_count = excluded.view_count,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, string(v.ID), v.Kind, v.Title, v.PublishedAt, v.ViewCount, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert video: %w", err)
	}
	return nil
}

// RecordDailyViews stores the view count of a video for one YYYY-MM-DD day, replacing any previous value.
func (r *RankingRepository) RecordDailyViews(ctx context.Context, id models.VideoID, day string, views int64) error {
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return fmt.Errorf("%w: day %q: expected YYYY-MM-DD", shared.ErrInvalidArgument, day)
	}

	query := `
		INSERT INTO video_daily_views (video_id, day, views)
		VALUES (?, ?, ?)
		ON CONFLICT(video_id, day) DO UPDATE SET views = excluded.views
	`

	if _, err := r.db.ExecContext(ctx, query, string(id), day, views); err != nil {
		return fmt.Errorf("failed to record daily views: %w", err)
	}
	return nil
}

// CountByKind returns the number of videos per kind.
func (r *RankingRepository) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM videos GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan kind count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func (r *RankingRepository) queryIDs(ctx context.Context, query string, args ...any) ([]models.VideoID, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	defer rows.Close()

	ids := []models.VideoID{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan video id: %w", err)
		}
		ids = append(ids, models.VideoID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProviderUnavailable, err)
	}
	return ids, nil
}
