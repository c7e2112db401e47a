// Package repositories implements SQLite persistence for rankings and run history.
//
// Key Implementations:
//   - [RankingRepository] : ranked video lists read from the videos and video_daily_views tables. It is the
//     desired-state provider of the reconciliation engine.
//   - [RunRepository] : execution results of past runs, stored as JSON with one summary row per target
//
// Ranking rules:
//   - without a date window, videos of a kind rank by view_count, then by published_at (newest first)
//   - with a date window, videos rank by the sum of their daily views inside the window; [KindRecent] spans all kinds
//
// The ranking tables are filled by an external ingestion pipeline. [RankingRepository.UpsertVideo] and
// [RankingRepository.RecordDailyViews] exist for that pipeline and for tests.
package repositories
