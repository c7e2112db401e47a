// Package services implements [PlaylistItemService], the remote ordered list service consumed by the reconciliation engine.
//
// # YouTube Implementation
//
// [YouTubeService] talks to the YouTube Data API v3 playlistItems resource:
//   - list : GET /playlistItems?part=id,contentDetails, 50 items per page, returning item handles and video ids
//   - insert : POST /playlistItems?part=snippet with an optional snippet.position
//   - delete : DELETE /playlistItems?id=<item handle>
//
// [NewYouTubeService] builds an [oauth2.Config] client from a stored refresh token. Access tokens are refreshed on demand.
//
// # Error Handling
//
// Non-2xx responses become [*APIError], classified from the HTTP status and the Google error reason:
//   - 429, 5xx, and 403 with rateLimitExceeded/userRateLimitExceeded : [shared.ErrTransientRemote]
//   - 400, 401, 404, and 403 quotaExceeded/forbidden : [shared.ErrPermanentRemote]
//
// Transport failures are transient. Token refresh failures are permanent. Context cancellation is returned unchanged.
//
// Each method makes exactly one HTTP call; retries and pacing belong to the caller.
package services
