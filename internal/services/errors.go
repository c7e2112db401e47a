package services

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/desertthunder/plsync/internal/shared"
)

// Google API error reasons that are worth retrying even though they arrive as 403.
var transientReasons = []string{"rateLimitExceeded", "userRateLimitExceeded", "backendError", "internalError"}

// APIError is a non-2xx response from the YouTube Data API.
//
// It unwraps to [shared.ErrTransientRemote] or [shared.ErrPermanentRemote] depending on status and reason,
// and additionally to [shared.ErrPlaylistNotFound] for playlistNotFound responses.
type APIError struct {
	Op         string
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("youtube %s: HTTP %d", e.Op, e.StatusCode)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Retryable reports whether the call may succeed if repeated.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	case e.StatusCode == http.StatusForbidden:
		return slices.Contains(transientReasons, e.Reason)
	default:
		return false
	}
}

func (e *APIError) Unwrap() []error {
	class := shared.ErrPermanentRemote
	if e.Retryable() {
		class = shared.ErrTransientRemote
	}
	if e.Reason == "playlistNotFound" || e.Reason == "playlistItemNotFound" {
		return []error{class, shared.ErrPlaylistNotFound}
	}
	return []error{class}
}

// googleError is the error envelope returned by Google APIs.
type googleError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}
