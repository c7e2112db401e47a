package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Remote call errors
	ErrTransientRemote  = fmt.Errorf("transient remote error")
	ErrPermanentRemote  = fmt.Errorf("permanent remote error")
	ErrRetryExhausted   = fmt.Errorf("retries exhausted")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")

	// Provider errors
	ErrProviderUnavailable = fmt.Errorf("desired-state provider unavailable")
	ErrUnknownKind         = fmt.Errorf("unknown target kind")

	// Input validation errors
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrRunNotFound     = fmt.Errorf("run not found")
)
