package domain

import (
	"errors"
	"fmt"
)

// ErrUpstreamUnavailable marks transport-level failures reaching Stash:
// connection refused, DNS failure, timeout. Surfaced to Plex as a server
// error; Plex retries on its own schedule.
var ErrUpstreamUnavailable = errors.New("stash unavailable")

// ErrImageFetch marks an upstream image that could not be retrieved. The
// image endpoints surface it as a failed response, never a placeholder.
var ErrImageFetch = errors.New("image fetch failed")

// UpstreamError is returned when Stash is reachable but answers with a
// non-success status or a GraphQL error payload. Status and message are
// carried verbatim to aid operator diagnosis.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 && e.Message != "" {
		return fmt.Sprintf("stash error: status %d: %s", e.StatusCode, e.Message)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("stash error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("stash error: %s", e.Message)
}
