// Package monitor implements the marketplace polling engine: the per-domain
// HTTP session, the catalog fetcher and the profile filter.
package monitor

import "errors"

// Error kinds surfaced by the session and fetch layers. Callers classify
// failures with errors.Is; the scheduler treats all of them as logged,
// non-fatal cycles.
var (
	// ErrRateLimited is returned when the marketplace throttles us, or when
	// the domain session is cooling down after sustained failures.
	ErrRateLimited = errors.New("rate limited")

	// ErrNetwork covers connection errors, timeouts and unexpected HTTP
	// statuses.
	ErrNetwork = errors.New("network failure")

	// ErrUnauthorized means the session cookie was rejected even after a
	// fresh handshake. A single rejection is repaired in place and never
	// surfaces as this error.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrParse is returned for a malformed or empty response body.
	ErrParse = errors.New("malformed response")
)
