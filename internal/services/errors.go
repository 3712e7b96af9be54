// Package services defines the business logic behind the bot's conversation:
// API key management and page downloads. This file centralizes service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// Translation into chat replies is performed by the bot controller.
package services

import (
	"errors"
	"fmt"
)

// Input and resource errors.
var (
	// ErrInvalidAPIKey is returned when a submitted key is too short. The
	// caller should re-prompt and keep the pending state.
	ErrInvalidAPIKey = errors.New("invalid api key format")

	// ErrInvalidAPIID is returned when a submitted key id is not an integer.
	// The caller should abort and reset the pending state.
	ErrInvalidAPIID = errors.New("invalid api id")

	// ErrAPIIDNotFound is returned when no key has the submitted id. The
	// caller should abort and reset the pending state.
	ErrAPIIDNotFound = errors.New("api id not found")

	// ErrNoAPIKeys is returned when a download is requested while the key
	// pool is empty. No network call is made.
	ErrNoAPIKeys = errors.New("no api key available")
)

// UpstreamError reports a non-200 reply from the scrape gateway.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("gateway returned status %d", e.StatusCode)
}

// TransportError reports that the scrape gateway could not be reached.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }
