// Package handlers defines HTTP-layer error codes used across all endpoints.
//
// Codes are lowercase snake_case and are returned in the "code" field of
// ErrorResponse. Clients branch on them rather than on messages.

package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeTooLarge         = "payload_too_large"
	ErrCodeInternal         = "internal_error"

	// Domain-specific:
	ErrCodeQueueFull = "queue_full"
)
