package domain

// SessionState marks which kind of free-text reply a user is expected to send
// next. The zero value means no reply is pending.
type SessionState string

const (
	StateNone           SessionState = ""
	StateAwaitingURL    SessionState = "awaiting-url"
	StateAwaitingAPIKey SessionState = "awaiting-api-key"
	StateAwaitingAPIID  SessionState = "awaiting-api-id"
)

// Valid reports whether s is one of the pending states.
func (s SessionState) Valid() bool {
	switch s {
	case StateAwaitingURL, StateAwaitingAPIKey, StateAwaitingAPIID:
		return true
	}
	return false
}
