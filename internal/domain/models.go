// Package domain defines the typed records persisted by the bot: the admin
// identity, the API key pool, usage counters, the user directory and the
// request log. Each record has a defined default value that is used when its
// stored document is missing or unreadable.
package domain

import (
	"strconv"
	"time"
)

// MaxRequestLogEntries bounds the persisted request log.
const MaxRequestLogEntries = 1000

// DefaultCountry is recorded for users whose country is not known.
const DefaultCountry = "Unknown"

// AdminRecord holds the identity of the single bot administrator.
// A nil AdminID means no admin has been claimed yet.
type AdminRecord struct {
	AdminID *int64 `json:"admin_id"`
}

// APIKey is one Scrape Gateway credential in the pool.
type APIKey struct {
	ID      int       `json:"id"`
	Key     string    `json:"key"`
	AddedAt Timestamp `json:"added_date"`
}

// APIKeyPool is the ordered set of gateway credentials.
type APIKeyPool struct {
	Keys []APIKey `json:"keys"`
}

// NextID returns the id the next added key receives: one past the largest id
// currently present, or 1 for an empty pool.
func (p APIKeyPool) NextID() int {
	maxID := 0
	for _, k := range p.Keys {
		if k.ID > maxID {
			maxID = k.ID
		}
	}
	return maxID + 1
}

// Has reports whether a key with the given id exists.
func (p APIKeyPool) Has(id int) bool {
	for _, k := range p.Keys {
		if k.ID == id {
			return true
		}
	}
	return false
}

// Without returns the pool minus every key with the given id, and whether
// anything was removed.
func (p APIKeyPool) Without(id int) (APIKeyPool, bool) {
	out := make([]APIKey, 0, len(p.Keys))
	for _, k := range p.Keys {
		if k.ID != id {
			out = append(out, k)
		}
	}
	return APIKeyPool{Keys: out}, len(out) != len(p.Keys)
}

// UsageCounters track successful downloads. Today is reset lazily when
// LastResetDate differs from the current calendar day.
type UsageCounters struct {
	Total         int64  `json:"total_requests"`
	Today         int64  `json:"today_requests"`
	LastResetDate string `json:"last_reset"` // YYYY-MM-DD
}

// NewUsageCounters returns zeroed counters stamped with the given day.
func NewUsageCounters(now time.Time) UsageCounters {
	return UsageCounters{LastResetDate: DayKey(now)}
}

// DayKey formats t as the calendar-day key used by UsageCounters.
func DayKey(t time.Time) string { return t.Format(time.DateOnly) }

// UserRecord is the directory entry for one bot user.
type UserRecord struct {
	DisplayName  string    `json:"name"`
	JoinedAt     Timestamp `json:"join_date"`
	RequestCount int64     `json:"api_requests_count"`
	Country      string    `json:"country"`
}

// UserDirectory maps decimal user ids to their records.
type UserDirectory struct {
	Users map[string]UserRecord `json:"users"`
}

// UserKey formats a user id as a directory key.
func UserKey(id int64) string { return strconv.FormatInt(id, 10) }

// RequestStatus is the outcome of one scrape attempt.
type RequestStatus string

const (
	StatusSuccess RequestStatus = "success"
	StatusFailed  RequestStatus = "failed"
)

// RequestLogEntry records a single scrape attempt. ResponseCode is nil when
// the gateway could not be reached.
type RequestLogEntry struct {
	ID           int           `json:"id"`
	UserID       int64         `json:"user_id"`
	UserName     string        `json:"user_name"`
	URL          string        `json:"url"`
	Status       RequestStatus `json:"status"`
	ResponseCode *int          `json:"response_code"`
	Timestamp    Timestamp     `json:"date"`
}

// RequestLog is the newest-first history of scrape attempts. NextID keeps
// increasing even when old entries are trimmed.
type RequestLog struct {
	Requests []RequestLogEntry `json:"requests"`
	NextID   int               `json:"next_id"`
}

// NewRequestLog returns an empty log whose first entry gets id 1.
func NewRequestLog() RequestLog {
	return RequestLog{Requests: []RequestLogEntry{}, NextID: 1}
}

// Prepend assigns the next id to e, inserts it at the front and trims the
// log to MaxRequestLogEntries. It returns the assigned id.
func (l *RequestLog) Prepend(e RequestLogEntry) int {
	if l.NextID < 1 {
		l.NextID = 1
	}
	e.ID = l.NextID
	l.NextID++

	out := make([]RequestLogEntry, 0, min(len(l.Requests)+1, MaxRequestLogEntries))
	out = append(out, e)
	for _, r := range l.Requests {
		if len(out) == MaxRequestLogEntries {
			break
		}
		out = append(out, r)
	}
	l.Requests = out
	return e.ID
}
