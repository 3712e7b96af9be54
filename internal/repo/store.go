package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/internal/domain"
)

// StoreOptions tunes a Store. Zero values select wall-clock time, the local
// timezone and math/rand.
type StoreOptions struct {
	Now      func() time.Time
	Location *time.Location
	Intn     func(n int) int
}

// Store owns the five typed documents in memory and writes each one through
// to a DocumentStore after every mutation. All methods are safe for
// concurrent use; mutations are serialized by a single mutex.
//
// A failed write is logged and otherwise ignored: the in-memory state stays
// authoritative for the life of the process.
type Store struct {
	mu   sync.Mutex
	docs DocumentStore
	now  func() time.Time
	loc  *time.Location
	intn func(int) int

	admin domain.AdminRecord
	keys  domain.APIKeyPool
	usage domain.UsageCounters
	users domain.UserDirectory
	log   domain.RequestLog
}

// UserEntry pairs a user id with its directory record.
type UserEntry struct {
	ID string
	domain.UserRecord
}

// Open loads every document from docs. A missing or unreadable document is
// replaced by its default value; Open itself never fails.
func Open(ctx context.Context, docs DocumentStore, opts StoreOptions) *Store {
	s := &Store{docs: docs, now: opts.Now, loc: opts.Location, intn: opts.Intn}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.intn == nil {
		s.intn = rand.IntN
	}

	s.admin = loadDocument(ctx, docs, domain.DocAdmin, domain.AdminRecord{})
	s.keys = loadDocument(ctx, docs, domain.DocAPIKeys, domain.APIKeyPool{})
	s.usage = loadDocument(ctx, docs, domain.DocUsage, domain.NewUsageCounters(s.clock()))
	s.users = loadDocument(ctx, docs, domain.DocUsers, domain.UserDirectory{})
	s.log = loadDocument(ctx, docs, domain.DocRequestLog, domain.NewRequestLog())
	s.repair()
	return s
}

// Close closes the underlying document store.
func (s *Store) Close() error { return s.docs.Close() }

func (s *Store) clock() time.Time { return s.now().In(s.loc) }

// loadDocument decodes the named document, falling back to def when it is
// missing or corrupt.
func loadDocument[T any](ctx context.Context, docs DocumentStore, name string, def T) T {
	b, err := docs.Load(ctx, name)
	if errors.Is(err, ErrDocumentNotFound) {
		log.Debug().Str("document", name).Msg("document not found; using default")
		return def
	}
	if err != nil {
		log.Warn().Err(err).Str("document", name).Msg("document unreadable; using default")
		return def
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		log.Warn().Err(err).Str("document", name).Msg("document corrupt; using default")
		return def
	}
	return v
}

// repair fills nil collections and restores the request log id counter.
func (s *Store) repair() {
	if s.keys.Keys == nil {
		s.keys.Keys = []domain.APIKey{}
	}
	if s.users.Users == nil {
		s.users.Users = map[string]domain.UserRecord{}
	}
	if s.log.Requests == nil {
		s.log.Requests = []domain.RequestLogEntry{}
	}
	for _, r := range s.log.Requests {
		if r.ID >= s.log.NextID {
			s.log.NextID = r.ID + 1
		}
	}
	if s.log.NextID < 1 {
		s.log.NextID = 1
	}
	if len(s.log.Requests) > domain.MaxRequestLogEntries {
		s.log.Requests = s.log.Requests[:domain.MaxRequestLogEntries]
	}
}

// persist writes one document. Callers hold s.mu.
func (s *Store) persist(ctx context.Context, name string, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Str("document", name).Msg("encode document")
		return
	}
	if err := s.docs.Save(ctx, name, buf.Bytes()); err != nil {
		log.Error().Err(err).Str("document", name).Msg("save document")
	}
}

// ---- admin ----

// Admin returns the admin user id, if one has been claimed.
func (s *Store) Admin() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.admin.AdminID == nil {
		return 0, false
	}
	return *s.admin.AdminID, true
}

// ClaimAdmin makes userID the admin if nobody holds the role yet. It reports
// whether the claim succeeded.
func (s *Store) ClaimAdmin(ctx context.Context, userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.admin.AdminID != nil {
		return false
	}
	id := userID
	s.admin.AdminID = &id
	s.persist(ctx, domain.DocAdmin, s.admin)
	return true
}

// IsAdmin reports whether userID is the admin.
func (s *Store) IsAdmin(userID int64) bool {
	id, ok := s.Admin()
	return ok && id == userID
}

// ---- API keys ----

// AddAPIKey appends key to the pool and returns its id.
func (s *Store) AddAPIKey(ctx context.Context, key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.keys.NextID()
	s.keys.Keys = append(s.keys.Keys, domain.APIKey{
		ID:      id,
		Key:     key,
		AddedAt: domain.NewTimestamp(s.clock()),
	})
	s.persist(ctx, domain.DocAPIKeys, s.keys)
	return id
}

// DeleteAPIKey removes the key with the given id. Deleting an unknown id is a
// no-op; the pool is still written back.
func (s *Store) DeleteAPIKey(ctx context.Context, id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed bool
	s.keys, removed = s.keys.Without(id)
	s.persist(ctx, domain.DocAPIKeys, s.keys)
	return removed
}

// HasAPIKey reports whether a key with the given id exists.
func (s *Store) HasAPIKey(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.Has(id)
}

// RandomAPIKey returns a key drawn uniformly from the pool, or false when the
// pool is empty.
func (s *Store) RandomAPIKey() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys.Keys) == 0 {
		return "", false
	}
	return s.keys.Keys[s.intn(len(s.keys.Keys))].Key, true
}

// APIKeys returns a copy of the pool in insertion order.
func (s *Store) APIKeys() []domain.APIKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.APIKey, len(s.keys.Keys))
	copy(out, s.keys.Keys)
	return out
}

// ---- users ----

// RecordUserSeen creates the user's record on first sight, or refreshes the
// display name of an existing record. Country defaults to "Unknown". Nothing
// is written when the record is unchanged.
func (s *Store) RecordUserSeen(ctx context.Context, userID int64, displayName, country string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.UserKey(userID)
	rec, ok := s.users.Users[key]
	if !ok {
		if country == "" {
			country = domain.DefaultCountry
		}
		rec = domain.UserRecord{
			DisplayName: displayName,
			JoinedAt:    domain.NewTimestamp(s.clock()),
			Country:     country,
		}
	} else {
		if rec.DisplayName == displayName {
			return
		}
		rec.DisplayName = displayName
	}
	s.users.Users[key] = rec
	s.persist(ctx, domain.DocUsers, s.users)
}

// IncrementUserRequests bumps the user's request count. Unknown users are
// ignored.
func (s *Store) IncrementUserRequests(ctx context.Context, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := domain.UserKey(userID)
	rec, ok := s.users.Users[key]
	if !ok {
		return
	}
	rec.RequestCount++
	s.users.Users[key] = rec
	s.persist(ctx, domain.DocUsers, s.users)
}

// User returns the record for userID.
func (s *Store) User(userID int64) (domain.UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users.Users[domain.UserKey(userID)]
	return rec, ok
}

// Users returns every user ordered by join time, then id.
func (s *Store) Users() []UserEntry {
	s.mu.Lock()
	out := make([]UserEntry, 0, len(s.users.Users))
	for id, rec := range s.users.Users {
		out = append(out, UserEntry{ID: id, UserRecord: rec})
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.JoinedAt.Equal(b.JoinedAt.Time) {
			return a.JoinedAt.Before(b.JoinedAt.Time)
		}
		if len(a.ID) != len(b.ID) {
			return len(a.ID) < len(b.ID)
		}
		return a.ID < b.ID
	})
	return out
}

// ---- usage counters ----

// MaybeRolloverDay zeroes today's counter when the calendar day changed
// since the last reset. It must run before any counter read or write.
func (s *Store) MaybeRolloverDay(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked(ctx)
}

func (s *Store) rolloverLocked(ctx context.Context) {
	today := domain.DayKey(s.clock())
	if s.usage.LastResetDate == today {
		return
	}
	s.usage.Today = 0
	s.usage.LastResetDate = today
	s.persist(ctx, domain.DocUsage, s.usage)
}

// IncrementUsage counts one successful download.
func (s *Store) IncrementUsage(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rolloverLocked(ctx)
	s.usage.Total++
	s.usage.Today++
	s.persist(ctx, domain.DocUsage, s.usage)
}

// Usage returns the counters as stored, without a rollover check.
func (s *Store) Usage() domain.UsageCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// ---- request log ----

// AppendRequestLog records a scrape attempt at the front of the log and
// returns its id. code is nil when the gateway was unreachable.
func (s *Store) AppendRequestLog(ctx context.Context, userID int64, userName, url string, status domain.RequestStatus, code *int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.log.Prepend(domain.RequestLogEntry{
		UserID:       userID,
		UserName:     userName,
		URL:          url,
		Status:       status,
		ResponseCode: code,
		Timestamp:    domain.NewTimestamp(s.clock()),
	})
	s.persist(ctx, domain.DocRequestLog, s.log)
	return id
}

// RecentRequests returns up to n newest log entries, newest first. n <= 0
// returns the whole log.
func (s *Store) RecentRequests(n int) []domain.RequestLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.log.Requests) {
		n = len(s.log.Requests)
	}
	out := make([]domain.RequestLogEntry, n)
	copy(out, s.log.Requests[:n])
	return out
}

// RequestLogLen returns the number of retained log entries.
func (s *Store) RequestLogLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log.Requests)
}
