package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/internal/domain"
)

// ---- test doubles ----

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// memDocs is an in-memory DocumentStore with switchable save failures.
type memDocs struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   map[string]int
	failErr error
}

func newMemDocs() *memDocs {
	return &memDocs{data: map[string][]byte{}, saves: map[string]int{}}
}

func (m *memDocs) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[name]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *memDocs) Save(_ context.Context, name string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.data[name] = append([]byte(nil), body...)
	m.saves[name]++
	return nil
}

func (m *memDocs) Close() error { return nil }

func newTestStore(t *testing.T, start time.Time) (*Store, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: start}
	s := Open(context.Background(), newMemDocs(), StoreOptions{Now: clk.Now, Location: time.UTC})
	return s, clk
}

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf) // plain JSON lines
	return &buf
}

// ---- open / defaults ----

func TestOpen_DefaultsWhenDocumentsMissing(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s, _ := newTestStore(t, start)

	if _, ok := s.Admin(); ok {
		t.Fatalf("fresh store must have no admin")
	}
	if len(s.APIKeys()) != 0 || len(s.Users()) != 0 || s.RequestLogLen() != 0 {
		t.Fatalf("fresh store must be empty")
	}
	u := s.Usage()
	if u.Total != 0 || u.Today != 0 || u.LastResetDate != "2025-06-01" {
		t.Fatalf("unexpected default usage: %+v", u)
	}
}

func TestOpen_CorruptDocumentFallsBackToDefault(t *testing.T) {
	buf := captureLogger(t)
	docs := newMemDocs()
	docs.data[domain.DocAPIKeys] = []byte("{not json")
	docs.data[domain.DocAdmin] = []byte(`{"admin_id": 77}`)

	s := Open(context.Background(), docs, StoreOptions{Location: time.UTC})
	if len(s.APIKeys()) != 0 {
		t.Fatalf("corrupt pool should load as empty")
	}
	if id, ok := s.Admin(); !ok || id != 77 {
		t.Fatalf("admin should load from its own document, got %d %v", id, ok)
	}
	if !strings.Contains(buf.String(), "document corrupt") || !strings.Contains(buf.String(), domain.DocAPIKeys) {
		t.Fatalf("expected corrupt-document warning, got %q", buf.String())
	}
}

func TestOpen_RepairsRequestLogNextID(t *testing.T) {
	docs := newMemDocs()
	docs.data[domain.DocRequestLog] = []byte(`{"requests":[{"id":9,"status":"success"},{"id":4,"status":"failed"}]}`)
	s := Open(context.Background(), docs, StoreOptions{Location: time.UTC})
	if id := s.AppendRequestLog(context.Background(), 1, "u", "https://x", domain.StatusSuccess, nil); id != 10 {
		t.Fatalf("next id = %d; want 10", id)
	}
}

func TestOpen_ReadsLegacyDocuments(t *testing.T) {
	docs := newMemDocs()
	docs.data[domain.DocAPIKeys] = []byte(`{"keys":[{"id":3,"key":"abcdefghijklmnop","added_date":"2024-01-02 03:04:05"}],"next_id":1}`)
	docs.data[domain.DocUsers] = []byte(`{"users":{"5":{"name":"Eve","join_date":"2024-01-02 03:04:05","api_requests_count":2,"country":"Unknown"}},"next_request_id":1}`)
	docs.data[domain.DocUsage] = []byte(`{"total_requests":10,"today_requests":3,"last_reset":"2024-01-02"}`)

	s := Open(context.Background(), docs, StoreOptions{Location: time.UTC})
	keys := s.APIKeys()
	if len(keys) != 1 || keys[0].ID != 3 || keys[0].AddedAt.Year() != 2024 {
		t.Fatalf("legacy keys not read: %+v", keys)
	}
	if rec, ok := s.User(5); !ok || rec.DisplayName != "Eve" || rec.RequestCount != 2 {
		t.Fatalf("legacy user not read: %+v %v", rec, ok)
	}
	if u := s.Usage(); u.Total != 10 || u.Today != 3 {
		t.Fatalf("legacy usage not read: %+v", u)
	}

	// the stale key counter is ignored and not written back
	if id := s.AddAPIKey(context.Background(), "qrstuvwxyz0123"); id != 4 {
		t.Fatalf("new key id = %d; want 4", id)
	}
	if strings.Contains(string(docs.data[domain.DocAPIKeys]), "next_id") {
		t.Fatalf("next_id written back: %s", docs.data[domain.DocAPIKeys])
	}
}

// ---- persistence ----

func TestStore_PersistsIndentedJSONAndReloads(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()
	s := Open(ctx, docs, StoreOptions{Location: time.UTC})

	s.ClaimAdmin(ctx, 42)
	s.AddAPIKey(ctx, "0123456789abc")
	s.RecordUserSeen(ctx, 42, "Ada <Admin>", "")

	raw := string(docs.data[domain.DocUsers])
	if !strings.Contains(raw, "\n    \"users\"") {
		t.Fatalf("expected 4-space indentation, got %q", raw)
	}
	if !strings.Contains(raw, "Ada <Admin>") {
		t.Fatalf("expected unescaped display name, got %q", raw)
	}

	re := Open(ctx, docs, StoreOptions{Location: time.UTC})
	if !re.IsAdmin(42) {
		t.Fatalf("admin not reloaded")
	}
	if !re.HasAPIKey(1) {
		t.Fatalf("api key not reloaded")
	}
	if rec, ok := re.User(42); !ok || rec.DisplayName != "Ada <Admin>" {
		t.Fatalf("user not reloaded: %+v", rec)
	}
}

func TestStore_SaveFailureIsLoggedAndSwallowed(t *testing.T) {
	buf := captureLogger(t)
	docs := newMemDocs()
	docs.failErr = errors.New("disk full")
	ctx := context.Background()
	s := Open(ctx, docs, StoreOptions{Location: time.UTC})

	id := s.AddAPIKey(ctx, "0123456789abc")
	if id != 1 || !s.HasAPIKey(1) {
		t.Fatalf("in-memory state must proceed despite save failure")
	}
	out := buf.String()
	if !strings.Contains(out, "disk full") || !strings.Contains(out, `"level":"error"`) {
		t.Fatalf("expected error log, got %q", out)
	}
	if strings.Contains(out, "0123456789abc") {
		t.Fatalf("api key leaked into logs")
	}
}

// ---- admin ----

func TestClaimAdmin_FirstWins(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()
	if !s.ClaimAdmin(ctx, 1) {
		t.Fatalf("first claim should succeed")
	}
	if s.ClaimAdmin(ctx, 2) {
		t.Fatalf("second claim must fail")
	}
	if !s.IsAdmin(1) || s.IsAdmin(2) {
		t.Fatalf("admin should remain user 1")
	}
}

// ---- API keys ----

func TestAddAPIKey_IDsMaxPlusOneAcrossDeletions(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	if id := s.AddAPIKey(ctx, "aaaaaaaaaaaa"); id != 1 {
		t.Fatalf("first id = %d; want 1", id)
	}
	if id := s.AddAPIKey(ctx, "bbbbbbbbbbbb"); id != 2 {
		t.Fatalf("second id = %d; want 2", id)
	}
	if !s.DeleteAPIKey(ctx, 1) {
		t.Fatalf("delete id 1 should report removal")
	}
	if id := s.AddAPIKey(ctx, "cccccccccccc"); id != 3 {
		t.Fatalf("third id = %d; want 3", id)
	}
	// Deleting the max id makes it reusable.
	s.DeleteAPIKey(ctx, 3)
	if id := s.AddAPIKey(ctx, "dddddddddddd"); id != 3 {
		t.Fatalf("id after deleting max = %d; want 3", id)
	}
	// Empty pool restarts at 1.
	s.DeleteAPIKey(ctx, 2)
	s.DeleteAPIKey(ctx, 3)
	if id := s.AddAPIKey(ctx, "eeeeeeeeeeee"); id != 1 {
		t.Fatalf("id on emptied pool = %d; want 1", id)
	}
}

func TestDeleteAPIKey_UnknownIsNoop(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()
	s.AddAPIKey(ctx, "aaaaaaaaaaaa")
	if s.DeleteAPIKey(ctx, 99) {
		t.Fatalf("unknown id must not report removal")
	}
	if len(s.APIKeys()) != 1 {
		t.Fatalf("pool changed on unknown delete")
	}
}

func TestRandomAPIKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, time.Now())
	if k, ok := s.RandomAPIKey(); ok || k != "" {
		t.Fatalf("empty pool must return none")
	}

	s.AddAPIKey(ctx, "aaaaaaaaaaaa")
	s.AddAPIKey(ctx, "bbbbbbbbbbbb")
	s.AddAPIKey(ctx, "cccccccccccc")
	present := map[string]bool{}
	for _, k := range s.APIKeys() {
		present[k.Key] = true
	}
	seen := map[string]bool{}
	for i := 0; i < 300; i++ {
		k, ok := s.RandomAPIKey()
		if !ok || !present[k] {
			t.Fatalf("RandomAPIKey returned %q, %v", k, ok)
		}
		seen[k] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected every key to be drawn eventually, saw %d", len(seen))
	}
}

func TestRandomAPIKey_UsesInjectedSource(t *testing.T) {
	ctx := context.Background()
	var gotN int
	s := Open(ctx, newMemDocs(), StoreOptions{Intn: func(n int) int { gotN = n; return n - 1 }})
	s.AddAPIKey(ctx, "first-key-000")
	s.AddAPIKey(ctx, "second-key-00")
	if k, _ := s.RandomAPIKey(); k != "second-key-00" || gotN != 2 {
		t.Fatalf("RandomAPIKey = %q (n=%d)", k, gotN)
	}
}

// ---- users ----

func TestRecordUserSeen_CreatesThenRenames(t *testing.T) {
	s, clk := newTestStore(t, time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	s.RecordUserSeen(ctx, 7, "Old Name", "")
	first, _ := s.User(7)
	if first.Country != domain.DefaultCountry || first.RequestCount != 0 {
		t.Fatalf("unexpected new record: %+v", first)
	}

	clk.Advance(time.Hour)
	s.IncrementUserRequests(ctx, 7)
	s.RecordUserSeen(ctx, 7, "New Name", "Narnia")
	rec, _ := s.User(7)
	if rec.DisplayName != "New Name" {
		t.Fatalf("display name not refreshed: %+v", rec)
	}
	if !rec.JoinedAt.Equal(first.JoinedAt.Time) || rec.RequestCount != 1 || rec.Country != domain.DefaultCountry {
		t.Fatalf("existing fields must be preserved: %+v", rec)
	}
}

func TestRecordUserSeen_UnchangedSkipsWrite(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()
	s := Open(ctx, docs, StoreOptions{})
	s.RecordUserSeen(ctx, 7, "Ada", "")
	s.RecordUserSeen(ctx, 7, "Ada", "")
	if docs.saves[domain.DocUsers] != 1 {
		t.Fatalf("users saved %d times; want 1", docs.saves[domain.DocUsers])
	}
	s.RecordUserSeen(ctx, 7, "Ada L", "")
	if docs.saves[domain.DocUsers] != 2 {
		t.Fatalf("rename must be written")
	}
}

func TestIncrementUserRequests_UnknownUserIgnored(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()
	s := Open(ctx, docs, StoreOptions{})
	s.IncrementUserRequests(ctx, 404)
	if _, ok := s.User(404); ok {
		t.Fatalf("unknown user must not be created")
	}
	if docs.saves[domain.DocUsers] != 0 {
		t.Fatalf("no write expected for unknown user")
	}
}

func TestUsers_SortedByJoinTime(t *testing.T) {
	s, clk := newTestStore(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	s.RecordUserSeen(ctx, 30, "C", "")
	clk.Advance(time.Minute)
	s.RecordUserSeen(ctx, 10, "A", "")
	clk.Advance(time.Minute)
	s.RecordUserSeen(ctx, 20, "B", "")

	got := s.Users()
	if len(got) != 3 || got[0].ID != "30" || got[1].ID != "10" || got[2].ID != "20" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

// ---- usage ----

func TestIncrementUsage_SameDayAddsN(t *testing.T) {
	s, _ := newTestStore(t, time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.IncrementUsage(ctx)
	}
	if u := s.Usage(); u.Total != 5 || u.Today != 5 {
		t.Fatalf("usage = %+v; want 5/5", u)
	}
}

func TestIncrementUsage_NewDayResetsTodayToOne(t *testing.T) {
	s, clk := newTestStore(t, time.Date(2025, 2, 3, 23, 59, 0, 0, time.UTC))
	ctx := context.Background()
	s.IncrementUsage(ctx)
	s.IncrementUsage(ctx)

	clk.Advance(2 * time.Minute)
	s.IncrementUsage(ctx)
	u := s.Usage()
	if u.Today != 1 || u.Total != 3 || u.LastResetDate != "2025-02-04" {
		t.Fatalf("after rollover = %+v", u)
	}
}

func TestMaybeRolloverDay_UsesConfiguredLocation(t *testing.T) {
	// 23:30 UTC is already the next day at UTC+2.
	loc := time.FixedZone("UTC+2", 2*3600)
	clk := &fakeClock{t: time.Date(2025, 2, 3, 21, 0, 0, 0, time.UTC)}
	ctx := context.Background()
	s := Open(ctx, newMemDocs(), StoreOptions{Now: clk.Now, Location: loc})
	s.IncrementUsage(ctx)
	if u := s.Usage(); u.LastResetDate != "2025-02-03" {
		t.Fatalf("unexpected day: %+v", u)
	}
	clk.Advance(150 * time.Minute)
	s.MaybeRolloverDay(ctx)
	if u := s.Usage(); u.Today != 0 || u.Total != 1 || u.LastResetDate != "2025-02-04" {
		t.Fatalf("rollover at local midnight failed: %+v", u)
	}
}

func TestMaybeRolloverDay_NoWriteWhenSameDay(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()
	s := Open(ctx, docs, StoreOptions{})
	s.MaybeRolloverDay(ctx)
	if docs.saves[domain.DocUsage] != 0 {
		t.Fatalf("no write expected on the same day")
	}
}

// ---- request log ----

func TestAppendRequestLog_NewestFirstWithCode(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()
	code := 200
	s.AppendRequestLog(ctx, 1, "A", "https://a", domain.StatusFailed, nil)
	id := s.AppendRequestLog(ctx, 1, "A", "https://b", domain.StatusSuccess, &code)

	got := s.RecentRequests(0)
	if len(got) != 2 || got[0].ID != id || got[0].URL != "https://b" {
		t.Fatalf("newest entry must be first: %+v", got)
	}
	if got[0].ResponseCode == nil || *got[0].ResponseCode != 200 {
		t.Fatalf("response code not stored")
	}
	if got[1].ResponseCode != nil {
		t.Fatalf("transport failures carry no code")
	}
	if n := len(s.RecentRequests(1)); n != 1 {
		t.Fatalf("RecentRequests(1) len = %d", n)
	}
}

func TestAppendRequestLog_CapAt1000(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()
	var ids []int
	for i := 0; i < domain.MaxRequestLogEntries+1; i++ {
		ids = append(ids, s.AppendRequestLog(ctx, 1, "A", "https://x", domain.StatusSuccess, nil))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("ids not strictly increasing at %d", i)
		}
	}
	all := s.RecentRequests(0)
	if len(all) != domain.MaxRequestLogEntries {
		t.Fatalf("len = %d", len(all))
	}
	if all[len(all)-1].ID != ids[1] {
		t.Fatalf("exactly the oldest entry should be dropped")
	}
}

func TestAppendRequestLog_ResponseCodeSerializedAsNull(t *testing.T) {
	docs := newMemDocs()
	ctx := context.Background()
	s := Open(ctx, docs, StoreOptions{})
	s.AppendRequestLog(ctx, 1, "A", "https://x", domain.StatusFailed, nil)

	var doc struct {
		Requests []map[string]any `json:"requests"`
		NextID   int              `json:"next_id"`
	}
	if err := json.Unmarshal(docs.data[domain.DocRequestLog], &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v, ok := doc.Requests[0]["response_code"]; !ok || v != nil {
		t.Fatalf("response_code should be present and null, got %v (present=%v)", v, ok)
	}
	if doc.NextID != 2 {
		t.Fatalf("next_id = %d; want 2", doc.NextID)
	}
}

func TestStore_ConcurrentMutations(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AddAPIKey(ctx, "concurrent-key")
			s.IncrementUsage(ctx)
			s.AppendRequestLog(ctx, int64(i), "u", "https://x", domain.StatusSuccess, nil)
		}(i)
	}
	wg.Wait()

	keys := s.APIKeys()
	seen := map[int]bool{}
	for _, k := range keys {
		if seen[k.ID] {
			t.Fatalf("duplicate key id %d", k.ID)
		}
		seen[k.ID] = true
	}
	if len(keys) != 20 || s.Usage().Total != 20 || s.RequestLogLen() != 20 {
		t.Fatalf("lost updates: keys=%d usage=%+v log=%d", len(keys), s.Usage(), s.RequestLogLen())
	}
}
