package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/html-downloader-bot/internal/repo"
	"github.com/tbourn/html-downloader-bot/internal/transport"
	"github.com/tbourn/html-downloader-bot/pkg/telegram"
)

type fakeQueue struct {
	got []telegram.Update
	err error
}

func (q *fakeQueue) Enqueue(u telegram.Update) error {
	if q.err != nil {
		return q.err
	}
	q.got = append(q.got, u)
	return nil
}

func (q *fakeQueue) Pending() int { return len(q.got) }

type fakeStats struct{ st repo.DashboardStats }

func (f fakeStats) DashboardStats(context.Context) repo.DashboardStats { return f.st }

type fakeSessions int

func (f fakeSessions) Len() int { return int(f) }

func newRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook", h.Webhook)
	r.GET("/stats", h.Stats)
	return r
}

func postUpdate(r http.Handler, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_QueuesUpdate(t *testing.T) {
	q := &fakeQueue{}
	r := newRouter(New(q, fakeStats{}, fakeSessions(0)))

	w := postUpdate(r, `{"update_id":42,"message":{"message_id":1,"chat":{"id":7,"type":"private"},"from":{"id":7,"first_name":"Ana"},"text":"/start"}}`)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
	if len(q.got) != 1 || q.got[0].UpdateID != 42 {
		t.Fatalf("queued = %+v", q.got)
	}
	if q.got[0].Message == nil || q.got[0].Message.Text != "/start" {
		t.Fatalf("message not decoded: %+v", q.got[0])
	}
}

func TestWebhook_RejectsMalformed(t *testing.T) {
	q := &fakeQueue{}
	r := newRouter(New(q, fakeStats{}, fakeSessions(0)))

	for _, body := range []string{`{not json`, `{}`, ``} {
		w := postUpdate(r, body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status=%d", body, w.Code)
		}
		var er ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != ErrCodeBadRequest {
			t.Fatalf("body %q: envelope %+v (%v)", body, er, err)
		}
	}
	if len(q.got) != 0 {
		t.Fatalf("malformed updates were queued: %+v", q.got)
	}
}

func TestWebhook_QueueFullIs503(t *testing.T) {
	q := &fakeQueue{err: transport.ErrQueueFull}
	r := newRouter(New(q, fakeStats{}, fakeSessions(0)))

	w := postUpdate(r, `{"update_id":1}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestStats_BodyAndETag(t *testing.T) {
	q := &fakeQueue{got: []telegram.Update{{UpdateID: 1}}}
	st := repo.DashboardStats{APIKeyCount: 2, TotalRequests: 41, TodayRequests: 3, UserCount: 7}
	r := newRouter(New(q, fakeStats{st}, fakeSessions(4)))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got StatsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	want := StatsResponse{APIKeyCount: 2, TotalRequests: 41, TodayRequests: 3, UserCount: 7, PendingSessions: 4, QueuedUpdates: 1}
	if got != want {
		t.Fatalf("stats = %+v; want %+v", got, want)
	}

	etag := w.Header().Get("ETag")
	if etag != `W/"stats:2:41:3:7"` {
		t.Fatalf("etag = %q", etag)
	}
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("If-None-Match", etag)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotModified || w.Body.Len() != 0 {
		t.Fatalf("conditional request: status=%d body=%q", w.Code, w.Body.String())
	}
}
