package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/html-downloader-bot/internal/domain"
	"github.com/tbourn/html-downloader-bot/internal/scrape"
)

type stubFetcher struct {
	res   *scrape.Response
	err   error
	calls int
	key   string
	url   string
}

func (f *stubFetcher) Fetch(_ context.Context, apiKey, pageURL string) (*scrape.Response, error) {
	f.calls++
	f.key, f.url = apiKey, pageURL
	return f.res, f.err
}

var fixedNow = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

func TestDownload_NoKeysRejectsLocally(t *testing.T) {
	st := newTestStore(t)
	f := &stubFetcher{}
	svc := &DownloadService{Store: st, Fetcher: f, Now: fixedNow}

	_, err := svc.Download(context.Background(), Requester{UserID: 1, Name: "A"}, "example.com")
	if !errors.Is(err, ErrNoAPIKeys) {
		t.Fatalf("expected ErrNoAPIKeys, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("no network call expected")
	}
	if st.RequestLogLen() != 0 {
		t.Fatalf("nothing should be logged")
	}
}

func TestDownload_Success(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	st.AddAPIKey(ctx, "the-only-key-123")
	st.RecordUserSeen(ctx, 1, "Ada", "")
	f := &stubFetcher{res: &scrape.Response{StatusCode: 200, Body: []byte("<html><title>Hi</title></html>")}}
	svc := &DownloadService{Store: st, Fetcher: f, Now: fixedNow}

	d, err := svc.Download(ctx, Requester{UserID: 1, Name: "Ada"}, "example.com")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if f.key != "the-only-key-123" || f.url != "https://example.com" {
		t.Fatalf("fetch called with %q %q", f.key, f.url)
	}
	if d.Filename != "example-com-hasan-tool-20240506_070809.html" || d.Title != "Hi" || d.URL != "https://example.com" {
		t.Fatalf("unexpected download: %+v", d)
	}

	if u := st.Usage(); u.Total != 1 || u.Today != 1 {
		t.Fatalf("usage = %+v", u)
	}
	if rec, _ := st.User(1); rec.RequestCount != 1 {
		t.Fatalf("user request count = %d", rec.RequestCount)
	}
	logs := st.RecentRequests(0)
	if len(logs) != 1 || logs[0].Status != domain.StatusSuccess || logs[0].ResponseCode == nil || *logs[0].ResponseCode != 200 {
		t.Fatalf("unexpected log: %+v", logs)
	}
}

func TestDownload_UpstreamFailure(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	st.AddAPIKey(ctx, "the-only-key-123")
	f := &stubFetcher{res: &scrape.Response{StatusCode: 401, Body: []byte("bad key")}}
	svc := &DownloadService{Store: st, Fetcher: f, Now: fixedNow}

	_, err := svc.Download(ctx, Requester{UserID: 1, Name: "A"}, "https://example.com")
	var up *UpstreamError
	if !errors.As(err, &up) || up.StatusCode != 401 || up.Body != "bad key" {
		t.Fatalf("expected UpstreamError 401, got %v", err)
	}
	if u := st.Usage(); u.Total != 0 {
		t.Fatalf("failed downloads must not count: %+v", u)
	}
	logs := st.RecentRequests(0)
	if len(logs) != 1 || logs[0].Status != domain.StatusFailed || *logs[0].ResponseCode != 401 {
		t.Fatalf("unexpected log: %+v", logs)
	}
}

func TestDownload_TransportFailure(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	st.AddAPIKey(ctx, "the-only-key-123")
	boom := errors.New("dial tcp: connection refused")
	svc := &DownloadService{Store: st, Fetcher: &stubFetcher{err: boom}, Now: fixedNow}

	_, err := svc.Download(ctx, Requester{UserID: 1, Name: "A"}, "example.com")
	var te *TransportError
	if !errors.As(err, &te) || !errors.Is(err, boom) {
		t.Fatalf("expected TransportError wrapping boom, got %v", err)
	}
	logs := st.RecentRequests(0)
	if len(logs) != 1 || logs[0].Status != domain.StatusFailed || logs[0].ResponseCode != nil {
		t.Fatalf("unexpected log: %+v", logs)
	}
}
