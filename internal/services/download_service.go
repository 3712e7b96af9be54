package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/internal/domain"
	"github.com/tbourn/html-downloader-bot/internal/observability"
	"github.com/tbourn/html-downloader-bot/internal/repo"
	"github.com/tbourn/html-downloader-bot/internal/scrape"
)

// Fetcher retrieves a page through the scrape gateway.
type Fetcher interface {
	Fetch(ctx context.Context, apiKey, pageURL string) (*scrape.Response, error)
}

// Download is a successfully fetched page ready to be sent as an attachment.
type Download struct {
	URL        string
	Filename   string
	Title      string
	Body       []byte
	StatusCode int
}

// DownloadService runs one page download: key selection, the gateway call,
// usage accounting and the request log entry.
type DownloadService struct {
	Store   *repo.Store
	Fetcher Fetcher
	Now     func() time.Time
}

// Requester identifies who asked for a download.
type Requester struct {
	UserID int64
	Name   string
}

// Download normalizes rawURL and fetches it with a random pool key.
//
// Error semantics:
//   - ErrNoAPIKeys: the pool is empty; nothing was logged or fetched.
//   - *UpstreamError: the gateway answered non-200; logged as failed with
//     the status code.
//   - *TransportError: the gateway was unreachable; logged as failed with
//     no code.
//
// On success, usage counters and the user's request count are incremented
// and a success entry is logged.
func (s *DownloadService) Download(ctx context.Context, who Requester, rawURL string) (*Download, error) {
	pageURL := scrape.NormalizeURL(rawURL)

	key, ok := s.Store.RandomAPIKey()
	if !ok {
		observability.ObserveScrape(observability.OutcomeNoKey, 0)
		return nil, ErrNoAPIKeys
	}

	res, err := s.Fetcher.Fetch(ctx, key, pageURL)
	if err != nil {
		s.Store.AppendRequestLog(ctx, who.UserID, who.Name, pageURL, domain.StatusFailed, nil)
		log.Warn().Err(err).Int64("user_id", who.UserID).Str("url", pageURL).Msg("scrape transport failure")
		return nil, &TransportError{Err: err}
	}

	code := res.StatusCode
	if !res.OK() {
		s.Store.AppendRequestLog(ctx, who.UserID, who.Name, pageURL, domain.StatusFailed, &code)
		log.Info().Int64("user_id", who.UserID).Str("url", pageURL).Int("status", code).Msg("scrape failed upstream")
		return nil, &UpstreamError{StatusCode: code, Body: res.Text()}
	}

	s.Store.IncrementUsage(ctx)
	s.Store.IncrementUserRequests(ctx, who.UserID)
	s.Store.AppendRequestLog(ctx, who.UserID, who.Name, pageURL, domain.StatusSuccess, &code)
	log.Info().Int64("user_id", who.UserID).Str("url", pageURL).Int("bytes", len(res.Body)).Msg("scrape succeeded")

	return &Download{
		URL:        pageURL,
		Filename:   scrape.DownloadFilename(pageURL, s.now()),
		Title:      scrape.PageTitle(res.Body),
		Body:       res.Body,
		StatusCode: code,
	}, nil
}

func (s *DownloadService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
