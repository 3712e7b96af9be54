package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/html-downloader-bot/internal/config"
	"github.com/tbourn/html-downloader-bot/internal/repo"
	"github.com/tbourn/html-downloader-bot/internal/scrape"
	"github.com/tbourn/html-downloader-bot/internal/services"
)

// openStore opens the configured document backend and loads the store.
func openStore(ctx context.Context, c config.Config) (*repo.Store, error) {
	var docs repo.DocumentStore
	switch c.Store.Backend {
	case config.StoreBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(c.Store.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
		s, err := repo.OpenSQLiteDocumentStore(c.Store.DBPath)
		if err != nil {
			return nil, err
		}
		docs = s
	default:
		s, err := repo.NewFileDocumentStore(c.Store.DataDir)
		if err != nil {
			return nil, err
		}
		docs = s
	}

	log.Debug().
		Str("backend", c.Store.Backend).
		Str("timezone", c.Location().String()).
		Msg("store opened")
	return repo.Open(ctx, docs, repo.StoreOptions{Location: c.Location()}), nil
}

// newDownloadService stamps file names in the store's timezone.
func newDownloadService(store *repo.Store, c config.Config) *services.DownloadService {
	loc := c.Location()
	return &services.DownloadService{
		Store:   store,
		Fetcher: scrape.NewClient(scrape.Options{BaseURL: c.Scraper.BaseURL, Timeout: c.Scraper.Timeout}),
		Now:     func() time.Time { return time.Now().In(loc) },
	}
}
