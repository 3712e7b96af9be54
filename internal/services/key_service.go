package services

import (
	"context"

	"github.com/tbourn/html-downloader-bot/internal/repo"
)

// KeyService manages the scrape gateway API key pool.
type KeyService struct {
	Store *repo.Store
}

// Add validates text as an API key and stores it, returning the new id.
func (s *KeyService) Add(ctx context.Context, text string) (int, error) {
	key, err := ValidateAPIKey(text)
	if err != nil {
		return 0, err
	}
	return s.Store.AddAPIKey(ctx, key), nil
}

// Delete parses text as a key id and removes that key, returning the id.
func (s *KeyService) Delete(ctx context.Context, text string) (int, error) {
	id, err := ParseAPIID(text)
	if err != nil {
		return 0, err
	}
	if !s.Store.HasAPIKey(id) {
		return id, ErrAPIIDNotFound
	}
	s.Store.DeleteAPIKey(ctx, id)
	return id, nil
}
