package repo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/html-downloader-bot/internal/domain"
)

// SQLiteDocumentStore keeps documents as rows of the documents table.
type SQLiteDocumentStore struct {
	db *gorm.DB
}

// NewSQLiteDocumentStore wraps an already migrated database handle.
func NewSQLiteDocumentStore(db *gorm.DB) *SQLiteDocumentStore {
	return &SQLiteDocumentStore{db: db}
}

// OpenSQLiteDocumentStore opens the database at path, migrates it and
// returns a store that owns the connection.
func OpenSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return NewSQLiteDocumentStore(db), nil
}

// Load reads the named document.
func (s *SQLiteDocumentStore) Load(ctx context.Context, name string) ([]byte, error) {
	var doc domain.Document
	err := s.db.WithContext(ctx).Where("name = ?", name).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return []byte(doc.Body), nil
}

// Save upserts the named document.
func (s *SQLiteDocumentStore) Save(ctx context.Context, name string, body []byte) error {
	doc := domain.Document{Name: name, Body: string(body)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLiteDocumentStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
