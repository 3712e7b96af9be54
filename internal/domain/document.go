package domain

import "time"

// Document names used by both store backends. The file backend appends
// ".json" to build the file name.
const (
	DocAdmin      = "admin_data"
	DocAPIKeys    = "api_keys"
	DocUsage      = "requests_data"
	DocUsers      = "users_data"
	DocRequestLog = "api_requests_data"
)

// DocumentNames lists every persisted document in load order.
var DocumentNames = []string{DocAdmin, DocAPIKeys, DocUsage, DocUsers, DocRequestLog}

// Document is one serialized record stored by the SQLite backend.
//
// Fields:
//   - Name: document name, primary key.
//   - Body: indented JSON payload.
//   - UpdatedAt: last write, managed by GORM.
type Document struct {
	Name      string    `gorm:"type:varchar(64);primaryKey"`
	Body      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }
