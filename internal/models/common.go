// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the primary key on the application side so that the
// same schema works on PostgreSQL and SQLite.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleArtist UserRole = "artist"
	UserRoleClient UserRole = "client"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleAdmin, UserRoleArtist, UserRoleClient:
		return true
	}
	return false
}

type ItemStatus string

const (
	ItemStatusDraft     ItemStatus = "draft"
	ItemStatusPublished ItemStatus = "published"
	ItemStatusArchived  ItemStatus = "archived"
)

type EntitlementStatus string

const (
	EntitlementStatusPending   EntitlementStatus = "pending"
	EntitlementStatusCompleted EntitlementStatus = "completed"
	EntitlementStatusExpired   EntitlementStatus = "expired"
	EntitlementStatusCancelled EntitlementStatus = "cancelled"
)

// DefaultMaxDownloads is the download ceiling of a new entitlement.
const DefaultMaxDownloads = 5
