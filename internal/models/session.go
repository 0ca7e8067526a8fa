// internal/models/session.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RevokedToken blacklists an access token until it would have expired.
type RevokedToken struct {
	TokenID   string    `json:"token_id" gorm:"size:64;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}
