// internal/models/entitlement.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entitlement is the purchase ledger record. It is never deleted.
type Entitlement struct {
	BaseModel
	HolderID      uuid.UUID         `json:"holder_id" gorm:"type:uuid;not null;index"`
	ItemID        uuid.UUID         `json:"item_id" gorm:"type:uuid;not null;index"`
	PaymentCodeID *uuid.UUID        `json:"payment_code_id" gorm:"type:uuid"`
	AmountPaid    Money             `json:"amount_paid" gorm:"column:amount_paid_cents;not null"`
	Status        EntitlementStatus `json:"status" gorm:"type:varchar(20);not null"`
	DownloadCount int               `json:"download_count" gorm:"not null;default:0"`
	MaxDownloads  int               `json:"max_downloads" gorm:"not null;default:5"`

	// Relationships
	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (e *Entitlement) Exhausted() bool {
	return e.DownloadCount >= e.MaxDownloads
}

func (e *Entitlement) RemainingDownloads() int {
	if e.Exhausted() {
		return 0
	}
	return e.MaxDownloads - e.DownloadCount
}

// DownloadEvent is an append-only log row for a metered download.
type DownloadEvent struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EntitlementID uuid.UUID `json:"entitlement_id" gorm:"type:uuid;not null;index"`
	DownloadedAt  time.Time `json:"downloaded_at" gorm:"not null"`
	IPAddress     string    `json:"ip_address" gorm:"size:45"`
	UserAgent     string    `json:"user_agent" gorm:"type:text"`
}

func (e *DownloadEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// PlayEvent is an append-only play-history row.
type PlayEvent struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	ItemID         uuid.UUID `json:"item_id" gorm:"type:uuid;not null;index"`
	PlayedAt       time.Time `json:"played_at" gorm:"not null"`
	DurationPlayed int       `json:"duration_played" gorm:"not null;default:0"`

	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

func (e *PlayEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
