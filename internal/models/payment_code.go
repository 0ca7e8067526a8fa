// internal/models/payment_code.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentCode is a single-use secret bound to one item. Price is the item
// price captured at issue time. IsUsed only ever moves from false to true.
type PaymentCode struct {
	BaseModel
	Code      string     `json:"code" gorm:"size:32;not null;uniqueIndex"`
	ItemID    uuid.UUID  `json:"item_id" gorm:"type:uuid;not null;index"`
	Price     Money      `json:"price" gorm:"column:price_cents;not null"`
	IsUsed    bool       `json:"is_used" gorm:"not null;default:false"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
	UsedByID  *uuid.UUID `json:"used_by_id" gorm:"type:uuid"`

	// Relationships
	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}

// IsExpired reports whether the code can no longer be redeemed at now.
func (c *PaymentCode) IsExpired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
