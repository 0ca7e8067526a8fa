// internal/models/favorite.go
package models

import "github.com/google/uuid"

// Favorite bookmarks an item for a user. A user holds at most one per item.
type Favorite struct {
	BaseModel
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:ux_favorites_user_item"`
	ItemID uuid.UUID `json:"item_id" gorm:"type:uuid;not null;uniqueIndex:ux_favorites_user_item"`

	// Relationships
	Item *Item `json:"item,omitempty" gorm:"foreignKey:ItemID"`
}
