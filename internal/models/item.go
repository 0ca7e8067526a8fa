// internal/models/item.go
package models

import (
	"github.com/google/uuid"
)

// Item is a sellable track. The owning artist may mutate it; once published it
// is visible to every principal.
type Item struct {
	BaseModel
	ArtistID        uuid.UUID  `json:"artist_id" gorm:"type:uuid;not null;index"`
	Title           string     `json:"title" gorm:"size:255;not null"`
	Description     string     `json:"description" gorm:"type:text"`
	Genre           string     `json:"genre" gorm:"size:100;index"`
	DurationSeconds int        `json:"duration_seconds"`
	FileKey         string     `json:"-" gorm:"size:512;not null"`
	ContentType     string     `json:"content_type" gorm:"size:100"`
	CoverKey        string     `json:"cover_key,omitempty" gorm:"size:512"`
	IsFree          bool       `json:"is_free" gorm:"not null"`
	Price           Money      `json:"price" gorm:"column:price_cents;not null;default:0"`
	Status          ItemStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	PlayCount       int64      `json:"play_count" gorm:"not null;default:0"`
	DownloadCount   int64      `json:"download_count" gorm:"not null;default:0"`

	// Relationships
	Artist *User `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
}

func (i *Item) IsPublished() bool {
	return i.Status == ItemStatusPublished
}
