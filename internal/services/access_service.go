// internal/services/access_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/storage"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

// AccessService decides whether a principal may download or stream an item
// and records the access.
type AccessService struct {
	clock
	db        *gorm.DB
	blobs     storage.BlobStore
	publisher events.Publisher
}

type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// DownloadGrant carries an open blob. The caller must close Blob.
type DownloadGrant struct {
	Item        *models.Item
	Entitlement *models.Entitlement // nil for free items
	Blob        *storage.Blob
}

// Remaining returns the downloads left on the entitlement, or -1 when the
// download was not metered.
func (g *DownloadGrant) Remaining() int {
	if g.Entitlement == nil {
		return -1
	}
	return g.Entitlement.RemainingDownloads()
}

// StreamGrant carries an open blob. The caller must close Blob.
type StreamGrant struct {
	Item *models.Item
	Blob *storage.Blob
}

type RecordPlayRequest struct {
	DurationPlayed int `json:"duration_played" validate:"min=0"`
}

type DownloadGrantedEvent struct {
	ItemID        uuid.UUID  `json:"item_id"`
	UserID        uuid.UUID  `json:"user_id"`
	EntitlementID *uuid.UUID `json:"entitlement_id,omitempty"`
	Remaining     int        `json:"remaining"`
}

func NewAccessService(db *gorm.DB, blobs storage.BlobStore, publisher events.Publisher) *AccessService {
	return &AccessService{
		db:        db,
		blobs:     blobs,
		publisher: publisher,
	}
}

// AuthorizeDownload grants a download of itemID. Paid items consume one
// download from the requester's entitlement. The counters only persist if
// the blob could be opened.
func (s *AccessService) AuthorizeDownload(ctx context.Context, itemID, requesterID uuid.UUID, meta RequestMeta) (*DownloadGrant, error) {
	now := s.Now()
	grant := &DownloadGrant{}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		item, err := findItem(tx, itemID)
		if err != nil {
			return err
		}
		grant.Item = item

		if item.IsFree {
			if !item.IsPublished() {
				return ErrItemNotFound
			}
		} else {
			entitlement, err := s.consumeDownload(tx, item.ID, requesterID)
			if err != nil {
				return err
			}

			if err := tx.Create(&models.DownloadEvent{
				EntitlementID: entitlement.ID,
				DownloadedAt:  now,
				IPAddress:     meta.IPAddress,
				UserAgent:     meta.UserAgent,
			}).Error; err != nil {
				return fmt.Errorf("failed to record download: %w", err)
			}
			grant.Entitlement = entitlement
		}

		if err := incrementItemCounter(tx, item.ID, "download_count"); err != nil {
			return err
		}
		item.DownloadCount++

		blob, err := s.open(ctx, item.FileKey)
		if err != nil {
			return err
		}
		grant.Blob = blob
		return nil
	})
	if err != nil {
		if grant.Blob != nil {
			grant.Blob.Close()
		}
		return nil, err
	}

	var entitlementID *uuid.UUID
	if grant.Entitlement != nil {
		entitlementID = &grant.Entitlement.ID
	}
	events.Emit(ctx, s.publisher, events.TypeDownloadGranted, requesterID.String(), DownloadGrantedEvent{
		ItemID:        itemID,
		UserID:        requesterID,
		EntitlementID: entitlementID,
		Remaining:     grant.Remaining(),
	})

	logrus.WithFields(logrus.Fields{
		"item_id":   itemID,
		"user_id":   requesterID,
		"remaining": grant.Remaining(),
	}).Info("Download granted")

	return grant, nil
}

func (s *AccessService) consumeDownload(tx *gorm.DB, itemID, holderID uuid.UUID) (*models.Entitlement, error) {
	var entitlement models.Entitlement
	if err := tx.Where("holder_id = ? AND item_id = ? AND status = ?", holderID, itemID, models.EntitlementStatusCompleted).
		First(&entitlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntitlementRequired
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if entitlement.Exhausted() {
		return nil, ErrQuotaExceeded
	}

	// Conditional increment keeps download_count <= max_downloads under concurrency.
	result := tx.Model(&models.Entitlement{}).
		Where("id = ? AND download_count < max_downloads", entitlement.ID).
		UpdateColumn("download_count", gorm.Expr("download_count + 1"))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update download count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrQuotaExceeded
	}

	entitlement.DownloadCount++
	return &entitlement, nil
}

// AuthorizeStream grants streaming of a published item and records the play.
func (s *AccessService) AuthorizeStream(ctx context.Context, itemID, userID uuid.UUID) (*StreamGrant, error) {
	now := s.Now()
	grant := &StreamGrant{}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		item, err := findPublishedItem(tx, itemID)
		if err != nil {
			return err
		}
		grant.Item = item

		if err := incrementItemCounter(tx, item.ID, "play_count"); err != nil {
			return err
		}
		item.PlayCount++

		if err := tx.Create(&models.PlayEvent{
			UserID:   userID,
			ItemID:   item.ID,
			PlayedAt: now,
		}).Error; err != nil {
			return fmt.Errorf("failed to record play: %w", err)
		}

		blob, err := s.open(ctx, item.FileKey)
		if err != nil {
			return err
		}
		grant.Blob = blob
		return nil
	})
	if err != nil {
		if grant.Blob != nil {
			grant.Blob.Close()
		}
		return nil, err
	}

	return grant, nil
}

// RecordPlay appends a play-history row with a client-reported duration.
func (s *AccessService) RecordPlay(ctx context.Context, itemID, userID uuid.UUID, durationSeconds int) (*models.PlayEvent, error) {
	if durationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidRequest)
	}

	item, err := findPublishedItem(s.db.WithContext(ctx), itemID)
	if err != nil {
		return nil, err
	}
	if item.DurationSeconds > 0 && durationSeconds > item.DurationSeconds {
		durationSeconds = item.DurationSeconds
	}

	play := &models.PlayEvent{
		UserID:         userID,
		ItemID:         item.ID,
		PlayedAt:       s.Now(),
		DurationPlayed: durationSeconds,
	}
	if err := s.db.WithContext(ctx).Create(play).Error; err != nil {
		return nil, fmt.Errorf("failed to record play: %w", err)
	}

	return play, nil
}

// ListPlays returns the user's play history with items, most recent first.
func (s *AccessService) ListPlays(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.PlayEvent, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PlayEvent{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count plays: %w", err)
	}

	var plays []models.PlayEvent
	if err := utils.ApplyPagination(query, params).
		Preload("Item").
		Order("played_at DESC").
		Find(&plays).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get plays: %w", err)
	}

	return plays, total, nil
}

func (s *AccessService) open(ctx context.Context, key string) (*storage.Blob, error) {
	blob, err := s.blobs.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logrus.WithField("file_key", key).Warn("Item file missing from blob store")
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open item file: %w", err)
	}
	return blob, nil
}

func findItem(db *gorm.DB, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := db.Where("id = ?", itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &item, nil
}

func findPublishedItem(db *gorm.DB, itemID uuid.UUID) (*models.Item, error) {
	item, err := findItem(db, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsPublished() {
		return nil, ErrItemNotFound
	}
	return item, nil
}

func incrementItemCounter(tx *gorm.DB, itemID uuid.UUID, column string) error {
	if err := tx.Model(&models.Item{}).
		Where("id = ?", itemID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error; err != nil {
		return fmt.Errorf("failed to update %s: %w", column, err)
	}
	return nil
}
