// internal/services/payment_code_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

const (
	// MaxCodeExpiryHours bounds the validity window of an issued code (one year).
	MaxCodeExpiryHours = 8760

	maxCodeAttempts = 10
)

type PaymentCodeService struct {
	clock
	db                 *gorm.DB
	publisher          events.Publisher
	defaultExpiryHours int
	generate           func() string
}

type IssueCodeRequest struct {
	ExpiryHours int `json:"expiry_hours" validate:"min=0,max=8760"`
}

type PaymentCodeIssuedEvent struct {
	CodeID    uuid.UUID    `json:"code_id"`
	ItemID    uuid.UUID    `json:"item_id"`
	ArtistID  uuid.UUID    `json:"artist_id"`
	Price     models.Money `json:"price"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func NewPaymentCodeService(db *gorm.DB, publisher events.Publisher, cfg config.EntitlementConfig) *PaymentCodeService {
	expiry := cfg.DefaultCodeExpiryHours
	if expiry <= 0 {
		expiry = 24
	}
	return &PaymentCodeService{
		db:                 db,
		publisher:          publisher,
		defaultExpiryHours: expiry,
		generate:           utils.GeneratePaymentCode,
	}
}

// IssueCode creates a single-use code for a paid item owned by artistID.
// An expiryHours of zero selects the configured default.
func (s *PaymentCodeService) IssueCode(ctx context.Context, artistID, itemID uuid.UUID, expiryHours int) (*models.PaymentCode, error) {
	if expiryHours < 0 || expiryHours > MaxCodeExpiryHours {
		return nil, fmt.Errorf("%w: expiry_hours must be between 0 and %d", ErrInvalidRequest, MaxCodeExpiryHours)
	}
	if expiryHours == 0 {
		expiryHours = s.defaultExpiryHours
	}

	// Verify item exists and belongs to the artist
	var item models.Item
	if err := s.db.WithContext(ctx).
		Where("id = ? AND artist_id = ?", itemID, artistID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if item.IsFree {
		return nil, fmt.Errorf("%w: cannot issue a payment code for a free item", ErrInvalidRequest)
	}
	if item.Status == models.ItemStatusArchived {
		return nil, fmt.Errorf("%w: item is archived", ErrInvalidRequest)
	}

	now := s.Now()
	code := &models.PaymentCode{
		ItemID:    item.ID,
		Price:     item.Price,
		IsUsed:    false,
		ExpiresAt: now.Add(time.Duration(expiryHours) * time.Hour),
	}

	if err := s.insertUnique(ctx, code); err != nil {
		return nil, err
	}
	code.Item = &item

	events.Emit(ctx, s.publisher, events.TypePaymentCodeIssued, item.ID.String(), PaymentCodeIssuedEvent{
		CodeID:    code.ID,
		ItemID:    item.ID,
		ArtistID:  artistID,
		Price:     code.Price,
		ExpiresAt: code.ExpiresAt,
	})

	logrus.WithFields(logrus.Fields{
		"code_id":   code.ID,
		"item_id":   item.ID,
		"artist_id": artistID,
	}).Info("Payment code issued")

	return code, nil
}

// insertUnique draws codes until one is free. The lookup avoids most
// collisions; the unique index catches the rest.
func (s *PaymentCodeService) insertUnique(ctx context.Context, code *models.PaymentCode) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate := s.generate()

		var existing int64
		if err := s.db.WithContext(ctx).Model(&models.PaymentCode{}).
			Where("code = ?", candidate).Count(&existing).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if existing > 0 {
			continue
		}

		code.ID = uuid.Nil
		code.Code = candidate
		err := s.db.WithContext(ctx).Create(code).Error
		if err == nil {
			return nil
		}
		if !database.IsUniqueViolation(err) {
			return fmt.Errorf("failed to create payment code: %w", err)
		}
	}

	return fmt.Errorf("failed to generate a unique payment code after %d attempts", maxCodeAttempts)
}

// ListCodes returns the codes issued for the artist's items, newest first.
func (s *PaymentCodeService) ListCodes(ctx context.Context, artistID uuid.UUID, params utils.PaginationParams) ([]models.PaymentCode, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PaymentCode{}).
		Joins("JOIN items ON items.id = payment_codes.item_id").
		Where("items.artist_id = ?", artistID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payment codes: %w", err)
	}

	var codes []models.PaymentCode
	if err := utils.ApplyPagination(query, params).
		Order("payment_codes.created_at DESC").
		Find(&codes).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get payment codes: %w", err)
	}

	return codes, total, nil
}
