// internal/services/redemption_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type RedemptionService struct {
	clock
	db           *gorm.DB
	publisher    events.Publisher
	maxDownloads int
}

type RedeemRequest struct {
	Code   string    `json:"code" validate:"required,payment_code"`
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

type EntitlementCreatedEvent struct {
	EntitlementID uuid.UUID    `json:"entitlement_id"`
	HolderID      uuid.UUID    `json:"holder_id"`
	ItemID        uuid.UUID    `json:"item_id"`
	PaymentCodeID uuid.UUID    `json:"payment_code_id"`
	AmountPaid    models.Money `json:"amount_paid"`
}

func NewRedemptionService(db *gorm.DB, publisher events.Publisher, cfg config.EntitlementConfig) *RedemptionService {
	maxDownloads := cfg.MaxDownloads
	if maxDownloads <= 0 {
		maxDownloads = models.DefaultMaxDownloads
	}
	return &RedemptionService{
		db:           db,
		publisher:    publisher,
		maxDownloads: maxDownloads,
	}
}

// Redeem consumes a payment code and grants holderID a completed
// entitlement to itemID. Both writes commit together or not at all.
func (s *RedemptionService) Redeem(ctx context.Context, code string, itemID, holderID uuid.UUID) (*models.Entitlement, error) {
	normalized := utils.NormalizePaymentCode(code)
	now := s.Now()

	logger := logrus.WithFields(logrus.Fields{
		"code_hash": utils.HashString(normalized)[:16],
		"item_id":   itemID,
		"holder_id": holderID,
	})

	var entitlement *models.Entitlement
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		// Find payment code
		var paymentCode models.PaymentCode
		if err := tx.Where("code = ?", normalized).First(&paymentCode).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}

		if paymentCode.IsUsed {
			return ErrAlreadyUsed
		}
		if paymentCode.IsExpired(now) {
			return ErrExpired
		}
		if paymentCode.ItemID != itemID {
			return ErrMismatch
		}

		// Verify item can be sold
		var item models.Item
		if err := tx.Where("id = ?", itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("database error: %w", err)
		}
		if !item.IsPublished() {
			return ErrItemNotFound
		}
		if item.IsFree {
			return fmt.Errorf("%w: item is free", ErrInvalidRequest)
		}

		// Check existing ownership
		var owned int64
		if err := tx.Model(&models.Entitlement{}).
			Where("holder_id = ? AND item_id = ? AND status = ?", holderID, itemID, models.EntitlementStatusCompleted).
			Count(&owned).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if owned > 0 {
			return ErrAlreadyOwned
		}

		// Consume the code. Only one concurrent redemption can flip is_used.
		result := tx.Model(&models.PaymentCode{}).
			Where("id = ? AND is_used = ?", paymentCode.ID, false).
			Updates(map[string]interface{}{
				"is_used":    true,
				"used_at":    now,
				"used_by_id": holderID,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to consume payment code: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyUsed
		}

		entitlement = &models.Entitlement{
			HolderID:      holderID,
			ItemID:        itemID,
			PaymentCodeID: &paymentCode.ID,
			AmountPaid:    paymentCode.Price,
			Status:        models.EntitlementStatusCompleted,
			DownloadCount: 0,
			MaxDownloads:  s.maxDownloads,
		}
		if err := tx.Create(entitlement).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyOwned
			}
			return fmt.Errorf("failed to create entitlement: %w", err)
		}
		entitlement.Item = &item

		return nil
	})
	if err != nil {
		logger.WithError(err).Info("Payment code redemption refused")
		return nil, err
	}

	events.Emit(ctx, s.publisher, events.TypeEntitlementCreated, holderID.String(), EntitlementCreatedEvent{
		EntitlementID: entitlement.ID,
		HolderID:      holderID,
		ItemID:        itemID,
		PaymentCodeID: *entitlement.PaymentCodeID,
		AmountPaid:    entitlement.AmountPaid,
	})

	logger.WithField("entitlement_id", entitlement.ID).Info("Payment code redeemed")
	return entitlement, nil
}

// ListPurchases returns the holder's entitlements with their items, newest first.
func (s *RedemptionService) ListPurchases(ctx context.Context, holderID uuid.UUID, params utils.PaginationParams) ([]models.Entitlement, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Entitlement{}).Where("holder_id = ?", holderID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	var entitlements []models.Entitlement
	if err := utils.ApplyPagination(query, params).
		Preload("Item").
		Order("created_at DESC").
		Find(&entitlements).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get purchases: %w", err)
	}

	return entitlements, total, nil
}
