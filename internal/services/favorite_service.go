// internal/services/favorite_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

// FavoriteService keeps each user's bookmarked catalog items.
type FavoriteService struct {
	db *gorm.DB
}

type AddFavoriteRequest struct {
	ItemID uuid.UUID `json:"item_id" validate:"required"`
}

func NewFavoriteService(db *gorm.DB) *FavoriteService {
	return &FavoriteService{db: db}
}

// AddFavorite bookmarks a published item. Drafts and archived items are
// reported as missing.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID, itemID uuid.UUID) (*models.Favorite, error) {
	item, err := findPublishedItem(s.db.WithContext(ctx), itemID)
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND item_id = ?", userID, item.ID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyFavorited
	}

	favorite := &models.Favorite{UserID: userID, ItemID: item.ID}
	if err := s.db.WithContext(ctx).Create(favorite).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrAlreadyFavorited
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}
	favorite.Item = item

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"item_id": item.ID,
	}).Debug("Favorite added")

	return favorite, nil
}

// ListFavorites returns the user's favorites with their items, newest first.
func (s *FavoriteService) ListFavorites(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.Favorite, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count favorites: %w", err)
	}

	var favorites []models.Favorite
	if err := utils.ApplyPagination(query, params).
		Preload("Item").
		Order("created_at DESC").
		Find(&favorites).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get favorites: %w", err)
	}

	return favorites, total, nil
}

// RemoveFavorite deletes one of the user's favorites. Other users'
// favorites are reported as missing.
func (s *FavoriteService) RemoveFavorite(ctx context.Context, userID, favoriteID uuid.UUID) error {
	var favorite models.Favorite
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", favoriteID, userID).
		First(&favorite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFavoriteNotFound
		}
		return fmt.Errorf("database error: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&favorite).Error; err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	return nil
}
