// internal/services/catalog_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/events"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/storage"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type CatalogService struct {
	db            *gorm.DB
	blobs         storage.BlobStore
	publisher     events.Publisher
	uploadOptions storage.UploadOptions
}

type CreateItemRequest struct {
	Title           string       `json:"title" form:"title" validate:"required,min=1,max=255"`
	Description     string       `json:"description" form:"description" validate:"max=5000"`
	Genre           string       `json:"genre" form:"genre" validate:"max=100"`
	DurationSeconds int          `json:"duration_seconds" form:"duration_seconds" validate:"min=0"`
	IsFree          bool         `json:"is_free" form:"is_free"`
	Price           models.Money `json:"price" form:"-" validate:"min=0"`
}

type UpdateItemRequest struct {
	Title           *string       `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description     *string       `json:"description,omitempty" validate:"omitempty,max=5000"`
	Genre           *string       `json:"genre,omitempty" validate:"omitempty,max=100"`
	DurationSeconds *int          `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
	IsFree          *bool         `json:"is_free,omitempty"`
	Price           *models.Money `json:"price,omitempty" validate:"omitempty,min=0"`
}

// Upload is an audio file received from a client.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Body        io.Reader
}

type CatalogFilter struct {
	utils.PaginationParams
	Genre  string
	IsFree *bool
}

type ItemPublishedEvent struct {
	ItemID   uuid.UUID    `json:"item_id"`
	ArtistID uuid.UUID    `json:"artist_id"`
	Title    string       `json:"title"`
	IsFree   bool         `json:"is_free"`
	Price    models.Money `json:"price"`
}

var itemSortFields = []string{"created_at", "updated_at", "title", "price_cents", "play_count", "download_count"}

func NewCatalogService(db *gorm.DB, blobs storage.BlobStore, publisher events.Publisher, maxUploadMB int) *CatalogService {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &CatalogService{
		db:            db,
		blobs:         blobs,
		publisher:     publisher,
		uploadOptions: storage.TrackUploadOptions(maxUploadMB),
	}
}

// CreateItem stores the uploaded audio and creates a draft item.
func (s *CatalogService) CreateItem(ctx context.Context, artistID uuid.UUID, req *CreateItemRequest, upload *Upload) (*models.Item, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := checkPricing(req.IsFree, req.Price); err != nil {
		return nil, err
	}
	if upload == nil || upload.Body == nil {
		return nil, fmt.Errorf("%w: audio file is required", ErrInvalidRequest)
	}
	if err := s.uploadOptions.Validate(upload.Filename, upload.Size); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	contentType := upload.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(upload.Filename)
	}

	key := s.uploadOptions.GenerateKey(upload.Filename)
	if err := s.blobs.Put(ctx, key, upload.Body, upload.Size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store audio file: %w", err)
	}

	item := &models.Item{
		ArtistID:        artistID,
		Title:           req.Title,
		Description:     req.Description,
		Genre:           req.Genre,
		DurationSeconds: req.DurationSeconds,
		FileKey:         key,
		ContentType:     contentType,
		IsFree:          req.IsFree,
		Price:           req.Price,
		Status:          models.ItemStatusDraft,
	}
	if item.IsFree {
		item.Price = 0
	}

	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			logrus.WithError(delErr).WithField("file_key", key).Warn("Failed to remove orphaned upload")
		}
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"item_id":   item.ID,
		"artist_id": artistID,
	}).Info("Item created")

	return item, nil
}

// UpdateItem changes item metadata. Codes already issued keep their price.
func (s *CatalogService) UpdateItem(ctx context.Context, artistID, itemID uuid.UUID, req *UpdateItemRequest) (*models.Item, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	item, err := s.GetItem(ctx, artistID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemStatusArchived {
		return nil, fmt.Errorf("%w: item is archived", ErrInvalidRequest)
	}

	if req.Title != nil {
		item.Title = *req.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Genre != nil {
		item.Genre = *req.Genre
	}
	if req.DurationSeconds != nil {
		item.DurationSeconds = *req.DurationSeconds
	}
	if req.IsFree != nil {
		item.IsFree = *req.IsFree
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if item.IsFree {
		item.Price = 0
	}
	if err := checkPricing(item.IsFree, item.Price); err != nil {
		return nil, err
	}

	// Counters and status are owned by other writers; only metadata is written.
	if err := s.db.WithContext(ctx).Model(item).
		Select("title", "description", "genre", "duration_seconds", "is_free", "price_cents").
		Updates(item).Error; err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	return findItem(s.db.WithContext(ctx), item.ID)
}

// PublishItem makes a draft item visible. Archived items stay archived.
func (s *CatalogService) PublishItem(ctx context.Context, artistID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.GetItem(ctx, artistID, itemID)
	if err != nil {
		return nil, err
	}

	switch item.Status {
	case models.ItemStatusPublished:
		return item, nil
	case models.ItemStatusArchived:
		return nil, fmt.Errorf("%w: archived items cannot be published", ErrInvalidRequest)
	}

	if err := s.setStatus(ctx, item, models.ItemStatusPublished); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, events.TypeItemPublished, item.ID.String(), ItemPublishedEvent{
		ItemID:   item.ID,
		ArtistID: item.ArtistID,
		Title:    item.Title,
		IsFree:   item.IsFree,
		Price:    item.Price,
	})

	return item, nil
}

// ArchiveItem withdraws an item from sale. Existing entitlements keep working.
func (s *CatalogService) ArchiveItem(ctx context.Context, artistID, itemID uuid.UUID) (*models.Item, error) {
	item, err := s.GetItem(ctx, artistID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Status == models.ItemStatusArchived {
		return item, nil
	}

	if err := s.setStatus(ctx, item, models.ItemStatusArchived); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *CatalogService) setStatus(ctx context.Context, item *models.Item, status models.ItemStatus) error {
	if err := s.db.WithContext(ctx).Model(item).Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update item status: %w", err)
	}
	item.Status = status

	logrus.WithFields(logrus.Fields{
		"item_id": item.ID,
		"status":  status,
	}).Info("Item status changed")
	return nil
}

// GetItem returns an item owned by artistID.
func (s *CatalogService) GetItem(ctx context.Context, artistID, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).
		Where("id = ? AND artist_id = ?", itemID, artistID).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &item, nil
}

func (s *CatalogService) ListArtistItems(ctx context.Context, artistID uuid.UUID, params utils.PaginationParams) ([]models.Item, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Item{}).Where("artist_id = ?", artistID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	// Apply sorting and pagination
	query = utils.ApplySort(query, params, itemSortFields)
	query = utils.ApplyPagination(query, params)

	var items []models.Item
	if err := query.Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get items: %w", err)
	}

	return items, total, nil
}

// GetPublishedItem returns a published item with its artist.
func (s *CatalogService) GetPublishedItem(ctx context.Context, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := s.db.WithContext(ctx).
		Preload("Artist").
		Where("id = ? AND status = ?", itemID, models.ItemStatusPublished).
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &item, nil
}

func (s *CatalogService) ListPublished(ctx context.Context, filter CatalogFilter) ([]models.Item, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Item{}).Where("status = ?", models.ItemStatusPublished)

	// Apply filters
	if filter.Genre != "" {
		query = query.Where("genre = ?", filter.Genre)
	}
	if filter.IsFree != nil {
		query = query.Where("is_free = ?", *filter.IsFree)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	query = utils.ApplySort(query, filter.PaginationParams, itemSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var items []models.Item
	if err := query.Preload("Artist").Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get items: %w", err)
	}

	return items, total, nil
}

func checkPricing(isFree bool, price models.Money) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidRequest)
	}
	if !isFree && price.IsZero() {
		return fmt.Errorf("%w: paid items need a price", ErrInvalidRequest)
	}
	return nil
}
