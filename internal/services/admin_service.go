// internal/services/admin_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role     *models.UserRole `json:"role,omitempty"`
	IsActive *bool            `json:"is_active,omitempty"`
}

type UpdateUserStatusRequest struct {
	IsActive *bool  `json:"is_active" validate:"required"`
	Reason   string `json:"reason,omitempty" validate:"max=500"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

func (s *AdminService) ListUsers(ctx context.Context, filter AdminUserFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	// Apply filters
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "username", "email", "role"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// SetUserActive enables or disables an account. Administrator accounts
// cannot be changed through this path.
func (s *AdminService) SetUserActive(ctx context.Context, adminID, userID uuid.UUID, active bool, reason string) (*models.User, error) {
	var user models.User

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		found, err := findUser(tx, userID)
		if err != nil {
			return err
		}
		user = *found

		if user.Role == models.UserRoleAdmin {
			return fmt.Errorf("%w: cannot modify admin user status", ErrForbidden)
		}
		if user.IsActive == active {
			return nil
		}

		if err := tx.Model(&user).Update("is_active", active).Error; err != nil {
			return fmt.Errorf("failed to update user status: %w", err)
		}
		user.IsActive = active

		return tx.Create(&models.AuditLog{
			UserID:       &adminID,
			Action:       "UPDATE_USER_STATUS",
			ResourceType: "user",
			ResourceID:   &userID,
			NewValues:    models.JSONB{"is_active": active, "reason": reason},
		}).Error
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"admin_id":  adminID,
		"user_id":   userID,
		"is_active": active,
	}).Info("User status updated")

	return &user, nil
}

func findUser(db *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}
