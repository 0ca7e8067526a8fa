// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

type AuthService struct {
	clock
	db  *gorm.DB
	cfg *config.Config
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Username  string          `json:"username" validate:"required,username"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,strong_password"`
	FullName  string          `json:"full_name,omitempty" validate:"max=255"`
	Role      models.UserRole `json:"role" validate:"required,oneof=artist client"`
	ArtistBio string          `json:"artist_bio,omitempty" validate:"max=5000"`
}

// UpdateProfileRequest changes the caller's own account. Role and status are
// managed by administrators. NewPassword requires CurrentPassword.
type UpdateProfileRequest struct {
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName        *string `json:"full_name,omitempty" validate:"omitempty,max=255"`
	ArtistBio       *string `json:"artist_bio,omitempty" validate:"omitempty,max=5000"`
	CurrentPassword string  `json:"current_password,omitempty"`
	NewPassword     string  `json:"new_password,omitempty" validate:"omitempty,strong_password"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{
		db:  db,
		cfg: cfg,
	}
}

// Register creates an artist or client account. Administrators are seeded.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	// Check if user already exists
	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? OR username = ?", email, req.Username).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if existing > 0 {
		return nil, ErrUserExists
	}

	user := &models.User{
		Username:  req.Username,
		Email:     email,
		FullName:  req.FullName,
		Role:      req.Role,
		IsActive:  true,
		ArtistBio: req.ArtistBio,
	}
	if user.Role != models.UserRoleArtist {
		user.ArtistBio = ""
	}

	// Set password
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Save user
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return s.issueToken(user)
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// Find user by email
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Verify password
	if err := user.CheckPassword(req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	// Update last login time
	now := s.Now()
	user.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login time")
	}

	return s.issueToken(&user)
}

// Me returns the active user behind a token.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

// UpdateProfile applies the provided fields to the caller's account. Artist
// bios are ignored for other roles.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			var taken int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", email, user.ID).
				Count(&taken).Error; err != nil {
				return nil, fmt.Errorf("database error: %w", err)
			}
			if taken > 0 {
				return nil, ErrUserExists
			}
			updates["email"] = email
		}
	}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.ArtistBio != nil && user.Role == models.UserRoleArtist {
		updates["artist_bio"] = *req.ArtistBio
	}
	if req.NewPassword != "" {
		if err := user.CheckPassword(req.CurrentPassword); err != nil {
			return nil, ErrInvalidCredentials
		}
		if err := user.SetPassword(req.NewPassword); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updates["password_hash"] = user.PasswordHash
	}

	if len(updates) == 0 {
		return user, nil
	}
	updates["updated_at"] = s.Now()

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	logrus.WithField("user_id", user.ID).Info("Profile updated")

	return s.GetUserByID(ctx, user.ID)
}

// ValidateSession confirms that a signature-checked token still belongs to
// an active account and has not been logged out.
func (s *AuthService) ValidateSession(ctx context.Context, userID uuid.UUID, tokenID string) error {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrAccountDisabled
	}

	if tokenID != "" {
		var revoked int64
		if err := s.db.WithContext(ctx).Model(&models.RevokedToken{}).
			Where("token_id = ?", tokenID).
			Count(&revoked).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		if revoked > 0 {
			return ErrTokenRevoked
		}
	}
	return nil
}

// Logout blacklists the token until its natural expiry and drops
// blacklist entries that have expired on their own.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return fmt.Errorf("%w: token has no id", ErrInvalidRequest)
	}
	now := s.Now()

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("expires_at < ?", now).Delete(&models.RevokedToken{}).Error; err != nil {
			return fmt.Errorf("failed to purge revoked tokens: %w", err)
		}

		// Logging out twice with the same token is a no-op.
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RevokedToken{
			TokenID:   tokenID,
			UserID:    userID,
			ExpiresAt: expiresAt.UTC(),
			CreatedAt: now,
		}).Error; err != nil {
			return fmt.Errorf("failed to revoke token: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("user_id", userID).Info("User logged out")
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), userID)
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(
		user.ID,
		user.Username,
		string(user.Role),
		s.cfg.JWT.AccessTokenTTL,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	return &AuthResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}
