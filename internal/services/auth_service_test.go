// internal/services/auth_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/models"
	"github.com/javajoker/trackstore-backend/internal/tests"
	"github.com/javajoker/trackstore-backend/internal/utils"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	utils.SetJWTSecret("test-secret")
	cfg := &config.Config{JWT: config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1}}
	return NewAuthService(tests.NewTestDB(t), cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	resp, err := svc.Register(ctx, &RegisterRequest{
		Username: "alice",
		Email:    "Alice@Example.com",
		Password: "Secret123!",
		Role:     models.UserRoleArtist,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.String(), claims.UserID)
	assert.Equal(t, "artist", claims.Role)

	login, err := svc.Login(ctx, &LoginRequest{Email: "alice@example.com", Password: "Secret123!"})
	require.NoError(t, err)
	require.NotNil(t, login.User.LastLoginAt)

	_, err = svc.Login(ctx, &LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	me, err := svc.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
}

func TestRegister_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)

	base := RegisterRequest{Username: "bob", Email: "bob@example.com", Password: "Secret123!", Role: models.UserRoleClient}
	_, err := svc.Register(ctx, &base)
	require.NoError(t, err)

	dup := base
	dup.Username = "bobby"
	_, err = svc.Register(ctx, &dup)
	assert.ErrorIs(t, err, ErrUserExists)

	admin := base
	admin.Username, admin.Email, admin.Role = "root", "root@example.com", models.UserRoleAdmin
	_, err = svc.Register(ctx, &admin)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	weak := base
	weak.Username, weak.Email, weak.Password = "weak", "weak@example.com", "password"
	_, err = svc.Register(ctx, &weak)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLogin_DisabledAccount(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	user := tests.CreateUser(t, svc.db, "carol", models.UserRoleClient)
	require.NoError(t, svc.db.Model(user).Update("is_active", false).Error)

	_, err := svc.Login(ctx, &LoginRequest{Email: user.Email, Password: "Secret123!"})
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = svc.Me(ctx, user.ID)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestValidateSession(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	user := tests.CreateUser(t, svc.db, "dave", models.UserRoleClient)

	require.NoError(t, svc.ValidateSession(ctx, user.ID, "jti-1"))

	assert.ErrorIs(t, svc.ValidateSession(ctx, uuid.New(), "jti-1"), ErrNotFound)

	require.NoError(t, svc.db.Model(user).Update("is_active", false).Error)
	assert.ErrorIs(t, svc.ValidateSession(ctx, user.ID, "jti-1"), ErrAccountDisabled)
}

func TestLogout_RevokesOnlyThatToken(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	user := tests.CreateUser(t, svc.db, "erin", models.UserRoleClient)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return now })

	// A stale entry from an earlier session gets purged.
	require.NoError(t, svc.db.Create(&models.RevokedToken{
		TokenID: "stale", UserID: user.ID, ExpiresAt: now.Add(-time.Hour), CreatedAt: now.Add(-2 * time.Hour),
	}).Error)

	require.NoError(t, svc.Logout(ctx, user.ID, "jti-a", now.Add(time.Hour)))
	require.NoError(t, svc.Logout(ctx, user.ID, "jti-a", now.Add(time.Hour)), "logging out twice is harmless")

	assert.ErrorIs(t, svc.ValidateSession(ctx, user.ID, "jti-a"), ErrTokenRevoked)
	assert.NoError(t, svc.ValidateSession(ctx, user.ID, "jti-b"))

	var count int64
	require.NoError(t, svc.db.Model(&models.RevokedToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	assert.ErrorIs(t, svc.Logout(ctx, user.ID, "", now), ErrInvalidRequest)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	artist := tests.CreateUser(t, svc.db, "frank", models.UserRoleArtist)
	tests.CreateUser(t, svc.db, "grace", models.UserRoleClient)

	name := "Frank Ocean"
	bio := "Writes songs."
	email := "Frank@New.example.com"
	updated, err := svc.UpdateProfile(ctx, artist.ID, &UpdateProfileRequest{FullName: &name, ArtistBio: &bio, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, bio, updated.ArtistBio)
	assert.Equal(t, "frank@new.example.com", updated.Email)
	assert.Equal(t, models.UserRoleArtist, updated.Role)

	taken := "grace@example.com"
	_, err = svc.UpdateProfile(ctx, artist.ID, &UpdateProfileRequest{Email: &taken})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = svc.UpdateProfile(ctx, artist.ID, &UpdateProfileRequest{NewPassword: "Changed456!", CurrentPassword: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.UpdateProfile(ctx, artist.ID, &UpdateProfileRequest{NewPassword: "weak", CurrentPassword: "Secret123!"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.UpdateProfile(ctx, artist.ID, &UpdateProfileRequest{NewPassword: "Changed456!", CurrentPassword: "Secret123!"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &LoginRequest{Email: "frank@new.example.com", Password: "Secret123!"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginRequest{Email: "frank@new.example.com", Password: "Changed456!"})
	assert.NoError(t, err)
}

func TestUpdateProfile_IgnoresBioForClients(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService(t)
	client := tests.CreateUser(t, svc.db, "heidi", models.UserRoleClient)

	bio := "not an artist"
	updated, err := svc.UpdateProfile(ctx, client.ID, &UpdateProfileRequest{ArtistBio: &bio})
	require.NoError(t, err)
	assert.Empty(t, updated.ArtistBio)

	require.NoError(t, svc.db.Model(client).Update("is_active", false).Error)
	_, err = svc.UpdateProfile(ctx, client.ID, &UpdateProfileRequest{ArtistBio: &bio})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}
