// internal/tests/database.go
package tests

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/database"
	"github.com/javajoker/trackstore-backend/internal/models"
)

// NewTestDB opens a private in-memory SQLite database migrated with the
// production migrations. It is closed when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_") + "_" + uuid.NewString()[:8]
	db, err := database.Initialize(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.RunMigrations(context.Background(), db))
	return db
}

// CreateUser inserts an active user with the password "Secret123!".
func CreateUser(t testing.TB, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("Secret123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateItem inserts an item owned by artist.
func CreateItem(t testing.TB, db *gorm.DB, artist *models.User, price models.Money, status models.ItemStatus) *models.Item {
	t.Helper()

	item := &models.Item{
		ArtistID:        artist.ID,
		Title:           "Track " + uuid.NewString()[:6],
		Genre:           "jazz",
		DurationSeconds: 180,
		FileKey:         "tracks/" + uuid.NewString() + ".mp3",
		ContentType:     "audio/mpeg",
		IsFree:          price.IsZero(),
		Price:           price,
		Status:          status,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}
