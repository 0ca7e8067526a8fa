// internal/database/connection.go
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/trackstore-backend/internal/config"
	"github.com/javajoker/trackstore-backend/internal/models"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         newLogger(cfg.LogLevel),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	// Connect to database
	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)
	}

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", cfg.Driver).Info("Database connection established")
	return db, nil
}

func newLogger(level string) logger.Interface {
	logLevel := logger.Warn
	switch level {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "info":
		logLevel = logger.Info
	}

	return logger.New(logrus.StandardLogger(), logger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  logLevel,
		IgnoreRecordNotFoundError: true,
	})
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

// RunMigrations applies the embedded goose migrations. The same SQL is valid
// on PostgreSQL and SQLite.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	dialect := "postgres"
	if db.Dialector.Name() == "sqlite" {
		dialect = "sqlite3"
	}

	goose.SetBaseFS(migrationFS)
	goose.SetLogger(logrus.StandardLogger())
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logrus.Info("Database migrations completed")
	return nil
}

// SeedInitialData creates the administrator account when none exists.
func SeedInitialData(ctx context.Context, db *gorm.DB, cfg config.AdminConfig) error {
	var adminCount int64
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.UserRoleAdmin).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if adminCount > 0 {
		return nil
	}

	if cfg.Password == "" {
		logrus.Warn("No administrator exists and ADMIN_PASSWORD is empty; skipping admin seed")
		return nil
	}

	admin := &models.User{
		Username: cfg.Username,
		Email:    cfg.Email,
		FullName: "System Administrator",
		Role:     models.UserRoleAdmin,
		IsActive: true,
	}
	if err := admin.SetPassword(cfg.Password); err != nil {
		return fmt.Errorf("failed to set admin password: %w", err)
	}

	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logrus.WithField("email", admin.Email).Info("Default admin user created")
	return nil
}

// WithTransaction runs fn inside a transaction bound to ctx. The transaction
// is committed when fn returns nil and rolled back otherwise, including on panic.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
			logrus.WithError(rbErr).Warn("Transaction rollback failed")
		}
		return err
	}

	return tx.Commit().Error
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
