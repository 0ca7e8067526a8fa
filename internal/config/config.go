// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Admin       AdminConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	AWS         AWSConfig
	Storage     StorageConfig
	Entitlement EntitlementConfig
	RateLimit   RateLimitConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Driver        string // postgres or sqlite
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	SSLMode       string
	SQLitePath    string
	MaxOpenConns  int
	MaxIdleConns  int
	MaxLifetime   int
	LogLevel      string
	RunMigrations bool
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type AdminConfig struct {
	Email    string
	Username string
	Password string
}

type RedisConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
	Endpoint        string
}

type StorageConfig struct {
	Driver      string // local or s3
	LocalPath   string
	MaxUploadMB int
}

type EntitlementConfig struct {
	DefaultCodeExpiryHours int
	MaxDownloads           int
}

type RateLimitConfig struct {
	GeneralPerSecond int
	GeneralBurst     int
	AuthPerMinute    int
	RedeemPerMinute  int
}

type I18nConfig struct {
	DefaultLocale string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 0), // streams may be long
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "postgres"),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "trackstore"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			SQLitePath:   getEnv("DB_SQLITE_PATH", "trackstore.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),

			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24), // 24 hours
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", "admin@trackstore.local"),
			Username: getEnv("ADMIN_USERNAME", "admin"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvAsSlice("KAFKA_BROKERS", nil),
			TopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", "trackstore."),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "trackstore-audio"),
			Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
		},
		Storage: StorageConfig{
			Driver:      getEnv("STORAGE_DRIVER", "local"),
			LocalPath:   getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			MaxUploadMB: getEnvAsInt("STORAGE_MAX_UPLOAD_MB", 50),
		},
		Entitlement: EntitlementConfig{
			DefaultCodeExpiryHours: getEnvAsInt("CODE_DEFAULT_EXPIRY_HOURS", 24),
			MaxDownloads:           getEnvAsInt("ENTITLEMENT_MAX_DOWNLOADS", 5),
		},
		RateLimit: RateLimitConfig{
			GeneralPerSecond: getEnvAsInt("RATE_LIMIT_GENERAL_PER_SECOND", 10),
			GeneralBurst:     getEnvAsInt("RATE_LIMIT_GENERAL_BURST", 20),
			AuthPerMinute:    getEnvAsInt("RATE_LIMIT_AUTH_PER_MINUTE", 5),
			RedeemPerMinute:  getEnvAsInt("RATE_LIMIT_REDEEM_PER_MINUTE", 10),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "en"),
		},
		Frontend: FrontendConfig{
			BaseURL: getEnv("FRONTEND_BASE_URL", "http://localhost:5173"),
		},
	}

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Storage.Driver != "local" && c.Storage.Driver != "s3" {
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	if c.Entitlement.DefaultCodeExpiryHours <= 0 {
		return fmt.Errorf("default code expiry must be positive")
	}

	if c.Entitlement.MaxDownloads <= 0 {
		return fmt.Errorf("max downloads must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
