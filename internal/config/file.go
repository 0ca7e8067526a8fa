// internal/config/file.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// configFile is the optional YAML overlay. Only non-zero values override the
// environment-derived configuration.
type configFile struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port string `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`
	Database struct {
		Driver     string `yaml:"driver"`
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		Name       string `yaml:"name"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Dependencies struct {
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		S3Bucket     string   `yaml:"s3_bucket"`
		S3Region     string   `yaml:"s3_region"`
	} `yaml:"dependencies"`
	Storage struct {
		Driver    string `yaml:"driver"`
		LocalPath string `yaml:"local_path"`
	} `yaml:"storage"`
	Entitlement struct {
		DefaultCodeExpiryHours int `yaml:"default_code_expiry_hours"`
		MaxDownloads           int `yaml:"max_downloads"`
	} `yaml:"entitlement"`
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&c.Environment, f.Environment)
	setString(&c.Server.Port, f.Server.Port)
	setString(&c.Server.Host, f.Server.Host)
	setString(&c.Database.Driver, f.Database.Driver)
	setString(&c.Database.Host, f.Database.Host)
	setString(&c.Database.Port, f.Database.Port)
	setString(&c.Database.Database, f.Database.Name)
	setString(&c.Database.SQLitePath, f.Database.SQLitePath)
	setString(&c.Redis.URL, f.Dependencies.RedisURL)
	setString(&c.AWS.S3Bucket, f.Dependencies.S3Bucket)
	setString(&c.AWS.Region, f.Dependencies.S3Region)
	setString(&c.Storage.Driver, f.Storage.Driver)
	setString(&c.Storage.LocalPath, f.Storage.LocalPath)
	if len(f.Dependencies.KafkaBrokers) > 0 {
		c.Kafka.Brokers = f.Dependencies.KafkaBrokers
	}
	if f.Entitlement.DefaultCodeExpiryHours > 0 {
		c.Entitlement.DefaultCodeExpiryHours = f.Entitlement.DefaultCodeExpiryHours
	}
	if f.Entitlement.MaxDownloads > 0 {
		c.Entitlement.MaxDownloads = f.Entitlement.MaxDownloads
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
