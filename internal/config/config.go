package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	API           APIConfig           `yaml:"api"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Google        GoogleConfig        `yaml:"google"`
	Exports       ExportConfig        `yaml:"exports"`
	Storage       StorageConfig       `yaml:"storage"`
	Features      []string            `yaml:"features"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type APIConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type NotificationsConfig struct {
	Enabled          bool   `yaml:"enabled"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	RequestsSpreadsheetID string `yaml:"requests_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type StorageConfig struct {
	AttachmentsPath string `yaml:"attachments_path"`
}

// Feature flags checked by the route guards.
const (
	FeatureExports       = "exports"
	FeatureNotifications = "notifications"
)

func Load(configPath string) (*Config, error) {
	// .env is optional; environment variables referenced from the YAML are
	// expanded before parsing.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Notifications.Enabled && c.Notifications.TelegramBotToken == "" {
		return errors.New("notifications enabled but telegram bot token is missing")
	}

	if c.API.RateLimit.Requests < 0 || c.API.RateLimit.WindowSeconds < 0 {
		return errors.New("rate limit values must not be negative")
	}

	return nil
}

// FeatureEnabled reports whether a feature flag is switched on.
func (c *Config) FeatureEnabled(name string) bool {
	for _, f := range c.Features {
		if f == name {
			return true
		}
	}
	return false
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "alkitu-requests"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.RateLimit.Requests == 0 {
		c.API.RateLimit.Requests = 60
	}
	if c.API.RateLimit.WindowSeconds == 0 {
		c.API.RateLimit.WindowSeconds = 60
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Storage.AttachmentsPath == "" {
		c.Storage.AttachmentsPath = "attachments"
	}
}
