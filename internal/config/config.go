package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither a flag nor PORTAL_CONFIG names a file.
const DefaultConfigPath = "config.yaml"

// Environment overrides.
const (
	envConfigPath  = "PORTAL_CONFIG"
	envDatabaseDSN = "PORTAL_DATABASE_DSN"
	envJWTSecret   = "PORTAL_JWT_SECRET"
	envRedisAddr   = "PORTAL_REDIS_ADDR"
)

// AppConfig carries process-level options resolved from the command line.
type AppConfig struct {
	ConfigPath string
}

// Config is the on-disk configuration file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Points   PointsConfig   `yaml:"points"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig configures the database connection.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	TimeZone     string `yaml:"time-zone"`
	MaxOpenConns int    `yaml:"max-open-conns"`
}

// JWTConfig configures token signing for students and admins.
type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpiryHours int    `yaml:"expiry-hours"`
}

// Expiry returns the token lifetime.
func (c JWTConfig) Expiry() time.Duration {
	if c.ExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ExpiryHours) * time.Hour
}

// RedisConfig configures the optional Redis client. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// PointsConfig holds file-level defaults for the points ledger.
// Values stored in the settings table take precedence at runtime.
type PointsConfig struct {
	AttendReward         int64 `yaml:"attend-reward"`
	MealPhotoReward      int64 `yaml:"meal-photo-reward"`
	ExchangeValidDays    int   `yaml:"exchange-valid-days"` // 0 means one calendar year.
	AuditIntervalSeconds int   `yaml:"audit-interval-seconds"`
}

// ResolveConfigPath picks the config path from the flag value, the environment, or the default.
func ResolveConfigPath(flagValue string) string {
	if trimmed := strings.TrimSpace(flagValue); trimmed != "" {
		return trimmed
	}
	if env := strings.TrimSpace(os.Getenv(envConfigPath)); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads and parses the config file, applying defaults and environment overrides.
// A missing file yields defaults so the portal can boot from the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// DatabaseDSN returns the configured database DSN or an error when none is set.
func (c *Config) DatabaseDSN() (string, error) {
	dsn := strings.TrimSpace(c.Database.DSN)
	if dsn == "" {
		return "", errors.New("config: database.dsn is required")
	}
	return dsn, nil
}

// JWTSettings returns the JWT section, failing when no secret is configured.
func (c *Config) JWTSettings() (JWTConfig, error) {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return JWTConfig{}, errors.New("config: jwt.secret is required")
	}
	return c.JWT, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envDatabaseDSN)); v != "" {
		cfg.Database.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(envJWTSecret)); v != "" {
		cfg.JWT.Secret = v
	}
	if v := strings.TrimSpace(os.Getenv(envRedisAddr)); v != "" {
		cfg.Redis.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.MaxSizeMB <= 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups <= 0 {
		cfg.Logging.MaxBackups = 7
	}
	if cfg.Logging.MaxAgeDays <= 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.Points.AttendReward <= 0 {
		cfg.Points.AttendReward = 10
	}
	if cfg.Points.MealPhotoReward <= 0 {
		cfg.Points.MealPhotoReward = 20
	}
	if cfg.Points.AuditIntervalSeconds <= 0 {
		cfg.Points.AuditIntervalSeconds = 3600
	}
}
