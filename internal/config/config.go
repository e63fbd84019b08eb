package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageBolt     = "bolt"
)

// Config holds the application configuration
type Config struct {
	// GitHub
	GitHubToken  string `yaml:"github_token"`
	GitHubAPIURL string `yaml:"github_api_url"`

	// Mirror
	Account        string        `yaml:"account"`
	MirrorRoot     string        `yaml:"mirror_root"`
	CgitrcPath     string        `yaml:"cgitrc"`
	SkipLargerThan string        `yaml:"skip_larger_than"`
	GitTimeout     time.Duration `yaml:"git_timeout"`
	MirrorRetries  int           `yaml:"mirror_retries"`
	Schedule       string        `yaml:"schedule"`

	// Storage
	StorageType  string `yaml:"storage_type"` // "sqlite", "postgres" or "bolt"
	DatabasePath string `yaml:"database"`
	PostgresURL  string `yaml:"postgres_url"`

	// API Server
	APIPort string `yaml:"api_port"`
	APIHost string `yaml:"api_host"`

	// CLI
	APIEndpoint string `yaml:"api_endpoint"`
	LogLevel    string `yaml:"log_level"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		StorageType: StorageSQLite,
		GitTimeout:  30 * time.Minute,
		Schedule:    "@hourly",
		APIPort:     "8080",
		APIHost:     "localhost",
		APIEndpoint: "http://localhost:8080",
		LogLevel:    "info",
	}
}

// Load loads the configuration from an optional YAML file (MIRROR_CONFIG)
// and environment variables, in that order.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("MIRROR_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the values of a YAML file onto c
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("MIRROR_CONFIG", err.Error())
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperrors.NewConfigError("MIRROR_CONFIG", fmt.Sprintf("unable to parse %s: %v", path, err))
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.GitHubToken, "GITHUB_TOKEN")
	setString(&c.GitHubAPIURL, "GITHUB_API_URL")
	setString(&c.Account, "MIRROR_ACCOUNT")
	setString(&c.MirrorRoot, "MIRROR_ROOT")
	setString(&c.CgitrcPath, "MIRROR_CGITRC")
	setString(&c.SkipLargerThan, "MIRROR_SKIP_LARGER_THAN")
	setString(&c.Schedule, "MIRROR_SCHEDULE")
	setString(&c.StorageType, "STORAGE_TYPE")
	setString(&c.DatabasePath, "MIRROR_DATABASE")
	setString(&c.PostgresURL, "POSTGRES_URL")
	setString(&c.APIPort, "API_PORT")
	setString(&c.APIHost, "API_HOST")
	setString(&c.APIEndpoint, "API_ENDPOINT")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("GIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperrors.NewConfigError("GIT_TIMEOUT", err.Error())
		}
		c.GitTimeout = d
	}
	if v := os.Getenv("MIRROR_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.NewConfigError("MIRROR_RETRIES", err.Error())
		}
		c.MirrorRetries = n
	}
	return nil
}

// setString overwrites dst with the environment variable key when it is set
func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// ParseSize parses a byte count with an optional unit suffix such as "500K"
// or "1.5M". Decimal units are powers of 1000, "KiB"/"MiB" powers of 1024.
func ParseSize(s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, apperrors.NewConfigError("skip-larger-than", fmt.Sprintf("unable to parse size %q", s))
	}
	return n, nil
}

// MaxRepoSize returns the size ceiling in bytes, 0 when none is configured
func (c *Config) MaxRepoSize() (uint64, error) {
	if c.SkipLargerThan == "" {
		return 0, nil
	}
	return ParseSize(c.SkipLargerThan)
}

// ValidateStorage validates the settings needed to open the store
func (c *Config) ValidateStorage() error {
	switch c.StorageType {
	case StorageSQLite, StorageBolt:
		if c.DatabasePath == "" {
			return apperrors.NewConfigError("database", "database path is required")
		}
	case StoragePostgres:
		if c.PostgresURL == "" {
			return apperrors.NewConfigError("POSTGRES_URL", "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'")
		}
	default:
		return apperrors.NewConfigError("STORAGE_TYPE", "must be 'sqlite', 'postgres' or 'bolt'")
	}
	return nil
}

// Validate validates the configuration needed for a mirror run
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.Account == "" {
		return apperrors.NewConfigError("account", "account name is required")
	}
	if c.MirrorRoot == "" {
		return apperrors.NewConfigError("mirror root", "repository parent directory is required")
	}
	if c.CgitrcPath != "" {
		fi, err := os.Stat(c.CgitrcPath)
		if err != nil {
			return apperrors.NewConfigError("cgitrc", err.Error())
		}
		if fi.IsDir() {
			return apperrors.NewConfigError("cgitrc", c.CgitrcPath+" is a directory")
		}
	}
	if c.GitTimeout < 0 {
		return apperrors.NewConfigError("GIT_TIMEOUT", "must not be negative")
	}
	if c.MirrorRetries < 0 {
		return apperrors.NewConfigError("MIRROR_RETRIES", "must not be negative")
	}
	if _, err := c.MaxRepoSize(); err != nil {
		return err
	}
	return nil
}
