package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for datapanel-engine.
// Configuration comes from YAML file (config.yaml) with environment
// variable overrides. Secrets (database password) must only come from
// environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL, the only durable state)
	Database DatabaseConfig `yaml:"database"`

	// Registry display policy
	Registry RegistryConfig `yaml:"registry"`

	// Sync orchestration settings
	Sync SyncConfig `yaml:"sync"`

	// Preview snapshot settings
	Preview PreviewConfig `yaml:"preview"`
}

// DatabaseConfig holds PostgreSQL configuration for the source registry.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"datapanel"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"datapanel_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// RegistryConfig holds display-policy settings for decorated listings.
type RegistryConfig struct {
	// StaleAfterHours is how long a source may go without a successful
	// sync before its status is reported as Error. This is a policy
	// constant, not a health signal: the engine has no live health
	// channel from connectors, only staleness as a proxy.
	StaleAfterHours int `yaml:"stale_after_hours" env:"REGISTRY_STALE_AFTER_HOURS" env-default:"168"`
}

// StaleAfter returns the staleness threshold as a duration.
func (c *RegistryConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterHours) * time.Hour
}

// SyncConfig holds synchronization orchestration settings.
type SyncConfig struct {
	// TimeoutSeconds is the hard cap on a single sync run. The connector
	// call is cancelled and the job fails once it elapses.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"SYNC_TIMEOUT_SECONDS" env-default:"120"`

	// GraceSeconds is how long a finished job stays visible to PollSync
	// before it is discarded and the source id frees up again.
	GraceSeconds int `yaml:"grace_seconds" env:"SYNC_GRACE_SECONDS" env-default:"3"`

	// ProgressCeiling is the maximum progress reported while the
	// connector is still working. 100 is reserved for actual completion.
	ProgressCeiling int `yaml:"progress_ceiling" env:"SYNC_PROGRESS_CEILING" env-default:"90"`

	// ProgressIntervalMs is how often progress advances toward the
	// ceiling while the connector runs.
	ProgressIntervalMs int `yaml:"progress_interval_ms" env:"SYNC_PROGRESS_INTERVAL_MS" env-default:"250"`
}

// Timeout returns the sync timeout as a duration.
func (c *SyncConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Grace returns the display-grace window as a duration.
func (c *SyncConfig) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// ProgressInterval returns the progress tick interval as a duration.
func (c *SyncConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMs) * time.Millisecond
}

// PreviewConfig holds preview snapshot settings.
type PreviewConfig struct {
	// MaxSnapshotRows caps how many rows the snapshot fetcher
	// materializes per source.
	MaxSnapshotRows int `yaml:"max_snapshot_rows" env:"PREVIEW_MAX_SNAPSHOT_ROWS" env-default:"10000"`

	// DefaultRowCount is the window size used when a preview spec omits
	// the count.
	DefaultRowCount int `yaml:"default_row_count" env:"PREVIEW_DEFAULT_ROW_COUNT" env-default:"100"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate rejects settings that would break sync invariants.
func (c *Config) validate() error {
	if c.Sync.TimeoutSeconds <= 0 {
		return fmt.Errorf("sync.timeout_seconds must be positive, got %d", c.Sync.TimeoutSeconds)
	}
	if c.Sync.ProgressCeiling <= 0 || c.Sync.ProgressCeiling >= 100 {
		return fmt.Errorf("sync.progress_ceiling must be in (0,100), got %d", c.Sync.ProgressCeiling)
	}
	if c.Registry.StaleAfterHours <= 0 {
		return fmt.Errorf("registry.stale_after_hours must be positive, got %d", c.Registry.StaleAfterHours)
	}
	if c.Preview.MaxSnapshotRows <= 0 {
		return fmt.Errorf("preview.max_snapshot_rows must be positive, got %d", c.Preview.MaxSnapshotRows)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate and
// database/sql expect it.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}
