package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/vigil/pkg/database"
	"github.com/JaimeStill/vigil/pkg/logger"
	"github.com/JaimeStill/vigil/pkg/pagination"
	"github.com/JaimeStill/vigil/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvVigilEnv             = "VIGIL_ENV"
	EnvVigilShutdownTimeout = "VIGIL_SHUTDOWN_TIMEOUT"
	EnvVigilVersion         = "VIGIL_VERSION"
	EnvVigilDashboardURL    = "VIGIL_DASHBOARD_URL"
)

var databaseEnv = &database.Env{
	URL:             "VIGIL_DB_URL",
	Host:            "VIGIL_DB_HOST",
	Port:            "VIGIL_DB_PORT",
	Name:            "VIGIL_DB_NAME",
	User:            "VIGIL_DB_USER",
	Password:        "VIGIL_DB_PASSWORD",
	SSLMode:         "VIGIL_DB_SSL_MODE",
	MaxOpenConns:    "VIGIL_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "VIGIL_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "VIGIL_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "VIGIL_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "VIGIL_STORAGE_PROVIDER",
	ContainerName:    "VIGIL_STORAGE_CONTAINER_NAME",
	ConnectionString: "VIGIL_STORAGE_CONNECTION_STRING",
	Endpoint:         "VIGIL_STORAGE_ENDPOINT",
	Region:           "VIGIL_STORAGE_REGION",
	AccessKey:        "VIGIL_STORAGE_ACCESS_KEY",
	SecretKey:        "VIGIL_STORAGE_SECRET_KEY",
	UseSSL:           "VIGIL_STORAGE_USE_SSL",
}

var paginationEnv = &pagination.Env{
	DefaultPageSize: "VIGIL_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "VIGIL_PAGINATION_MAX_PAGE_SIZE",
}

var loggingEnv = &logger.Env{
	Level:  "VIGIL_LOG_LEVEL",
	Format: "VIGIL_LOG_FORMAT",
}

// Config is the root configuration for the Vigil service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	Agent           gaconfig.AgentConfig `toml:"-"`
	Logging         logger.Config        `toml:"logging"`
	Pipeline        PipelineConfig       `toml:"pipeline"`
	Queue           QueueConfig          `toml:"queue"`
	Transcription   TranscriptionConfig  `toml:"transcription"`
	Metering        MeteringConfig       `toml:"metering"`
	Alerting        AlertingConfig       `toml:"alerting"`
	Webhook         WebhookConfig        `toml:"webhook"`
	Pagination      pagination.Config    `toml:"pagination"`
	DashboardURL    string               `toml:"dashboard_url"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the VIGIL_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvVigilEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg, err := loadFiles()
	if err != nil {
		return nil, err
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase resolves only the database and logging sections from the
// same files and environment as Load. Operator tools use it so they run
// without the collaborator settings the server requires.
func LoadDatabase() (*database.Config, *logger.Config, error) {
	cfg, err := loadFiles()
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.Database.Finalize(databaseEnv); err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	if err := cfg.Logging.Finalize(loggingEnv); err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	return &cfg.Database, &cfg.Logging, nil
}

func loadFiles() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	return cfg, nil
}

// Parse decodes TOML data into a Config without finalizing it. The
// [agent] table is bound through the go-agents JSON field names.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var raw struct {
		Agent map[string]any `toml:"agent"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if raw.Agent != nil {
		b, err := json.Marshal(raw.Agent)
		if err != nil {
			return nil, fmt.Errorf("parse agent config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg.Agent); err != nil {
			return nil, fmt.Errorf("parse agent config: %w", err)
		}
	}
	return &cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.DashboardURL != "" {
		c.DashboardURL = overlay.DashboardURL
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Agent.Merge(&overlay.Agent)
	c.Logging.Merge(&overlay.Logging)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Queue.Merge(&overlay.Queue)
	c.Transcription.Merge(&overlay.Transcription)
	c.Metering.Merge(&overlay.Metering)
	c.Alerting.Merge(&overlay.Alerting)
	c.Webhook.Merge(&overlay.Webhook)
	c.Pagination.Merge(&overlay.Pagination)
}

// Finalize applies defaults, environment overrides, and validation to
// every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Logging.Finalize(loggingEnv); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Queue.Finalize(); err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	if err := c.Transcription.Finalize(); err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if err := c.Metering.Finalize(); err != nil {
		return fmt.Errorf("metering: %w", err)
	}
	if err := c.Alerting.Finalize(); err != nil {
		return fmt.Errorf("alerting: %w", err)
	}
	if err := c.Webhook.Finalize(); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.DashboardURL == "" {
		c.DashboardURL = "http://localhost:3000"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvVigilShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvVigilVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvVigilDashboardURL); v != "" {
		c.DashboardURL = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return validateURL("dashboard_url", c.DashboardURL, true)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath() string {
	if env := os.Getenv(EnvVigilEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
