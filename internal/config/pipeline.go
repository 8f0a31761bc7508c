package config

import (
	"fmt"
	"os"
	"time"

	"github.com/JaimeStill/vigil/pkg/formatting"
)

const (
	EnvPipelineMode             = "VIGIL_PIPELINE_MODE"
	EnvPipelineFallbackDuration = "VIGIL_PIPELINE_FALLBACK_DURATION"
	EnvPipelineTestFileURL      = "VIGIL_PIPELINE_TEST_FILE_URL"
	EnvPipelinePublicURL        = "VIGIL_PIPELINE_PUBLIC_URL"
	EnvPipelineRecordingDomain  = "VIGIL_PIPELINE_RECORDING_DOMAIN"
	EnvPipelineProbeTimeout     = "VIGIL_PIPELINE_PROBE_TIMEOUT"
	EnvPipelineArchiveTimeout   = "VIGIL_PIPELINE_ARCHIVE_TIMEOUT"
	EnvPipelineLLMTimeout       = "VIGIL_PIPELINE_LLM_TIMEOUT"
	EnvPipelineSettleTimeout    = "VIGIL_PIPELINE_SETTLE_TIMEOUT"
	EnvPipelineCallTimeout      = "VIGIL_PIPELINE_CALL_TIMEOUT"
	EnvPipelineMaxRecordingSize = "VIGIL_PIPELINE_MAX_RECORDING_SIZE"
	EnvPipelineTempDir          = "VIGIL_PIPELINE_TEMP_DIR"
)

// Pipeline modes. Development fallbacks apply outside production.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

// PipelineConfig holds stage deadlines and recording handling.
type PipelineConfig struct {
	Mode             string `toml:"mode"`
	FallbackDuration string `toml:"fallback_duration"`
	TestFileURL      string `toml:"test_file_url"`
	// PublicURL roots the archived recording links served by this process.
	PublicURL string `toml:"public_url"`
	// RecordingDomain marks recording URLs whose signature is refreshed
	// before use.
	RecordingDomain  string `toml:"recording_domain"`
	ProbeTimeout     string `toml:"probe_timeout"`
	ArchiveTimeout   string `toml:"archive_timeout"`
	LLMTimeout       string `toml:"llm_timeout"`
	SettleTimeout    string `toml:"settle_timeout"`
	CallTimeout      string `toml:"call_timeout"`
	MaxRecordingSize string `toml:"max_recording_size"`
	TempDir          string `toml:"temp_dir"`
}

func (c *PipelineConfig) IsProduction() bool {
	return c.Mode == ModeProduction
}

// FallbackSeconds returns FallbackDuration in seconds.
func (c *PipelineConfig) FallbackSeconds() float64 {
	return duration(c.FallbackDuration).Seconds()
}

func (c *PipelineConfig) ProbeTimeoutDuration() time.Duration {
	return duration(c.ProbeTimeout)
}

func (c *PipelineConfig) ArchiveTimeoutDuration() time.Duration {
	return duration(c.ArchiveTimeout)
}

func (c *PipelineConfig) LLMTimeoutDuration() time.Duration {
	return duration(c.LLMTimeout)
}

func (c *PipelineConfig) SettleTimeoutDuration() time.Duration {
	return duration(c.SettleTimeout)
}

func (c *PipelineConfig) CallTimeoutDuration() time.Duration {
	return duration(c.CallTimeout)
}

// MaxRecordingBytes returns MaxRecordingSize in bytes.
func (c *PipelineConfig) MaxRecordingBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxRecordingSize)
	if err != nil {
		return 512 * 1024 * 1024
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PipelineConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PipelineConfig) Merge(overlay *PipelineConfig) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.FallbackDuration != "" {
		c.FallbackDuration = overlay.FallbackDuration
	}
	if overlay.TestFileURL != "" {
		c.TestFileURL = overlay.TestFileURL
	}
	if overlay.PublicURL != "" {
		c.PublicURL = overlay.PublicURL
	}
	if overlay.RecordingDomain != "" {
		c.RecordingDomain = overlay.RecordingDomain
	}
	if overlay.ProbeTimeout != "" {
		c.ProbeTimeout = overlay.ProbeTimeout
	}
	if overlay.ArchiveTimeout != "" {
		c.ArchiveTimeout = overlay.ArchiveTimeout
	}
	if overlay.LLMTimeout != "" {
		c.LLMTimeout = overlay.LLMTimeout
	}
	if overlay.SettleTimeout != "" {
		c.SettleTimeout = overlay.SettleTimeout
	}
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
	if overlay.MaxRecordingSize != "" {
		c.MaxRecordingSize = overlay.MaxRecordingSize
	}
	if overlay.TempDir != "" {
		c.TempDir = overlay.TempDir
	}
}

func (c *PipelineConfig) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDevelopment
	}
	if c.FallbackDuration == "" {
		c.FallbackDuration = "120s"
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://localhost:8080"
	}
	if c.ProbeTimeout == "" {
		c.ProbeTimeout = "2m"
	}
	if c.ArchiveTimeout == "" {
		c.ArchiveTimeout = "5m"
	}
	if c.LLMTimeout == "" {
		c.LLMTimeout = "2m"
	}
	if c.SettleTimeout == "" {
		c.SettleTimeout = "30s"
	}
	if c.CallTimeout == "" {
		c.CallTimeout = "15m"
	}
	if c.MaxRecordingSize == "" {
		c.MaxRecordingSize = "512MB"
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
}

func (c *PipelineConfig) loadEnv() {
	if v := os.Getenv(EnvPipelineMode); v != "" {
		c.Mode = v
	}
	if v := os.Getenv(EnvPipelineFallbackDuration); v != "" {
		c.FallbackDuration = v
	}
	if v := os.Getenv(EnvPipelineTestFileURL); v != "" {
		c.TestFileURL = v
	}
	if v := os.Getenv(EnvPipelinePublicURL); v != "" {
		c.PublicURL = v
	}
	if v := os.Getenv(EnvPipelineRecordingDomain); v != "" {
		c.RecordingDomain = v
	}
	if v := os.Getenv(EnvPipelineProbeTimeout); v != "" {
		c.ProbeTimeout = v
	}
	if v := os.Getenv(EnvPipelineArchiveTimeout); v != "" {
		c.ArchiveTimeout = v
	}
	if v := os.Getenv(EnvPipelineLLMTimeout); v != "" {
		c.LLMTimeout = v
	}
	if v := os.Getenv(EnvPipelineSettleTimeout); v != "" {
		c.SettleTimeout = v
	}
	if v := os.Getenv(EnvPipelineCallTimeout); v != "" {
		c.CallTimeout = v
	}
	if v := os.Getenv(EnvPipelineMaxRecordingSize); v != "" {
		c.MaxRecordingSize = v
	}
	if v := os.Getenv(EnvPipelineTempDir); v != "" {
		c.TempDir = v
	}
}

func (c *PipelineConfig) validate() error {
	if c.Mode != ModeDevelopment && c.Mode != ModeProduction {
		return fmt.Errorf("invalid mode: %q", c.Mode)
	}
	if err := validateDurations(map[string]string{
		"fallback_duration": c.FallbackDuration,
		"probe_timeout":     c.ProbeTimeout,
		"archive_timeout":   c.ArchiveTimeout,
		"llm_timeout":       c.LLMTimeout,
		"settle_timeout":    c.SettleTimeout,
		"call_timeout":      c.CallTimeout,
	}); err != nil {
		return err
	}
	if _, err := formatting.ParseBytes(c.MaxRecordingSize); err != nil {
		return fmt.Errorf("invalid max_recording_size: %w", err)
	}
	if err := validateURL("public_url", c.PublicURL, true); err != nil {
		return err
	}
	return validateURL("test_file_url", c.TestFileURL, false)
}
