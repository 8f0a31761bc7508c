package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	EnvTranscriptionBaseURL = "VIGIL_TRANSCRIPTION_BASE_URL"
	EnvTranscriptionSecret  = "VIGIL_TRANSCRIPTION_SECRET"

	EnvMeteringBaseURL = "VIGIL_METERING_BASE_URL"
	EnvMeteringAPIKey  = "VIGIL_METERING_API_KEY"
	EnvMeteringTimeout = "VIGIL_METERING_TIMEOUT"

	EnvAlertingSlackWebhookURL = "VIGIL_ALERTING_SLACK_WEBHOOK_URL"
	EnvAlertingTimeout         = "VIGIL_ALERTING_TIMEOUT"

	EnvWebhookTimeout = "VIGIL_WEBHOOK_TIMEOUT"
)

// TranscriptionConfig locates the transcription service.
type TranscriptionConfig struct {
	BaseURL string `toml:"base_url"`
	Secret  string `toml:"secret"`
}

// Finalize applies environment variable overrides and validation.
func (c *TranscriptionConfig) Finalize() error {
	if v := os.Getenv(EnvTranscriptionBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvTranscriptionSecret); v != "" {
		c.Secret = v
	}
	return validateURL("base_url", c.BaseURL, true)
}

// Merge overwrites non-zero fields from overlay.
func (c *TranscriptionConfig) Merge(overlay *TranscriptionConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
}

// MeteringConfig locates the usage metering service. An empty BaseURL
// disables metering.
type MeteringConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Timeout string `toml:"timeout"`
}

func (c *MeteringConfig) Enabled() bool {
	return c.BaseURL != ""
}

func (c *MeteringConfig) TimeoutDuration() time.Duration {
	return duration(c.Timeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MeteringConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	if v := os.Getenv(EnvMeteringBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvMeteringAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvMeteringTimeout); v != "" {
		c.Timeout = v
	}
	if err := validateDurations(map[string]string{"timeout": c.Timeout}); err != nil {
		return err
	}
	return validateURL("base_url", c.BaseURL, false)
}

// Merge overwrites non-zero fields from overlay.
func (c *MeteringConfig) Merge(overlay *MeteringConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

// AlertingConfig routes alert notifications. Owners maps an organization
// id to its Slack-compatible incoming webhook; SlackWebhookURL is used for
// organizations without an entry.
type AlertingConfig struct {
	SlackWebhookURL string            `toml:"slack_webhook_url"`
	Owners          map[string]string `toml:"owners"`
	Timeout         string            `toml:"timeout"`
}

func (c *AlertingConfig) TimeoutDuration() time.Duration {
	return duration(c.Timeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AlertingConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	if c.Owners == nil {
		c.Owners = map[string]string{}
	}
	if v := os.Getenv(EnvAlertingSlackWebhookURL); v != "" {
		c.SlackWebhookURL = v
	}
	if v := os.Getenv(EnvAlertingTimeout); v != "" {
		c.Timeout = v
	}

	if err := validateDurations(map[string]string{"timeout": c.Timeout}); err != nil {
		return err
	}
	if err := validateURL("slack_webhook_url", c.SlackWebhookURL, false); err != nil {
		return err
	}
	for owner, u := range c.Owners {
		if strings.TrimSpace(owner) == "" {
			return fmt.Errorf("owners: empty organization id")
		}
		if err := validateURL("owners."+owner, u, true); err != nil {
			return err
		}
	}
	return nil
}

// Merge overwrites non-zero fields from overlay. Owner routes are merged
// key by key.
func (c *AlertingConfig) Merge(overlay *AlertingConfig) {
	if overlay.SlackWebhookURL != "" {
		c.SlackWebhookURL = overlay.SlackWebhookURL
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if len(overlay.Owners) > 0 && c.Owners == nil {
		c.Owners = make(map[string]string, len(overlay.Owners))
	}
	for k, v := range overlay.Owners {
		c.Owners[k] = v
	}
}

// WebhookConfig bounds producer callbacks.
type WebhookConfig struct {
	Timeout string `toml:"timeout"`
}

func (c *WebhookConfig) TimeoutDuration() time.Duration {
	return duration(c.Timeout)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WebhookConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	if v := os.Getenv(EnvWebhookTimeout); v != "" {
		c.Timeout = v
	}
	return validateDurations(map[string]string{"timeout": c.Timeout})
}

// Merge overwrites non-zero fields from overlay.
func (c *WebhookConfig) Merge(overlay *WebhookConfig) {
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}
