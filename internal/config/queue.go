package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvQueueConcurrency   = "VIGIL_QUEUE_CONCURRENCY"
	EnvQueueBatchSize     = "VIGIL_QUEUE_BATCH_SIZE"
	EnvQueueVisibility    = "VIGIL_QUEUE_VISIBILITY"
	EnvQueuePollInterval  = "VIGIL_QUEUE_POLL_INTERVAL"
	EnvQueuePollJitter    = "VIGIL_QUEUE_POLL_JITTER"
	EnvQueueRetryDelay    = "VIGIL_QUEUE_RETRY_DELAY"
	EnvQueueMaxDeliveries = "VIGIL_QUEUE_MAX_DELIVERIES"
	EnvQueueRestartDelay  = "VIGIL_QUEUE_RESTART_DELAY"
)

// QueueConfig holds consumer polling and acknowledgement parameters.
type QueueConfig struct {
	Concurrency   int    `toml:"concurrency"`
	BatchSize     int    `toml:"batch_size"`
	Visibility    string `toml:"visibility"`
	PollInterval  string `toml:"poll_interval"`
	PollJitter    string `toml:"poll_jitter"`
	RetryDelay    string `toml:"retry_delay"`
	MaxDeliveries int    `toml:"max_deliveries"`
	RestartDelay  string `toml:"restart_delay"`
}

func (c *QueueConfig) VisibilityDuration() time.Duration {
	return duration(c.Visibility)
}

func (c *QueueConfig) PollIntervalDuration() time.Duration {
	return duration(c.PollInterval)
}

func (c *QueueConfig) PollJitterDuration() time.Duration {
	return duration(c.PollJitter)
}

func (c *QueueConfig) RetryDelayDuration() time.Duration {
	return duration(c.RetryDelay)
}

func (c *QueueConfig) RestartDelayDuration() time.Duration {
	return duration(c.RestartDelay)
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *QueueConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *QueueConfig) Merge(overlay *QueueConfig) {
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.Visibility != "" {
		c.Visibility = overlay.Visibility
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.PollJitter != "" {
		c.PollJitter = overlay.PollJitter
	}
	if overlay.RetryDelay != "" {
		c.RetryDelay = overlay.RetryDelay
	}
	if overlay.MaxDeliveries != 0 {
		c.MaxDeliveries = overlay.MaxDeliveries
	}
	if overlay.RestartDelay != "" {
		c.RestartDelay = overlay.RestartDelay
	}
}

func (c *QueueConfig) loadDefaults() {
	if c.Concurrency == 0 {
		c.Concurrency = 5
	}
	if c.BatchSize == 0 {
		c.BatchSize = c.Concurrency
	}
	if c.Visibility == "" {
		c.Visibility = "20m"
	}
	if c.PollInterval == "" {
		c.PollInterval = "2s"
	}
	if c.PollJitter == "" {
		c.PollJitter = "250ms"
	}
	if c.RetryDelay == "" {
		c.RetryDelay = "30s"
	}
	if c.MaxDeliveries == 0 {
		c.MaxDeliveries = 5
	}
	if c.RestartDelay == "" {
		c.RestartDelay = "5s"
	}
}

func (c *QueueConfig) loadEnv() {
	setInt := func(envVar string, dst *int) {
		if v := os.Getenv(envVar); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt(EnvQueueConcurrency, &c.Concurrency)
	setInt(EnvQueueBatchSize, &c.BatchSize)
	setInt(EnvQueueMaxDeliveries, &c.MaxDeliveries)

	if v := os.Getenv(EnvQueueVisibility); v != "" {
		c.Visibility = v
	}
	if v := os.Getenv(EnvQueuePollInterval); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv(EnvQueuePollJitter); v != "" {
		c.PollJitter = v
	}
	if v := os.Getenv(EnvQueueRetryDelay); v != "" {
		c.RetryDelay = v
	}
	if v := os.Getenv(EnvQueueRestartDelay); v != "" {
		c.RestartDelay = v
	}
}

func (c *QueueConfig) validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive: %d", c.Concurrency)
	}
	if c.BatchSize < 1 || c.BatchSize > c.Concurrency {
		return fmt.Errorf("batch_size must be between 1 and concurrency: %d", c.BatchSize)
	}
	if c.MaxDeliveries < 1 {
		return fmt.Errorf("max_deliveries must be positive: %d", c.MaxDeliveries)
	}
	if err := validateDurations(map[string]string{
		"visibility":    c.Visibility,
		"poll_interval": c.PollInterval,
		"poll_jitter":   c.PollJitter,
		"retry_delay":   c.RetryDelay,
		"restart_delay": c.RestartDelay,
	}); err != nil {
		return err
	}
	if c.PollIntervalDuration() <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
