package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/pkg/logger"
)

func TestFinalizeDefaults(t *testing.T) {
	var cfg logger.Config
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, logger.FormatText, cfg.Format)
}

func TestFinalizeEnvOverride(t *testing.T) {
	t.Setenv("TEST_LOG_LEVEL", "debug")
	t.Setenv("TEST_LOG_FORMAT", "json")

	var cfg logger.Config
	require.NoError(t, cfg.Finalize(&logger.Env{Level: "TEST_LOG_LEVEL", Format: "TEST_LOG_FORMAT"}))

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, logger.FormatJSON, cfg.Format)
}

func TestFinalizeRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  logger.Config
	}{
		{"bad level", logger.Config{Level: "loud", Format: "text"}},
		{"bad format", logger.Config{Level: "info", Format: "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Finalize(nil))
		})
	}
}

func TestMergeOverlay(t *testing.T) {
	cfg := logger.Config{Level: "info", Format: "text"}
	cfg.Merge(&logger.Config{Format: "json"})

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOutput(&logger.Config{Level: "warn", Format: logger.FormatJSON}, &buf)

	log.Info("dropped")
	log.WithField("call_id", "c1").Warn("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "c1", entry["call_id"])
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())
}
