package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"
dashboard_url = "https://app.vigil.test"

[server]
port = 8080

[database]
host = "localhost"
name = "vigil"
user = "vigil"

[storage]
provider = "s3"
container_name = "recordings"
endpoint = "localhost:9000"
access_key = "minio"
secret_key = "minio123"

[pipeline]
mode = "production"
recording_domain = "digitaloceanspaces.com"

[queue]
concurrency = 5

[transcription]
base_url = "https://transcribe.vigil.test"
secret = "s3cret"

[alerting]
slack_webhook_url = "https://hooks.slack.test/fallback"

[alerting.owners]
org1 = "https://hooks.slack.test/org1"
`

const overlayConfig = `
[server]
port = 9090

[queue]
concurrency = 8

[alerting.owners]
org2 = "https://hooks.slack.test/org2"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	t.Chdir(dir)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "recordings", cfg.Storage.ContainerName)
	assert.True(t, cfg.Pipeline.IsProduction())
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.ProbeTimeoutDuration())
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.ArchiveTimeoutDuration())
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.LLMTimeoutDuration())
	assert.Equal(t, 120.0, cfg.Pipeline.FallbackSeconds())
	assert.Equal(t, 5, cfg.Queue.Concurrency)
	assert.Equal(t, 5, cfg.Queue.MaxDeliveries)
	assert.Equal(t, 5*time.Second, cfg.Queue.RestartDelayDuration())
	assert.Equal(t, 10*time.Second, cfg.Metering.TimeoutDuration())
	assert.False(t, cfg.Metering.Enabled())
	assert.Equal(t, "https://hooks.slack.test/org1", cfg.Alerting.Owners["org1"])
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	t.Chdir(dir)
	t.Setenv(config.EnvVigilEnv, "staging")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Queue.Concurrency)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Len(t, cfg.Alerting.Owners, 2)
	assert.Equal(t, "staging", cfg.Env())
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, baseConfig)
	t.Chdir(dir)

	t.Setenv(config.EnvVigilVersion, "2.0.0")
	t.Setenv(config.EnvServerPort, "3000")
	t.Setenv(config.EnvQueueMaxDeliveries, "3")
	t.Setenv(config.EnvPipelineProbeTimeout, "45s")
	t.Setenv(config.EnvMeteringBaseURL, "https://billing.vigil.test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.MaxDeliveries)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.ProbeTimeoutDuration())
	assert.True(t, cfg.Metering.Enabled())
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("VIGIL_DB_NAME", "vigil")
	t.Setenv("VIGIL_DB_USER", "vigil")
	t.Setenv("VIGIL_STORAGE_CONNECTION_STRING", "conn")
	t.Setenv(config.EnvTranscriptionBaseURL, "https://transcribe.vigil.test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, config.ModeDevelopment, cfg.Pipeline.Mode)
	assert.Equal(t, "local", cfg.Env())
	assert.Equal(t, int64(512*1024*1024), cfg.Pipeline.MaxRecordingBytes())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		extra string
	}{
		{"missing transcription url", map[string]string{config.EnvTranscriptionBaseURL: ""}, ""},
		{"bad mode", map[string]string{config.EnvPipelineMode: "staging"}, ""},
		{"bad duration", map[string]string{config.EnvQueueRetryDelay: "soon"}, ""},
		{"batch exceeds concurrency", map[string]string{config.EnvQueueBatchSize: "9"}, ""},
		{"bad owner route", nil, "\n[alerting.owners]\norg9 = \"not a url\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			content := `
[database]
name = "vigil"
user = "vigil"

[storage]
connection_string = "conn"
` + tt.extra
			if _, ok := tt.env[config.EnvTranscriptionBaseURL]; !ok {
				content += "\n[transcription]\nbase_url = \"https://transcribe.vigil.test\"\n"
			}
			writeConfig(t, dir, config.BaseConfigFile, content)
			t.Chdir(dir)

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadInvalidToml(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, config.BaseConfigFile, `[server`)
	t.Chdir(dir)

	_, err := config.Load()
	assert.Error(t, err)
}

func TestParseAgentSection(t *testing.T) {
	cfg, err := config.Parse([]byte(`
[agent]
name = "vigil-judge"

[agent.provider]
name = "ollama"
base_url = "http://localhost:11434"

[agent.model]
name = "llama3.1:8b"
`))
	require.NoError(t, err)

	assert.Equal(t, "vigil-judge", cfg.Agent.Name)
	require.NotNil(t, cfg.Agent.Provider)
	assert.Equal(t, "ollama", cfg.Agent.Provider.Name)
	assert.Equal(t, "http://localhost:11434", cfg.Agent.Provider.BaseURL)
	require.NotNil(t, cfg.Agent.Model)
	assert.Equal(t, "llama3.1:8b", cfg.Agent.Model.Name)
}

func TestPaginationDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIGIL_DB_NAME", "vigil")
	t.Setenv("VIGIL_DB_USER", "vigil")
	t.Setenv("VIGIL_STORAGE_CONNECTION_STRING", "conn")
	t.Setenv(config.EnvTranscriptionBaseURL, "https://transcribe.vigil.test")
	t.Setenv("VIGIL_PAGINATION_MAX_PAGE_SIZE", "40")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 40, cfg.Pagination.MaxPageSize)
}

func TestLoadDatabase(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	t.Chdir(dir)
	t.Setenv("VIGIL_DB_HOST", "envhost")

	dbCfg, logCfg, err := config.LoadDatabase()
	require.NoError(t, err)
	assert.Equal(t, "envhost", dbCfg.Host)
	assert.Equal(t, "vigil", dbCfg.Name)
	assert.Equal(t, "postgres://vigil:@envhost:5432/vigil?sslmode=disable", dbCfg.MigrationURL())
	assert.Equal(t, "info", logCfg.Level)
}
