package storage_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/pkg/storage"
)

func TestFinalizeDefaultsToAzure(t *testing.T) {
	cfg := storage.Config{ConnectionString: "UseDevelopmentStorage=true"}
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, storage.ProviderAzure, cfg.Provider)
	assert.Equal(t, "recordings", cfg.ContainerName)
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"azure without connection string", storage.Config{Provider: "azure"}, "connection_string"},
		{"s3 without endpoint", storage.Config{Provider: "s3", AccessKey: "a", SecretKey: "b"}, "endpoint"},
		{"s3 without keys", storage.Config{Provider: "s3", Endpoint: "localhost:9000"}, "access_key"},
		{"unknown provider", storage.Config{Provider: "gcs"}, "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFinalizeS3FromEnv(t *testing.T) {
	t.Setenv("TEST_STORAGE_PROVIDER", "s3")
	t.Setenv("TEST_STORAGE_ENDPOINT", "nyc3.digitaloceanspaces.com")
	t.Setenv("TEST_STORAGE_ACCESS_KEY", "key")
	t.Setenv("TEST_STORAGE_SECRET_KEY", "secret")
	t.Setenv("TEST_STORAGE_USE_SSL", "true")

	var cfg storage.Config
	require.NoError(t, cfg.Finalize(&storage.Env{
		Provider:  "TEST_STORAGE_PROVIDER",
		Endpoint:  "TEST_STORAGE_ENDPOINT",
		AccessKey: "TEST_STORAGE_ACCESS_KEY",
		SecretKey: "TEST_STORAGE_SECRET_KEY",
		UseSSL:    "TEST_STORAGE_USE_SSL",
	}))

	assert.Equal(t, storage.ProviderS3, cfg.Provider)
	assert.Equal(t, "nyc3.digitaloceanspaces.com", cfg.Endpoint)
	assert.True(t, cfg.UseSSL)
}

func TestMerge(t *testing.T) {
	cfg := storage.Config{Provider: "azure", ContainerName: "base"}
	cfg.Merge(&storage.Config{ContainerName: "overlay", UseSSL: true})

	assert.Equal(t, "azure", cfg.Provider)
	assert.Equal(t, "overlay", cfg.ContainerName)
	assert.True(t, cfg.UseSSL)
}

func TestMapHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, storage.MapHTTPStatus(storage.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, storage.MapHTTPStatus(storage.ErrInvalidKey))
	assert.Equal(t, http.StatusBadRequest, storage.MapHTTPStatus(storage.ErrEmptyKey))
	assert.Equal(t, http.StatusInternalServerError, storage.MapHTTPStatus(assert.AnError))
}
