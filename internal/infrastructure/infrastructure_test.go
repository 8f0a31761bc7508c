package infrastructure_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JaimeStill/vigil/internal/config"
	"github.com/JaimeStill/vigil/internal/infrastructure"
	"github.com/JaimeStill/vigil/pkg/database"
	"github.com/JaimeStill/vigil/pkg/logger"
	"github.com/JaimeStill/vigil/pkg/storage"
)

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "vigil",
			User:            "vigil",
			Password:        "vigil",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			Provider:      storage.ProviderS3,
			ContainerName: "recordings",
			Endpoint:      "localhost:9000",
			Region:        "us-east-1",
			AccessKey:     "minio",
			SecretKey:     "minio123",
		},
		Logging: logger.Config{Level: "info", Format: logger.FormatJSON},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	require.NoError(t, err)

	assert.NotNil(t, infra.Lifecycle)
	assert.NotNil(t, infra.Logger)
	assert.NotNil(t, infra.Database)
	assert.NotNil(t, infra.Storage)
	assert.NotNil(t, infra.Database.Connection())
	assert.False(t, infra.Database.Ready())
}

func TestNewUnknownStorageProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Provider = "ftp"

	_, err := infrastructure.New(cfg)
	assert.Error(t, err)
}

func TestReadyRequiresStartup(t *testing.T) {
	infra, err := infrastructure.New(validConfig())
	require.NoError(t, err)

	assert.False(t, infra.Ready())

	infra.Lifecycle.WaitForStartup()
	assert.False(t, infra.Ready(), "database has not been pinged")
}
