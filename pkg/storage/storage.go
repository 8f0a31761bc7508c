// Package storage provides object storage for archived call recordings with
// Azure Blob Storage and S3-compatible (MinIO, DigitalOcean Spaces) providers.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/JaimeStill/vigil/pkg/lifecycle"
)

// PresignExpiry is the lifetime of pre-signed GET URLs issued for recordings.
const PresignExpiry = time.Hour

// System manages object storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that ensures the container or bucket exists.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to the object at key with the given content type.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the object at key. The caller must close the reader.
	// Returns ErrNotFound if the object does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key. Returns ErrNotFound if the object does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
	// PresignGet issues a time-limited GET URL for the object at key.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// New creates the storage system selected by cfg.Provider. Clients are
// constructed eagerly but no network call is made until Start.
func New(cfg *Config, logger *logrus.Entry) (System, error) {
	logger = logger.WithFields(logrus.Fields{
		"system":   "storage",
		"provider": cfg.Provider,
	})

	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderS3:
		return newS3(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
