// Package storage selects the object storage backend for uploaded contracts.
package storage

import (
	"context"
	"fmt"

	"contractparser/internal/config"
	"contractparser/internal/port"
	"contractparser/internal/storage/gcs"
	"contractparser/internal/storage/local"
	"contractparser/internal/storage/s3"
)

// New returns the backend named by cfg.Storage.Provider.
func New(ctx context.Context, cfg *config.Config) (port.ObjectStorage, error) {
	switch cfg.Storage.Provider {
	case "", "s3":
		return s3.NewS3Client(ctx, &cfg.S3)
	case "gcs":
		return gcs.NewGCSClient(ctx, &cfg.GCS)
	case "local":
		return local.NewLocalStorage(cfg.Storage.LocalDir), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}
