// Package gcs stores uploaded contracts in Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"contractparser/internal/config"
	"contractparser/internal/domain"
	"contractparser/internal/port"
)

type gcsClient struct {
	client *storage.Client
}

// NewGCSClient creates a GCS-backed ObjectStorage. Without a credentials
// file it falls back to application default credentials.
func NewGCSClient(ctx context.Context, cfg *config.GCSConfig) (port.ObjectStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "creating gcs client")
	}
	return &gcsClient{client: client}, nil
}

func (c *gcsClient) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	obj := c.client.Bucket(input.Bucket).Object(input.Key)
	w := obj.NewWriter(ctx)
	w.ContentType = input.ContentType
	if input.Filename != "" {
		w.Metadata = map[string]string{"original-filename": input.Filename}
	}

	if _, err := io.Copy(w, input.Body); err != nil {
		_ = w.Close()
		return nil, eris.Wrapf(err, "gcs upload %s", input.Key)
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrapf(err, "gcs finalize %s", input.Key)
	}

	attrs := w.Attrs()
	return &port.UploadOutput{
		Location: fmt.Sprintf("gs://%s/%s", input.Bucket, input.Key),
		ETag:     attrs.Etag,
	}, nil
}

func (c *gcsClient) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("gcs download %s: %w", key, domain.ErrNotFound)
		}
		return nil, eris.Wrapf(err, "gcs download %s", key)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrapf(err, "gcs download read %s", key)
	}
	return data, nil
}

func (c *gcsClient) Delete(ctx context.Context, bucket, key string) error {
	err := c.client.Bucket(bucket).Object(key).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return nil
	}
	return eris.Wrapf(err, "gcs delete %s", key)
}

func (c *gcsClient) GetPresignedURL(_ context.Context, bucket, key string, expirySeconds int64) (string, error) {
	u, err := c.client.Bucket(bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(time.Duration(expirySeconds) * time.Second),
		Scheme:  storage.SigningSchemeV4,
	})
	if err != nil {
		return "", eris.Wrapf(err, "gcs sign %s", key)
	}
	return u, nil
}
