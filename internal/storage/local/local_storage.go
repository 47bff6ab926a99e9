// Package local stores uploaded contracts on a filesystem. It backs the CLI
// and development setups without cloud credentials.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/afero"

	"contractparser/internal/domain"
	"contractparser/internal/port"
)

type localStorage struct {
	fs afero.Fs
}

// NewLocalStorage stores objects under root on the OS filesystem.
func NewLocalStorage(root string) port.ObjectStorage {
	return NewFromFs(afero.NewBasePathFs(afero.NewOsFs(), root))
}

// NewFromFs stores objects in fsys, for example an afero.MemMapFs in tests.
func NewFromFs(fsys afero.Fs) port.ObjectStorage {
	return &localStorage{fs: fsys}
}

func objectPath(bucket, key string) (string, error) {
	p := path.Join("/", bucket, key)
	if bucket == "" || key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("local storage: invalid object %q/%q", bucket, key)
	}
	return p, nil
}

func (s *localStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	p, err := objectPath(input.Bucket, input.Key)
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("local upload mkdir: %w", err)
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return nil, fmt.Errorf("local upload create: %w", err)
	}
	if _, err := io.Copy(f, input.Body); err != nil {
		f.Close()
		return nil, fmt.Errorf("local upload write: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("local upload close: %w", err)
	}
	return &port.UploadOutput{Location: "file://" + p}, nil
}

func (s *localStorage) Download(_ context.Context, bucket, key string) ([]byte, error) {
	p, err := objectPath(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("local download %s: %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("local download: %w", err)
	}
	return data, nil
}

func (s *localStorage) Delete(_ context.Context, bucket, key string) error {
	p, err := objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete: %w", err)
	}
	return nil
}

func (s *localStorage) GetPresignedURL(context.Context, string, string, int64) (string, error) {
	return "", fmt.Errorf("local storage presigned urls: %w", domain.ErrNotSupported)
}
