package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contractparser/internal/config"
)

func TestNew_Local(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Provider: "local", LocalDir: t.TempDir()}}
	store, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestNew_Unknown(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Provider: "ftp"}}
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "ftp")
}
