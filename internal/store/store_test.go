package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/feedwarden/internal/config"
	"github.com/rickgao/feedwarden/internal/store/filestore"
	"github.com/rickgao/feedwarden/internal/store/sqlitestore"
)

func TestOpen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("file", func(t *testing.T) {
		s, err := Open(ctx, config.StorageConfig{Backend: config.BackendFile, Path: t.TempDir()}, logger)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &filestore.Store{}, s)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.db")
		s, err := Open(ctx, config.StorageConfig{Backend: config.BackendSQLite, Path: path}, logger)
		require.NoError(t, err)
		defer s.Close()
		assert.IsType(t, &sqlitestore.Store{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Open(ctx, config.StorageConfig{Backend: "redis"}, logger)
		assert.ErrorContains(t, err, "unknown storage backend")
	})
}
