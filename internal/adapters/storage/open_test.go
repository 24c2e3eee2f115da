package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/platform/config"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		cfg      config.StorageConfig
		wantName string
		wantErr  bool
	}{
		{name: "memory", cfg: config.StorageConfig{Driver: DriverMemory}, wantName: "badger"},
		{name: "badger", cfg: config.StorageConfig{Driver: DriverBadger, Path: filepath.Join(dir, "b")}, wantName: "badger"},
		{name: "sqlite", cfg: config.StorageConfig{Driver: DriverSQLite, Path: filepath.Join(dir, "q.db")}, wantName: "sqlite"},
		{name: "unknown", cfg: config.StorageConfig{Driver: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := Open(context.Background(), &tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			defer backend.Close()

			assert.Equal(t, tt.wantName, backend.Name())
			require.NoError(t, backend.Set(context.Background(), "k", []byte("v")))
		})
	}
}
