package sqlitekv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "quotes.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "quotes/records")
	assert.True(t, domain.IsNotFound(err))

	require.NoError(t, s.Set(ctx, "quotes/records", []byte(`[]`)))
	require.NoError(t, s.Set(ctx, "quotes/records", []byte(`[{"id":"1"}]`)))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "quotes/records")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1"}]`, string(got))

	assert.Equal(t, "sqlite", s.Name())
	assert.NoError(t, s.Check(ctx))
}

func TestStore_ClosedReportsStorageError(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, filepath.Join(t.TempDir(), "q.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Set(ctx, "k", []byte("v"))
	assert.True(t, domain.IsStorage(err))
}
