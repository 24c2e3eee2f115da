package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quote-sync/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_GetMissingKey(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "quotes/records")

	assert.True(t, domain.IsNotFound(err))
}

func TestStore_SetThenGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "quotes/records", []byte(`[{"id":"1"}]`)))
	require.NoError(t, s.Set(ctx, "quotes/records", []byte(`[{"id":"2"}]`)))

	got, err := s.Get(ctx, "quotes/records")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"2"}]`, string(got))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "quotes/preferences", []byte(`{"autoSync":false}`)))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "quotes/preferences")
	require.NoError(t, err)
	assert.JSONEq(t, `{"autoSync":false}`, string(got))
}

func TestStore_Health(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)

	assert.Equal(t, "badger", s.Name())
	require.NoError(t, s.Check(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Check(context.Background()))
}
