package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSQLiteRoundtrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "a", "2")) // upsert
	v, ok := s.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, s.Remove(ctx, "a"))
	_, ok = s.Get(ctx, "a")
	assert.False(t, ok)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "durable", "value"))
	require.NoError(t, s.Close())

	s, err = NewSQLite(path, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	v, ok := s.Get(ctx, "durable")
	require.True(t, ok)
	assert.Equal(t, "value", v)
}

func TestSQLiteClear(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "kv.db"), zap.NewNop())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))
	require.NoError(t, s.Clear(ctx))

	_, ok := s.Get(ctx, "a")
	assert.False(t, ok)
	_, ok = s.Get(ctx, "b")
	assert.False(t, ok)
}
