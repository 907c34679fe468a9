package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestFSStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.jpg", []byte("first")))

	got, err := s.Get(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	exists, err := s.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestFSStoreOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.jpg", []byte("first")))
	require.NoError(t, s.Put(ctx, "a.jpg", []byte("second")))

	got, err := s.Get(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFSStoreMissingKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "nope.jpg"), ErrNotFound)

	exists, err := s.Exists(ctx, "nope.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFSStoreDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.jpg", []byte("data")))
	require.NoError(t, s.Delete(ctx, "a.jpg"))

	exists, err := s.Exists(ctx, "a.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFSStoreListSkipsTempFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a.jpg", []byte("a")))
	require.NoError(t, s.Put(ctx, "b.jpg", []byte("b")))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.ModTime.IsZero())
	}
}
