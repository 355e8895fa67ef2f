package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/whiteboard"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "whiteboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateSchema(context.Background()))
	return s
}

func TestStore_Settings(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	var _ whiteboard.Settings = s

	_, err := s.Get(ctx, whiteboard.SettingKieAPIKey)
	assert.ErrorIs(t, err, whiteboard.ErrSettingNotFound)

	require.NoError(t, s.Set(ctx, whiteboard.SettingKieAPIKey, "first"))
	require.NoError(t, s.Set(ctx, whiteboard.SettingKieAPIKey, "second"))
	require.NoError(t, s.Set(ctx, whiteboard.SettingTheme, whiteboard.ThemeDark))

	v, err := s.Get(ctx, whiteboard.SettingKieAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "second", v)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		whiteboard.SettingKieAPIKey: "second",
		whiteboard.SettingTheme:     whiteboard.ThemeDark,
	}, all)

	require.NoError(t, s.Delete(ctx, whiteboard.SettingKieAPIKey))
	require.NoError(t, s.Delete(ctx, "never-set"))
	_, err = s.Get(ctx, whiteboard.SettingKieAPIKey)
	assert.ErrorIs(t, err, whiteboard.ErrSettingNotFound)
}

func TestStore_SchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.CreateSchema(ctx))
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "whiteboard.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateSchema(ctx))
	require.NoError(t, s.Set(ctx, whiteboard.SettingR2Bucket, "images"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, err := whiteboard.SettingOrEmpty(ctx, s, whiteboard.SettingR2Bucket)
	require.NoError(t, err)
	assert.Equal(t, "images", v)

	v, err = whiteboard.SettingOrEmpty(ctx, s, whiteboard.SettingR2AccountID)
	require.NoError(t, err)
	assert.Empty(t, v)
}
