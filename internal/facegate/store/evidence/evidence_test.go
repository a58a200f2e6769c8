package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndOpen(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }

	rel, err := s.Save(context.Background(), []byte("jpeg-bytes"), ".JPEG")
	require.NoError(t, err)
	assert.Regexp(t, `^2026/03/04/[0-9a-f-]{36}\.jpeg$`, rel)

	got, err := s.Open(rel)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), got)
}

func TestStore_OpenRejectsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	for _, p := range []string{"../secret", "/etc/passwd", "a/../../b", ""} {
		_, err := s.Open(p)
		assert.ErrorIs(t, err, ErrInvalidPath, p)
	}

	_, err = s.Open("2026/01/01/missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PruneOlderThan(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)
	ctx := context.Background()

	oldRel, err := s.Save(ctx, []byte("old"), "png")
	require.NoError(t, err)
	newRel, err := s.Save(ctx, []byte("new"), "png")
	require.NoError(t, err)

	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(oldRel)), past, past))

	deleted, err := s.PruneOlderThan(ctx, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = s.Open(oldRel)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Open(newRel)
	assert.NoError(t, err)
}

func TestNewStore_RequiresDir(t *testing.T) {
	_, err := NewStore("  ")
	assert.Error(t, err)
}
