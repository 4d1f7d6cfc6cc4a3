package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestStore_HitAndMiss(t *testing.T) {
	s := New(t.TempDir())
	key := Key([]byte("site list"), []byte("cutoff=10"))

	var got entry
	hit, err := s.Get(key, &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, s.Put(key, entry{Name: "a", Value: 1.5}))

	hit, err = s.Get(key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, entry{Name: "a", Value: 1.5}, got)
}

func TestStore_Disabled(t *testing.T) {
	s := New("")
	assert.False(t, s.Enabled())
	require.NoError(t, s.Put(Key([]byte("x")), entry{}))

	hit, err := s.Get(Key([]byte("x")), &entry{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestKey_PartBoundaries(t *testing.T) {
	assert.Equal(t, Key([]byte("ab"), []byte("c")), Key([]byte("ab"), []byte("c")))
	assert.NotEqual(t, Key([]byte("ab"), []byte("c")), Key([]byte("a"), []byte("bc")))
}

func TestFileKey_ChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte("capacity\n1\n"), 0o644))
	k1, err := FileKey(path, "limit=0")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("capacity\n2\n"), 0o644))
	k2, err := FileKey(path, "limit=0")
	require.NoError(t, err)
	k3, err := FileKey(path, "limit=5")
	require.NoError(t, err)

	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k2, k3)
}
