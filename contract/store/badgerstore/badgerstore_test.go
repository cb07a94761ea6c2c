package badgerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond_gov/contract/store"
)

func TestBackendPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	b, err := Open(dir)
	require.NoError(t, err)

	tx := store.Begin(b)
	tx.Set("\x10\x01binary-key", "v1")
	tx.Set("gone", "x")
	require.NoError(t, tx.Commit())

	tx = store.Begin(b)
	tx.Delete("gone")
	require.NoError(t, tx.Commit())
	require.NoError(t, b.Close())

	b, err = Open(dir)
	require.NoError(t, err)
	defer b.Close()

	v, err := b.Load("\x10\x01binary-key")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "v1", *v)

	v, err = b.Load("gone")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestInMemoryBackend(t *testing.T) {
	b, err := Open("")
	require.NoError(t, err)
	defer b.Close()

	val := "1"
	require.NoError(t, b.Apply([]store.Change{{Key: "a", Value: &val}}))
	v, err := b.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "1", *v)
}
