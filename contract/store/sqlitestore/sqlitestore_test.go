package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"debond_gov/contract/store"
)

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestBackendRoundTripsBinaryKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gov.db")
	b, err := Open(path)
	require.NoError(t, err)

	tx := store.Begin(b)
	tx.Set("\x20\x01\x00\x00\x00\x00\x00\x00\x00hive:alice", "stake")
	tx.Set("counter", "1")
	require.NoError(t, tx.Commit())

	tx = store.Begin(b)
	tx.Set("counter", "2")
	tx.Delete("\x20\x01\x00\x00\x00\x00\x00\x00\x00hive:alice")
	require.NoError(t, tx.Commit())
	require.NoError(t, b.Close())

	b, err = Open(path)
	require.NoError(t, err)
	defer b.Close()

	v, err := b.Load("counter")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "2", *v)

	v, err = b.Load("\x20\x01\x00\x00\x00\x00\x00\x00\x00hive:alice")
	require.NoError(t, err)
	assert.Nil(t, v)
}
