package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestMemStateBasics(t *testing.T) {
	m := NewMemState()
	assert.Nil(t, m.Get("a"))
	m.Set("a", "1")
	require.NotNil(t, m.Get("a"))
	assert.Equal(t, "1", *m.Get("a"))
	m.Delete("a")
	assert.Nil(t, m.Get("a"))
}

func TestTxCommitAppliesWriteSet(t *testing.T) {
	m := NewMemState()
	m.Set("keep", "x")
	m.Set("drop", "y")

	tx := Begin(m)
	tx.Set("new", "z")
	tx.Delete("drop")
	assert.Equal(t, "z", *tx.Get("new"))
	assert.Nil(t, tx.Get("drop"))
	// untouched until commit
	assert.Equal(t, "y", *m.Get("drop"))

	require.NoError(t, tx.Commit())
	assert.Equal(t, "z", *m.Get("new"))
	assert.Nil(t, m.Get("drop"))
	assert.Equal(t, "x", *m.Get("keep"))
	assert.ErrorIs(t, tx.Commit(), ErrTxClosed)
}

func TestTxDiscardLeavesBackendAlone(t *testing.T) {
	m := NewMemState()
	tx := Begin(m)
	tx.Set("a", "1")
	tx.Discard()
	assert.Equal(t, 0, m.Len())
}

func TestChildFoldsIntoParent(t *testing.T) {
	m := NewMemState()
	m.Set("a", "0")
	root := Begin(m)
	root.Set("a", "1")

	child := root.Child()
	assert.Equal(t, "1", *child.Get("a"))
	child.Set("b", "2")
	require.NoError(t, child.Commit())
	assert.Equal(t, "2", *root.Get("b"))

	failed := root.Child()
	failed.Set("c", "3")
	failed.Discard()
	assert.Nil(t, root.Get("c"))

	require.NoError(t, root.Commit())
	assert.Equal(t, []string{"a", "b"}, m.Keys())
}

func TestTxChangesAreSorted(t *testing.T) {
	tx := Begin(NewMemState())
	tx.Set("b", "2")
	tx.Set("a", "1")
	tx.Delete("c")
	changes := tx.Changes()
	require.Len(t, changes, 3)
	assert.Equal(t, "a", changes[0].Key)
	assert.Equal(t, "b", changes[1].Key)
	assert.Equal(t, "c", changes[2].Key)
	assert.Nil(t, changes[2].Value)
}

type brokenBackend struct{ *MemState }

func (brokenBackend) Load(string) (*string, error) { return nil, errors.New("disk gone") }

func TestTxLoadErrorIsSticky(t *testing.T) {
	tx := Begin(brokenBackend{NewMemState()})
	child := tx.Child()
	assert.Nil(t, child.Get("a"))
	assert.Error(t, child.Err())
	assert.Error(t, tx.Err())
	assert.Error(t, tx.Commit())
}

type countingBackend struct {
	*MemState
	loads int
}

func (c *countingBackend) Load(key string) (*string, error) {
	c.loads++
	return c.MemState.Load(key)
}

func TestCachedServesRepeatReads(t *testing.T) {
	inner := &countingBackend{MemState: NewMemState()}
	inner.Set("a", "1")
	c, err := NewCached(inner, 16)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := c.Load("a")
		require.NoError(t, err)
		assert.Equal(t, "1", *v)
	}
	v, err := c.Load("missing")
	require.NoError(t, err)
	assert.Nil(t, v)
	_, _ = c.Load("missing")
	assert.Equal(t, 2, inner.loads)

	require.NoError(t, c.Apply([]Change{{Key: "a", Value: strptr("2")}, {Key: "missing", Value: strptr("x")}}))
	v, _ = c.Load("a")
	assert.Equal(t, "2", *v)
	v, _ = c.Load("missing")
	assert.Equal(t, "x", *v)
	assert.Equal(t, 2, inner.loads)
	assert.Equal(t, 2, c.Stats())
	require.NoError(t, c.Close())
}
