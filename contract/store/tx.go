package store

import (
	"errors"
	"fmt"
	"sort"
)

var ErrTxClosed = errors.New("store: transaction already closed")

// Tx buffers writes on top of a Backend or a parent Tx. Reads see the buffered
// writes first. A backend read failure is sticky and makes Commit fail.
type Tx struct {
	backend Backend
	parent  *Tx
	writes  map[string]*string
	err     error
	closed  bool
}

// Begin opens a top-level transaction on b.
func Begin(b Backend) *Tx {
	return &Tx{backend: b, writes: make(map[string]*string)}
}

// Child opens a nested transaction whose commit folds into t.
func (t *Tx) Child() *Tx {
	return &Tx{parent: t, writes: make(map[string]*string)}
}

func (t *Tx) Set(key, value string) {
	v := value
	t.writes[key] = &v
}

func (t *Tx) Delete(key string) {
	t.writes[key] = nil
}

func (t *Tx) Get(key string) *string {
	if v, ok := t.writes[key]; ok {
		if v == nil {
			return nil
		}
		out := *v
		return &out
	}
	if t.parent != nil {
		return t.parent.Get(key)
	}
	v, err := t.backend.Load(key)
	if err != nil {
		t.fail(fmt.Errorf("load %q: %w", key, err))
		return nil
	}
	return v
}

func (t *Tx) fail(err error) {
	if t.err == nil {
		t.err = err
	}
	if t.parent != nil {
		t.parent.fail(err)
	}
}

// Err returns the first backend error seen by this transaction.
func (t *Tx) Err() error {
	return t.err
}

// Changes returns the buffered write set sorted by key.
func (t *Tx) Changes() []Change {
	keys := make([]string, 0, len(t.writes))
	for k := range t.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Change, 0, len(keys))
	for _, k := range keys {
		out = append(out, Change{Key: k, Value: t.writes[k]})
	}
	return out
}

// Commit publishes the write set to the parent, or to the backend for a top-level Tx.
func (t *Tx) Commit() error {
	if t.closed {
		return ErrTxClosed
	}
	t.closed = true
	if t.err != nil {
		return t.err
	}
	if t.parent != nil {
		for k, v := range t.writes {
			t.parent.writes[k] = v
		}
		return nil
	}
	if len(t.writes) == 0 {
		return nil
	}
	if err := t.backend.Apply(t.Changes()); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	return nil
}

// Discard drops the write set.
func (t *Tx) Discard() {
	t.closed = true
	t.writes = map[string]*string{}
}
