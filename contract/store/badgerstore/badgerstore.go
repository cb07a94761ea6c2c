// Package badgerstore persists governance state in a badger key-value store.
package badgerstore

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v2"

	"debond_gov/contract/store"
)

// Backend is a store.Backend over a badger DB. Each Apply is one badger update txn.
type Backend struct {
	db *badger.DB
}

// Open opens (or creates) the database under dir. An empty dir keeps everything in memory.
func Open(dir string) (*Backend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Load(key string) (*string, error) {
	var out *string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		s := string(val)
		out = &s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger view: %w", err)
	}
	return out, nil
}

func (b *Backend) Apply(changes []store.Change) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, c := range changes {
			if c.Value == nil {
				if err := txn.Delete([]byte(c.Key)); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set([]byte(c.Key), []byte(*c.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger update: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
