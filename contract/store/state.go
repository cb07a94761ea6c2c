// Package store keeps contract state as a flat string KV, the same shape the
// chain host exposes to wasm contracts.
package store

import (
	"sort"
	"sync"
)

// State is the KV surface every domain package reads and writes through.
type State interface {
	Set(key, value string)
	Get(key string) *string
	Delete(key string)
}

// Change is one entry of a committed write set. A nil Value deletes the key.
type Change struct {
	Key   string
	Value *string
}

// Backend is durable storage underneath a Tx. Apply must be all-or-nothing.
type Backend interface {
	Load(key string) (*string, error)
	Apply(changes []Change) error
	Close() error
}

// MemState is a map-backed State and Backend, used by tests and the in-memory profile.
type MemState struct {
	mu sync.RWMutex
	db map[string]string
}

func NewMemState() *MemState {
	return &MemState{db: make(map[string]string)}
}

func (m *MemState) Set(key, value string) {
	m.mu.Lock()
	m.db[key] = value
	m.mu.Unlock()
}

func (m *MemState) Get(key string) *string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.db[key]
	if !ok {
		return nil
	}
	return &val
}

func (m *MemState) Delete(key string) {
	m.mu.Lock()
	delete(m.db, key)
	m.mu.Unlock()
}

func (m *MemState) Load(key string) (*string, error) {
	return m.Get(key), nil
}

func (m *MemState) Apply(changes []Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range changes {
		if c.Value == nil {
			delete(m.db, c.Key)
			continue
		}
		m.db[c.Key] = *c.Value
	}
	return nil
}

func (m *MemState) Close() error { return nil }

// Len reports the number of stored keys.
func (m *MemState) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.db)
}

// Keys lists every stored key in sorted order.
func (m *MemState) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.db))
	for k := range m.db {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}
