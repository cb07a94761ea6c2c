// Package sqlitestore persists governance state as a single key/value table in SQLite.
package sqlitestore

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"debond_gov/contract/store"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID`

// Backend is a store.Backend over one SQLite file.
type Backend struct {
	sqlDB *sql.DB
}

// Open opens the database file at path and creates the kv table when missing.
func Open(path string) (*Backend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer keeps Apply strictly serial
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}
	return &Backend{sqlDB: sqlDB}, nil
}

func (b *Backend) Load(key string) (*string, error) {
	var val []byte
	err := b.sqlDB.QueryRow(`SELECT value FROM kv WHERE key = ?`, []byte(key)).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select kv: %w", err)
	}
	s := string(val)
	return &s, nil
}

func (b *Backend) Apply(changes []store.Change) (err error) {
	tx, err := b.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, c := range changes {
		if c.Value == nil {
			if _, err = tx.Exec(`DELETE FROM kv WHERE key = ?`, []byte(c.Key)); err != nil {
				return fmt.Errorf("delete kv: %w", err)
			}
			continue
		}
		_, err = tx.Exec(
			`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			[]byte(c.Key), []byte(*c.Value),
		)
		if err != nil {
			return fmt.Errorf("upsert kv: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (b *Backend) Close() error {
	if b == nil || b.sqlDB == nil {
		return nil
	}
	return b.sqlDB.Close()
}
