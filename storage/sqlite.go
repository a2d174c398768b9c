package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	_ "modernc.org/sqlite"
)

const blobSchema = `
CREATE TABLE IF NOT EXISTS blobs (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);`

// SQLiteDB keeps every blob of a vault as a row of one table.
type SQLiteDB struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (and creates if needed) the database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteDB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)",
		dbPath,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(blobSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteDB{db: db, path: dbPath}, nil
}

func (s *SQLiteDB) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// Blob returns the handle of the row called name.
func (s *SQLiteDB) Blob(name string) *SQLiteBlob {
	return &SQLiteBlob{db: s.db, name: name}
}

type SQLiteBlob struct {
	db   *sql.DB
	name string
}

func (b *SQLiteBlob) Read() ([]byte, error) {
	const query = `SELECT data FROM blobs WHERE name = ?`
	var data []byte
	err := b.db.QueryRow(query, b.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("blob %q: %w", b.name, fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", b.name, err)
	}
	return data, nil
}

// Write replaces the row in a single statement; SQLite's journal makes it
// all-or-nothing.
func (b *SQLiteBlob) Write(data []byte) error {
	const query = `INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	if _, err := b.db.Exec(query, b.name, data, time.Now().Unix()); err != nil {
		return fmt.Errorf("write blob %q: %w", b.name, err)
	}
	return nil
}
