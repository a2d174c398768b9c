// Package storage provides the durable backends a vault persists its two
// blobs to: plain files, a SQLite database or a bbolt database.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

const (
	entriesName = "entries"
	masterName  = "master"
)

// Blob is one durable byte sequence.
type Blob interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// Set holds the two blobs of a vault and whatever must be closed with them.
type Set struct {
	Entries Blob
	Master  Blob
	closer  io.Closer
}

func (s *Set) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Open creates the backend named by backend inside dir.
func Open(backend, dir string) (*Set, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var set *Set
	switch backend {
	case BackendFile, "":
		set = &Set{
			Entries: NewFile(filepath.Join(dir, "entries.pwv")),
			Master:  NewFile(filepath.Join(dir, "master.pwv")),
		}
	case BackendSQLite:
		db, err := OpenSQLite(filepath.Join(dir, "vault.db"))
		if err != nil {
			return nil, err
		}
		set = &Set{Entries: db.Blob(entriesName), Master: db.Blob(masterName), closer: db}
	case BackendBolt:
		db, err := OpenBolt(filepath.Join(dir, "vault.bolt"))
		if err != nil {
			return nil, err
		}
		set = &Set{Entries: db.Blob(entriesName), Master: db.Blob(masterName), closer: db}
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}

	log.Debug().Str("backend", backend).Str("dir", dir).Msg("storage opened")
	return set, nil
}
