package storage

import (
	"fmt"
	"io/fs"
	"time"

	"go.etcd.io/bbolt"
)

var blobsBucket = []byte("blobs")

// BoltDB keeps every blob of a vault as a key of one bucket.
type BoltDB struct {
	db *bbolt.DB
}

func OpenBolt(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blobsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("close bolt: %w", err)
	}
	return nil
}

func (b *BoltDB) Blob(name string) *BoltBlob {
	return &BoltBlob{db: b.db, key: []byte(name)}
}

type BoltBlob struct {
	db  *bbolt.DB
	key []byte
}

func (b *BoltBlob) Read() ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blobsBucket).Get(b.key)
		if v == nil {
			return fmt.Errorf("blob %q: %w", b.key, fs.ErrNotExist)
		}
		// v is only valid inside the transaction.
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BoltBlob) Write(data []byte) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blobsBucket).Put(b.key, data)
	})
	if err != nil {
		return fmt.Errorf("write blob %q: %w", b.key, err)
	}
	return nil
}
