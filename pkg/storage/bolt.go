package storage

import (
	"bytes"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/shoalstore/shoal/pkg/errdefs"
)

var (
	// Bucket names
	bucketObjects = []byte("objects")
	bucketMeta    = []byte("meta")

	keyPoolID = []byte("pool_id")
)

// BoltEngine implements Engine using BoltDB, one database file per
// (execution stream, pool) shard.
type BoltEngine struct {
	// OpenTimeout bounds how long Open waits for the file lock. Zero means
	// wait forever.
	OpenTimeout time.Duration
}

// NewBoltEngine creates a BoltDB-backed storage engine.
func NewBoltEngine() *BoltEngine {
	return &BoltEngine{OpenTimeout: 5 * time.Second}
}

// Open opens the shard database at path and binds it to poolID. A file
// previously bound to a different pool is rejected.
func (e *BoltEngine) Open(path string, poolID uuid.UUID) (Handle, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: e.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening shard %s: %v: %w", path, err, errdefs.ErrStorageOpen)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketObjects); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketObjects, err)
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}

		id := poolID[:]
		if existing := meta.Get(keyPoolID); existing != nil {
			if !bytes.Equal(existing, id) {
				return fmt.Errorf("shard belongs to pool %s", uuid.UUID(existing))
			}
			return nil
		}
		return meta.Put(keyPoolID, id)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("binding shard %s to pool %s: %v: %w",
			path, poolID, err, errdefs.ErrStorageOpen)
	}

	return &boltHandle{db: db}, nil
}

// boltHandle wraps an open shard database.
type boltHandle struct {
	db *bolt.DB
}

func (h *boltHandle) Put(key, value []byte) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketObjects).Put(key, value)
	})
}

func (h *boltHandle) Get(key []byte) ([]byte, error) {
	var value []byte
	err := h.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketObjects).Get(key)
		if data == nil {
			return fmt.Errorf("key %q: %w", key, errdefs.ErrNotFound)
		}
		value = make([]byte, len(data))
		copy(value, data)
		return nil
	})
	return value, err
}

func (h *boltHandle) Close() error {
	return h.db.Close()
}
