package storage

import (
	"github.com/google/uuid"
)

// FileKind selects which node-local file of a pool shard a path refers to.
type FileKind string

const (
	FileKindData FileKind = "data"
	FileKindMeta FileKind = "meta"
)

// Handle is an open shard store. A handle is exclusively owned by the
// (execution stream, pool) pair that opened it and is only ever touched
// from that stream's context.
type Handle interface {
	// Put stores a key/value pair in the shard.
	Put(key, value []byte) error

	// Get returns the value stored under key, or errdefs.ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Close closes the shard store. The handle is unusable afterwards.
	Close() error
}

// Engine opens node-local shard stores for pools.
type Engine interface {
	// Open opens (creating if necessary) the shard file at path for the
	// given pool. Failures wrap errdefs.ErrStorageOpen.
	Open(path string, poolID uuid.UUID) (Handle, error)
}

// PathResolver computes node-local file paths for pool shard files.
type PathResolver interface {
	PoolFilePath(poolID uuid.UUID, kind FileKind, streamID int) (string, error)
}
