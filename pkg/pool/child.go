package pool

import (
	"github.com/google/uuid"

	"github.com/shoalstore/shoal/pkg/executor"
	"github.com/shoalstore/shoal/pkg/log"
	"github.com/shoalstore/shoal/pkg/storage"
)

// Child is one execution stream's open shard of a pool: the storage handle
// plus the map version cached on that stream. At most one Child exists per
// (stream, pool) pair. Children are created and removed only through
// collective fan-outs driven by the Cache and are touched exclusively from
// their own stream's goroutine.
type Child struct {
	PoolID uuid.UUID
	Store  storage.Handle

	mapVersion uint32
	ref        int
	linked     bool
}

// MapVersion returns the map version cached on this stream.
func (c *Child) MapVersion() uint32 {
	return c.mapVersion
}

// childRegistry is one stream's pool id to Child mapping. No locking: a
// registry belongs to exactly one stream and is only reached via tasks
// running on that stream.
type childRegistry struct {
	children map[uuid.UUID]*Child
}

func newChildRegistry() *childRegistry {
	return &childRegistry{children: make(map[uuid.UUID]*Child)}
}

// lookup returns the child for id with one reference taken, or nil.
func (r *childRegistry) lookup(id uuid.UUID) *Child {
	child, ok := r.children[id]
	if !ok {
		return nil
	}
	child.ref++
	return child
}

// put drops one reference. At zero the child must already be unlinked from
// the registry; its storage handle is closed and the child is gone.
func (r *childRegistry) put(child *Child) {
	logger := log.WithPoolID(child.PoolID)
	if child.ref <= 0 {
		logger.Panic().
			Int("ref", child.ref).
			Msg("pool child refcount underflow")
	}
	child.ref--
	if child.ref > 0 {
		return
	}
	if child.linked {
		logger.Panic().Msg("freeing pool child still linked in registry")
	}
	logger.Debug().Msg("destroying pool child")
	if err := child.Store.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close shard store")
	}
}

// unlink removes the child from the registry without touching its refcount.
func (r *childRegistry) unlink(child *Child) {
	delete(r.children, child.PoolID)
	child.linked = false
}

// childAddOne runs on one stream via the collective executor to create that
// stream's Child for a pool, opening the matching shard store. A no-op if
// the child already exists.
func (c *Cache) childAddOne(s *executor.Stream, id uuid.UUID, mapVersion uint32) error {
	r := c.registries[s.ID()]

	if child := r.lookup(id); child != nil {
		r.put(child)
		return nil
	}

	log.Logger.Debug().
		Str("pool_id", id.String()).
		Int("stream_id", s.ID()).
		Msg("creating pool child")

	path, err := c.paths.PoolFilePath(id, storage.FileKindData, s.ID())
	if err != nil {
		return err
	}

	store, err := c.engine.Open(path, id)
	if err != nil {
		return err
	}

	r.children[id] = &Child{
		PoolID:     id,
		Store:      store,
		mapVersion: mapVersion,
		ref:        1,
		linked:     true,
	}
	return nil
}

// childDeleteOne runs on one stream via the collective executor to delete
// that stream's Child for a pool. If nothing else references the child, its
// shard store is closed. A no-op if absent.
func (c *Cache) childDeleteOne(s *executor.Stream, id uuid.UUID) error {
	r := c.registries[s.ID()]

	child := r.lookup(id)
	if child == nil {
		return nil
	}

	r.unlink(child)
	r.put(child) // lookup's reference
	r.put(child) // the registry's own reference
	return nil
}

// childUpdateVersion runs on one stream via the collective executor to
// overwrite that stream's cached map version. A stream without a child for
// the pool reports errdefs.ErrNotFound, which the caller treats as an
// internal-consistency fault.
func (c *Cache) childUpdateVersion(s *executor.Stream, id uuid.UUID, version uint32) error {
	r := c.registries[s.ID()]

	child := r.lookup(id)
	if child == nil {
		return errNoChild(id, s.ID())
	}

	log.Logger.Debug().
		Str("pool_id", id.String()).
		Int("stream_id", s.ID()).
		Uint32("from", child.mapVersion).
		Uint32("to", version).
		Msg("changing cached map version")

	child.mapVersion = version
	r.put(child)
	return nil
}

// purgeStream runs at shutdown on one stream to drop every remaining child.
// Anything still holding extra references at this point is a leak.
func (c *Cache) purgeStream(s *executor.Stream) {
	r := c.registries[s.ID()]

	for _, child := range r.children {
		if child.ref != 1 {
			log.Logger.Panic().
				Str("pool_id", child.PoolID.String()).
				Int("stream_id", s.ID()).
				Int("ref", child.ref).
				Msg("pool child leaked at shutdown")
		}
		r.unlink(child)
		r.put(child)
	}
}
