package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/events"
	"github.com/shoalstore/shoal/pkg/executor"
	"github.com/shoalstore/shoal/pkg/group"
	"github.com/shoalstore/shoal/pkg/log"
	"github.com/shoalstore/shoal/pkg/metrics"
	"github.com/shoalstore/shoal/pkg/poolmap"
	"github.com/shoalstore/shoal/pkg/storage"
)

// CreateArg carries the material needed to open a pool locally: the map
// buffer from the control plane (may be nil), the advertised map version,
// and whether to form the pool's communication group. Requesting a group
// without a map buffer is a caller bug.
type CreateArg struct {
	MapBuf      []byte
	MapVersion  uint32
	CreateGroup bool
}

// CacheConfig wires the Cache's collaborators.
type CacheConfig struct {
	Executor *executor.Executor
	Engine   storage.Engine
	Paths    storage.PathResolver
	Groups   group.Service
	Broker   *events.Broker // optional
}

// Cache is the process-wide, reference-counted pool cache. It is lazily
// populated: the first LookupOrCreate with a CreateArg builds the pool's
// local state, fanning out one Child per execution stream and optionally
// forming the communication group. Entries leave only when their last
// reference is released; there is no size-based eviction, because a pool
// object represents exclusively-owned open storage that must not be closed
// behind its holders' backs.
type Cache struct {
	exec   *executor.Executor
	engine storage.Engine
	paths  storage.PathResolver
	groups group.Service
	broker *events.Broker
	logger zerolog.Logger

	mu    sync.Mutex
	pools map[uuid.UUID]*cacheEntry

	registries []*childRegistry
}

type cacheEntry struct {
	pool *Pool
	ref  int
	err  error

	// ready is closed once creation settles, successfully or not. A failed
	// creation is removed from the map before ready closes.
	ready chan struct{}

	// done is non-nil while destruction is in flight and closed once the
	// entry is fully gone. Creation and destruction of one pool id never
	// overlap: creators wait for done, then retry.
	done chan struct{}
}

// NewCache creates the pool cache with one child registry per execution
// stream.
func NewCache(cfg CacheConfig) *Cache {
	c := &Cache{
		exec:       cfg.Executor,
		engine:     cfg.Engine,
		paths:      cfg.Paths,
		groups:     cfg.Groups,
		broker:     cfg.Broker,
		logger:     log.WithComponent("pool-cache"),
		pools:      make(map[uuid.UUID]*cacheEntry),
		registries: make([]*childRegistry, cfg.Executor.NumStreams()),
	}
	for i := range c.registries {
		c.registries[i] = newChildRegistry()
	}
	return c
}

// LookupOrCreate returns a strong reference to the pool object for id.
//
// With a nil arg this is a pure lookup and reports errdefs.ErrNotFound when
// the pool is not open locally. With a non-nil arg, a miss synchronously
// builds the pool object from the arg; a hit returns the existing object
// and ignores the arg. Concurrent calls for the same id during creation
// observe a single in-flight creation: exactly one caller constructs, the
// rest wait for the outcome.
func (c *Cache) LookupOrCreate(id uuid.UUID, arg *CreateArg) (*Pool, error) {
	if arg != nil && arg.CreateGroup && arg.MapBuf == nil {
		c.logger.Panic().
			Str("pool_id", id.String()).
			Msg("group creation requires a map buffer")
	}

	for {
		c.mu.Lock()
		e, ok := c.pools[id]
		if !ok {
			if arg == nil {
				c.mu.Unlock()
				return nil, fmt.Errorf("pool %s: %w", id, errdefs.ErrNotFound)
			}

			e = &cacheEntry{ref: 1, ready: make(chan struct{})}
			c.pools[id] = e
			c.mu.Unlock()

			metrics.PoolCacheMisses.Inc()
			pool, err := c.create(id, arg)

			c.mu.Lock()
			if err != nil {
				delete(c.pools, id)
			} else {
				e.pool = pool
			}
			e.err = err
			close(e.ready)
			c.mu.Unlock()

			if err != nil {
				c.logger.Error().Err(err).
					Str("pool_id", id.String()).
					Msg("failed to create pool")
				return nil, err
			}
			metrics.PoolsOpen.Inc()
			return pool, nil
		}

		if e.done != nil {
			// Destruction in flight; wait for it to complete, then retry.
			c.mu.Unlock()
			<-e.done
			continue
		}
		c.mu.Unlock()

		<-e.ready
		if e.err != nil {
			// The failed entry has been removed; retry from scratch.
			continue
		}

		c.mu.Lock()
		if c.pools[id] != e || e.done != nil {
			c.mu.Unlock()
			continue
		}
		e.ref++
		c.mu.Unlock()

		metrics.PoolCacheHits.Inc()
		return e.pool, nil
	}
}

// Lookup returns a strong reference to the pool object for id, or nil when
// the pool is not open locally.
func (c *Cache) Lookup(id uuid.UUID) *Pool {
	pool, err := c.LookupOrCreate(id, nil)
	if err != nil {
		return nil
	}
	return pool
}

// Release drops one strong reference. The last release destroys the pool's
// local state: group torn down, every stream's child removed, map released.
func (c *Cache) Release(p *Pool) {
	c.mu.Lock()
	e, ok := c.pools[p.ID]
	if !ok || e.pool != p {
		c.mu.Unlock()
		c.logger.Panic().
			Str("pool_id", p.ID.String()).
			Msg("releasing pool not present in cache")
	}
	if e.ref <= 0 {
		c.mu.Unlock()
		c.logger.Panic().
			Str("pool_id", p.ID.String()).
			Int("ref", e.ref).
			Msg("pool refcount underflow")
	}
	e.ref--
	if e.ref > 0 {
		c.mu.Unlock()
		return
	}
	e.done = make(chan struct{})
	c.mu.Unlock()

	c.destroy(p)

	c.mu.Lock()
	delete(c.pools, p.ID)
	close(e.done)
	c.mu.Unlock()

	metrics.PoolsOpen.Dec()
}

// UpdateChildVersions overwrites every stream's cached map version for the
// pool. The caller has already resolved the pool object, so a stream
// without a child indicates a prior inconsistency and crashes loudly.
func (c *Cache) UpdateChildVersions(id uuid.UUID, version uint32) {
	err := c.collective(func(s *executor.Stream) error {
		return c.childUpdateVersion(s, id, version)
	})
	if err != nil {
		c.logger.Panic().Err(err).
			Str("pool_id", id.String()).
			Msg("stream missing pool child during map update")
	}
}

// Close purges every stream's child registry and logs pools still open.
// Called exactly once at shutdown, after the handle table is gone.
func (c *Cache) Close() {
	err := c.collective(func(s *executor.Stream) error {
		c.purgeStream(s)
		return nil
	})
	if err != nil {
		c.logger.Panic().Err(err).Msg("registry purge failed")
	}

	c.mu.Lock()
	leaked := len(c.pools)
	c.mu.Unlock()
	if leaked > 0 {
		c.logger.Warn().Int("pools", leaked).Msg("pools still referenced at shutdown")
	}
}

func (c *Cache) create(id uuid.UUID, arg *CreateArg) (*Pool, error) {
	c.logger.Debug().Str("pool_id", id.String()).Msg("creating")

	pool := &Pool{ID: id, mapVersion: arg.MapVersion}

	if arg.MapBuf != nil {
		m, err := poolmap.Parse(arg.MapBuf, arg.MapVersion)
		if err != nil {
			return nil, err
		}
		pool.pmap = m
	}

	err := c.collective(func(s *executor.Stream) error {
		return c.childAddOne(s, id, arg.MapVersion)
	})
	if err != nil {
		// Streams that did open their shard must drop it again before the
		// error surfaces.
		c.undoChildAdd(id)
		return nil, err
	}

	if arg.CreateGroup {
		g, err := c.groups.Create(id, pool.pmap)
		if err != nil {
			c.undoChildAdd(id)
			return nil, fmt.Errorf("forming group for pool %s: %w", id, err)
		}
		pool.group = g
	}

	c.publish(events.EventPoolOpened, id, "pool opened")
	return pool, nil
}

func (c *Cache) destroy(p *Pool) {
	c.logger.Debug().Str("pool_id", p.ID.String()).Msg("freeing")

	if g := p.group; g != nil {
		if err := c.groups.Destroy(p.ID, g); err != nil {
			c.logger.Error().Err(err).
				Str("pool_id", p.ID.String()).
				Str("group_id", g.ID).
				Msg("failed to destroy pool group")
		}
	}

	c.undoChildAdd(p.ID)
	c.publish(events.EventPoolClosed, p.ID, "pool closed")
}

// undoChildAdd removes the pool's child from every stream. Child removal is
// defined to always succeed; a failure here is an internal-consistency
// fault.
func (c *Cache) undoChildAdd(id uuid.UUID) {
	err := c.collective(func(s *executor.Stream) error {
		return c.childDeleteOne(s, id)
	})
	if err != nil {
		c.logger.Panic().Err(err).
			Str("pool_id", id.String()).
			Msg("collective child removal failed")
	}
}

func (c *Cache) collective(fn executor.Task) error {
	start := time.Now()
	err := c.exec.Collective(fn)
	metrics.ObserveCollective(time.Since(start))
	return err
}

func (c *Cache) publish(t events.EventType, id uuid.UUID, msg string) {
	if c.broker == nil {
		return
	}
	c.broker.Publish(&events.Event{
		Type:     t,
		Message:  msg,
		Metadata: map[string]string{"pool_id": id.String()},
	})
}

func errNoChild(id uuid.UUID, streamID int) error {
	return fmt.Errorf("stream %d has no child for pool %s: %w", streamID, id, errdefs.ErrNotFound)
}
