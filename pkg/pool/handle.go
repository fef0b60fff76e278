package pool

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/log"
	"github.com/shoalstore/shoal/pkg/metrics"
	"github.com/shoalstore/shoal/pkg/types"
)

// Handle is one client connection to a pool: the handle identifier issued
// by the control plane, the capability set it granted, and a strong
// reference to the pool object. Handles are owned by the HandleTable's
// refcounting; deletion is always explicit, never automatic.
type Handle struct {
	ID           uuid.UUID
	Capabilities types.Capability
	Pool         *Pool

	entry *handleEntry
}

// handleEntry pairs a Handle with its refcount and table membership. The
// entry mutex serializes refcount transitions and the linked flag; the
// xsync map serializes insert/find/delete per key.
type handleEntry struct {
	mu     sync.Mutex
	hdl    *Handle
	ref    int
	linked bool
}

// HandleTable is the process-wide table of connection handles. Each linked
// entry holds one strong reference into the pool cache, dropped when the
// entry is finally freed.
type HandleTable struct {
	cache   *Cache
	entries *xsync.MapOf[uuid.UUID, *handleEntry]
	logger  zerolog.Logger
}

// NewHandleTable creates an empty handle table backed by cache.
func NewHandleTable(cache *Cache) *HandleTable {
	return &HandleTable{
		cache:   cache,
		entries: xsync.NewMapOf[uuid.UUID, *handleEntry](),
		logger:  log.WithComponent("handle-table"),
	}
}

// Insert links h into the table with the table's own reference. The insert
// is exclusive: an existing entry for the same identifier fails with
// errdefs.ErrExists. Compatibility checking against an existing entry is
// the caller's job, before calling.
func (t *HandleTable) Insert(h *Handle) error {
	e := &handleEntry{hdl: h, ref: 1, linked: true}
	h.entry = e
	if _, loaded := t.entries.LoadOrStore(h.ID, e); loaded {
		h.entry = nil
		return fmt.Errorf("handle %s: %w", h.ID, errdefs.ErrExists)
	}
	metrics.HandlesLive.Inc()
	return nil
}

// Find returns the handle for id with one reference taken, or nil.
func (t *HandleTable) Find(id uuid.UUID) *Handle {
	e, ok := t.entries.Load(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.linked {
		// Unlinked concurrently; the entry is on its way out.
		return nil
	}
	e.ref++
	return e.hdl
}

// Release drops one reference to h. At zero the entry must already be
// unlinked from the table; its pool reference is released and the handle is
// gone.
func (t *HandleTable) Release(h *Handle) {
	e := h.entry
	if e == nil {
		t.logger.Panic().
			Str("handle_id", h.ID.String()).
			Msg("releasing handle never inserted")
	}

	e.mu.Lock()
	if e.ref <= 0 {
		e.mu.Unlock()
		t.logger.Panic().
			Str("handle_id", h.ID.String()).
			Int("ref", e.ref).
			Msg("handle refcount underflow")
	}
	e.ref--
	last := e.ref == 0
	linked := e.linked
	e.mu.Unlock()

	if !last {
		return
	}
	if linked {
		t.logger.Panic().
			Str("handle_id", h.ID.String()).
			Msg("freeing handle still linked in table")
	}
	t.free(h)
}

// Delete unlinks the handle for id from the table and drops the table's own
// reference; the entry is freed once no other holder remains. The
// identifier must be present.
func (t *HandleTable) Delete(id uuid.UUID) {
	e, ok := t.entries.LoadAndDelete(id)
	if !ok {
		t.logger.Panic().
			Str("handle_id", id.String()).
			Msg("deleting handle not present in table")
	}

	e.mu.Lock()
	e.linked = false
	e.ref--
	last := e.ref == 0
	e.mu.Unlock()

	metrics.HandlesLive.Dec()
	if last {
		t.free(e.hdl)
	}
}

// Teardown force-removes and frees every remaining entry. Process shutdown
// only; outstanding references are logged and dropped.
func (t *HandleTable) Teardown() {
	t.entries.Range(func(id uuid.UUID, _ *handleEntry) bool {
		e, ok := t.entries.LoadAndDelete(id)
		if !ok {
			return true
		}

		e.mu.Lock()
		e.linked = false
		outstanding := e.ref - 1
		e.ref = 0
		e.mu.Unlock()

		if outstanding > 0 {
			t.logger.Warn().
				Str("handle_id", id.String()).
				Int("refs", outstanding).
				Msg("force-freeing handle with outstanding references")
		}
		metrics.HandlesLive.Dec()
		t.free(e.hdl)
		return true
	})
}

func (t *HandleTable) free(h *Handle) {
	logger := log.WithHandleID(h.ID)
	logger.Debug().
		Str("pool_id", h.Pool.ID.String()).
		Msg("freeing")
	t.cache.Release(h.Pool)
}
