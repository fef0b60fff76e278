package pool

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shoalstore/shoal/pkg/group"
	"github.com/shoalstore/shoal/pkg/poolmap"
)

// Pool is the process-wide object for one open pool. It holds the parsed
// pool map (absent when this node only connected without a map buffer), the
// cached map version, and the pool's communication group if one was formed.
// Pools are created and destroyed by the Cache; holders get strong
// references through LookupOrCreate and drop them with Release.
type Pool struct {
	ID uuid.UUID

	mu         sync.RWMutex
	pmap       *poolmap.Map
	mapVersion uint32
	group      *group.Group
}

// MapVersion returns the pool's cached map version.
func (p *Pool) MapVersion() uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mapVersion
}

// SetMapVersion overwrites the pool's cached map version under the writer
// lock and returns the previous value.
func (p *Pool) SetMapVersion(version uint32) uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.mapVersion
	p.mapVersion = version
	return old
}

// Map returns the pool's storage map, or nil if this node never received a
// map buffer for the pool.
func (p *Pool) Map() *poolmap.Map {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pmap
}

// Group returns the pool's communication group, or nil. A non-nil group
// implies a non-nil map: group formation requires one.
func (p *Pool) Group() *group.Group {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.group
}
