package group

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/poolmap"
)

// Group is a live communication group formed for one pool. The transport
// uses it to address collective RPCs at every node serving the pool.
type Group struct {
	ID      string
	Members []uuid.UUID
}

// Service forms and tears down per-pool communication groups. Membership
// comes from the pool map; forming a group for a pool without a map is a
// caller bug.
type Service interface {
	// Create forms the communication group for poolID from the map's node
	// set.
	Create(poolID uuid.UUID, m *poolmap.Map) (*Group, error)

	// Destroy tears down a group previously returned by Create.
	Destroy(poolID uuid.UUID, g *Group) error
}

// LocalService tracks groups in process memory. Cluster membership and
// message delivery belong to the surrounding transport; this service only
// maintains the per-pool group records the pool cache owns.
type LocalService struct {
	mu     sync.Mutex
	groups map[uuid.UUID]*Group
}

// NewLocalService creates an empty group service.
func NewLocalService() *LocalService {
	return &LocalService{groups: make(map[uuid.UUID]*Group)}
}

func (s *LocalService) Create(poolID uuid.UUID, m *poolmap.Map) (*Group, error) {
	if m == nil {
		panic("group: create without pool map")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[poolID]; ok {
		return nil, fmt.Errorf("group for pool %s: %w", poolID, errdefs.ErrExists)
	}

	g := &Group{
		ID:      fmt.Sprintf("shoal-pool-%s", poolID),
		Members: m.NodeIDs(),
	}
	s.groups[poolID] = g
	return g, nil
}

func (s *LocalService) Destroy(poolID uuid.UUID, g *Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.groups[poolID]
	if !ok || existing != g {
		return fmt.Errorf("group %s for pool %s: %w", g.ID, poolID, errdefs.ErrNotFound)
	}
	delete(s.groups, poolID)
	return nil
}
