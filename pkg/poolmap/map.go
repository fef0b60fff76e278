package poolmap

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/shoalstore/shoal/pkg/errdefs"
)

// Node describes one cluster node participating in a pool.
type Node struct {
	ID      uuid.UUID `json:"id"`
	Address string    `json:"address"`
	Shards  int       `json:"shards"`
}

// Map is a pool's storage layout map: the set of nodes serving the pool and
// the version number the control plane stamped on this layout. This node
// only consults the node set (for group formation) and the version; the
// placement algorithm itself lives in the control plane.
type Map struct {
	Version uint32 `json:"version"`
	Nodes   []Node `json:"nodes"`
}

// Parse decodes a pool map buffer received from the control plane and
// validates it against the advertised version.
func Parse(buf []byte, version uint32) (*Map, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty map buffer: %w", errdefs.ErrInvalidInput)
	}

	var m Map
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("decoding pool map: %w", errdefs.ErrInvalidInput)
	}
	if m.Version != version {
		return nil, fmt.Errorf("map buffer version %d does not match advertised version %d: %w",
			m.Version, version, errdefs.ErrInvalidInput)
	}
	if len(m.Nodes) == 0 {
		return nil, fmt.Errorf("pool map has no nodes: %w", errdefs.ErrInvalidInput)
	}
	return &m, nil
}

// Encode serializes the map into the buffer form Parse accepts.
func (m *Map) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NodeIDs returns the ids of every node in the map.
func (m *Map) NodeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(m.Nodes))
	for i, n := range m.Nodes {
		ids[i] = n.ID
	}
	return ids
}
