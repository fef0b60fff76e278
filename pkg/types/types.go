package types

import (
	"github.com/google/uuid"
)

// Capability is a bitset of permissions granted to a connection handle.
type Capability uint64

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapExclusive
)

// Has reports whether all bits in want are set.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// RequestKind identifies an inbound request type. The transport routes
// requests and registers reply aggregators by kind.
type RequestKind uint8

const (
	KindUnknown RequestKind = iota
	KindConnect
	KindDisconnect
	KindUpdateMap
)

func (k RequestKind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindDisconnect:
		return "disconnect"
	case KindUpdateMap:
		return "update-map"
	default:
		return "unknown"
	}
}

// ConnectRequest asks this node to register a connection handle against a
// pool, opening the pool locally if it is not open yet.
type ConnectRequest struct {
	PoolID       uuid.UUID  `json:"pool_id"`
	HandleID     uuid.UUID  `json:"handle_id"`
	Capabilities Capability `json:"capabilities"`
	MapVersion   uint32     `json:"map_version"`
}

// ConnectReply carries the aggregated failure count for a connect fan-out.
type ConnectReply struct {
	Failed uint32 `json:"failed"`
}

// DisconnectRequest asks this node to drop a set of connection handles.
// HandleCount is the count declared by the sender; a non-zero count with a
// nil handle list is rejected as invalid input.
type DisconnectRequest struct {
	PoolID      uuid.UUID   `json:"pool_id"`
	HandleCount uint64      `json:"handle_count"`
	Handles     []uuid.UUID `json:"handles,omitempty"`
}

// DisconnectReply carries the aggregated failure count for a disconnect
// fan-out.
type DisconnectReply struct {
	Failed uint32 `json:"failed"`
}

// UpdateMapRequest advertises a new pool map version to this node.
type UpdateMapRequest struct {
	PoolID     uuid.UUID `json:"pool_id"`
	MapVersion uint32    `json:"map_version"`
}

// UpdateMapReply carries the aggregated failure count for an update-map
// fan-out.
type UpdateMapReply struct {
	Failed uint32 `json:"failed"`
}
