/*
Package types defines the shared data types for the shoal control plane.

These are the semantic request and reply shapes exchanged between the
control plane and each node's pool target service, plus the capability
bitset recorded on connection handles. The rpc serializer encodes them for
the wire; the target handlers consume them directly.

# Core Types

Capability:
  - Bitset of permissions granted to a connection handle
  - CapRead, CapWrite, CapExclusive
  - Compared with exact equality on reconnect

RequestKind:
  - Connect, Disconnect, UpdateMap
  - Routes requests through the transport and selects the reply aggregator

Requests and Replies:
  - ConnectRequest / ConnectReply
  - DisconnectRequest / DisconnectReply
  - UpdateMapRequest / UpdateMapReply
  - Every reply carries a single aggregated failure count; per-node error
    detail lives only in server-side logs

# Usage

	req := &types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     handleID,
		Capabilities: types.CapRead | types.CapWrite,
		MapVersion:   1,
	}
*/
package types
