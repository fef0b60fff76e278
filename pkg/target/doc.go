/*
Package target implements the pool target service: the request handlers a
node runs for pool connect, disconnect, and map-version updates, plus the
reply aggregators that merge per-node results.

# Handlers

Connect admits a client handle to a pool, opening the pool through the
cache on first use and fanning its shards out to every execution stream.
A repeat connect for the same handle and capabilities is idempotent; the
same handle with different capabilities is a conflict. Disconnect evicts
a batch of handles, skipping ones already gone. UpdateMap moves a resident
pool (and every stream's child) to a new map version; a pool that is not
open locally reports not-found, because it may simply not have been
connected here yet.

Handlers never return their cause to the caller. Each reply carries only a
failure count, zero or one per node, because the fan-out aggregators sum
counts and individual causes would be meaningless after merging. The cause
lands in the node's own log.

# Aggregation

AggregateConnect, AggregateDisconnect, and AggregateUpdateMap each add the
source reply's failure count into the running result. Register wires the
handlers and aggregators into an rpc.Server behind one Serializer.

# Integration Points

  - pkg/pool: cache and handle table backing the handlers
  - pkg/rpc: transport the handlers are registered on
  - pkg/metrics: per-request counters and latency
*/
package target
