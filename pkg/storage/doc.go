/*
Package storage provides the node-local shard storage engine for shoal
pools.

Each pool is striped across the node's execution streams; every (stream,
pool) pair owns exactly one shard file, opened through the Engine interface
and held by that stream's pool child registry entry. The pool control plane
never reads or writes shard contents itself; it only opens and closes
handles as pools come and go.

# Core Components

Engine:
  - Open(path, poolID) returns an open shard Handle
  - Failures wrap errdefs.ErrStorageOpen and abort pool creation

Handle:
  - Put/Get key-value access to the shard
  - Close releases the underlying file
  - Exclusively owned by one (stream, pool) pair; never shared

BoltEngine:
  - BoltDB-backed implementation, one database file per shard
  - Records the owning pool id in a meta bucket and refuses to open a
    file bound to a different pool

LocalResolver:
  - Computes shard file paths under the node data directory:
    <base>/pools/<pool-id>/stream-<n>/<kind>.db

# Usage

	engine := storage.NewBoltEngine()
	resolver, _ := storage.NewLocalResolver("/var/lib/shoal")

	path, _ := resolver.PoolFilePath(poolID, storage.FileKindData, streamID)
	h, err := engine.Open(path, poolID)
	...
	h.Close()

# Integration Points

  - pkg/pool: opens one handle per stream during pool creation, closes it
    when the last reference to the child entry drops
  - cmd/shoal: constructs the engine and resolver from config
*/
package storage
