/*
Package pool implements the per-node lifetime of storage pools and their
connection handles: the process-wide pool cache, the process-wide handle
table, and the per-stream child registries that hold each stream's open
shard of every pool.

# Data Model

Three refcounted structures, ownership flowing downward:

	HandleTable entry ──(strong ref)──▶ Cache entry (Pool)
	Cache entry ──(collective fan-out)──▶ one Child per execution stream
	                                       + optional communication group

Nothing owns a table or cache entry except its refcount. The container
itself holds a non-owning structural link, removed explicitly (Delete, last
Release) before the final free runs.

Child (per stream, per pool):
  - Open shard store, cached map version, refcount
  - At most one per (stream, pool); only touched from its own stream
  - Never observed with refcount 0 while still linked in its registry

Pool (process-wide, per pool):
  - Reader/writer lock, optional parsed map, map version, optional group
  - Creation fans out child creation to every stream; destruction reverses:
    group down, children removed collectively, map released
  - A pool with a live group always has a map

Handle (process-wide, per client connection):
  - Capability set and a strong pool reference
  - Exclusive insert; explicit delete; final free requires unlinked and
    refcount zero

# Concurrency

Creation and destruction of one pool id are serialized by the cache:
concurrent creates collapse into a single creator, and a create never
overlaps a destroy for the same id. Handle entries serialize refcount
transitions per entry; no global lock spans a whole request. Collective
fan-outs through pkg/executor are synchronous barriers.

Failure policy: recoverable failures (shard open error during creation,
duplicate insert) surface as errdefs errors after partial work is rolled
back with a compensating collective removal. Refcount violations and
collective failures on operations defined to always succeed are logic bugs
and panic via the logger.

# Lifecycle

	cache := pool.NewCache(pool.CacheConfig{...})
	table := pool.NewHandleTable(cache)
	...
	table.Teardown() // drops every handle's pool reference
	cache.Close()    // purges each stream's registry

# Integration Points

  - pkg/executor: collective child fan-outs
  - pkg/storage: shard stores opened per (stream, pool)
  - pkg/group: per-pool communication groups
  - pkg/target: connect/disconnect/update-map request handlers
*/
package pool
