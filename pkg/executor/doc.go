/*
Package executor provides the node's execution streams and collective
dispatch.

A shoal node hosts one execution stream per local storage shard. Each
stream is a single goroutine consuming a task channel, so everything a
stream owns privately (its pool child registry in pkg/pool) is touched by
exactly one goroutine and needs no locks.

# Collective Dispatch

Collective(fn) runs fn exactly once on every stream and joins all
invocations before returning: a broadcast-and-barrier primitive. The pool
cache uses it to open or close a pool's shard on every stream as part of a
single logical operation, and the update-map handler uses it to refresh
every stream's cached map version.

	err := exec.Collective(func(s *executor.Stream) error {
		return registries[s.ID()].add(poolID, version)
	})

Failure policy is split by call site:

  - Registry add during pool creation may legitimately fail (shard file
    cannot be opened); the caller rolls back with a compensating collective
    removal and surfaces the error.
  - Every other dispatched operation is defined to always succeed; a
    failure there is an internal-consistency fault and the caller crashes
    loudly rather than converting it to a request error.

# Lifecycle

	exec := executor.New(numStreams)
	exec.Start()
	defer exec.Stop()

Start and Stop are called exactly once around the subsystem's active
lifetime; Stop completes in-flight tasks before returning.

# Integration Points

  - pkg/pool: child registry fan-outs and shutdown purge
  - pkg/target: update-map version broadcast
  - cmd/shoal: lifecycle wiring
*/
package executor
