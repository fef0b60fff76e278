/*
Package errdefs defines the error taxonomy shared by the pool control plane.

Every recoverable failure surfaced by the pool cache, handle table, and
request handlers wraps one of the sentinel errors defined here, so that
callers can branch on the class of failure without parsing messages:

	pool, err := cache.LookupOrCreate(id, nil)
	if errdefs.IsNotFound(err) {
	    // pool not open on this node
	}

# Error Classes

  - ErrNotFound: lookup-only operation found no entry; surfaced to callers.
  - ErrExists: exclusive insert hit an existing entry.
  - ErrConflict: reconnect with a different capability set than recorded.
  - ErrInvalidInput: malformed request payload.
  - ErrStorageOpen: the storage engine could not open a shard file; aborts
    pool creation after partial work is rolled back.

Internal-consistency faults (a collective invocation failing where it is
defined to always succeed, a reference count invariant violation) are not
part of this taxonomy: they indicate a logic bug and crash loudly instead of
being converted to a request error.

# Usage

Wrap at the point where context is known, match by class:

	return fmt.Errorf("pool %s: %w", id, errdefs.ErrNotFound)

	if errors.Is(err, errdefs.ErrStorageOpen) { ... }
*/
package errdefs
