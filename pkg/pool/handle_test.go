package pool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/types"
)

func newTestHandle(t *testing.T, env *testEnv, table *HandleTable, capas types.Capability) *Handle {
	t.Helper()
	p, err := env.cache.LookupOrCreate(uuid.New(), &CreateArg{MapVersion: 1})
	require.NoError(t, err)
	return &Handle{ID: uuid.New(), Capabilities: capas, Pool: p}
}

func TestInsertIsExclusive(t *testing.T) {
	env := newTestEnv(t, 2)
	table := NewHandleTable(env.cache)

	h := newTestHandle(t, env, table, types.CapRead)
	require.NoError(t, table.Insert(h))

	dup := &Handle{ID: h.ID, Capabilities: types.CapWrite, Pool: h.Pool}
	err := table.Insert(dup)
	assert.ErrorIs(t, err, errdefs.ErrExists)

	table.Delete(h.ID)
}

func TestFindTakesReference(t *testing.T) {
	env := newTestEnv(t, 2)
	table := NewHandleTable(env.cache)

	h := newTestHandle(t, env, table, types.CapRead)
	require.NoError(t, table.Insert(h))

	found := table.Find(h.ID)
	require.NotNil(t, found)
	assert.Same(t, h, found)

	// Unlink the table's reference; the finder's reference keeps the entry
	// alive until released.
	table.Delete(h.ID)
	assert.Nil(t, table.Find(h.ID))

	// Pool still referenced by the handle until the final release.
	require.NotNil(t, env.cache.Lookup(h.Pool.ID))
	env.cache.Release(h.Pool) // drop the lookup's reference

	table.Release(found)
	assert.Nil(t, env.cache.Lookup(h.Pool.ID))
}

func TestFindUnknownHandle(t *testing.T) {
	env := newTestEnv(t, 1)
	table := NewHandleTable(env.cache)
	assert.Nil(t, table.Find(uuid.New()))
}

func TestDeleteUnknownHandlePanics(t *testing.T) {
	env := newTestEnv(t, 1)
	table := NewHandleTable(env.cache)
	assert.Panics(t, func() { table.Delete(uuid.New()) })
}

func TestReleaseWhileLinkedPanics(t *testing.T) {
	env := newTestEnv(t, 1)
	table := NewHandleTable(env.cache)

	h := newTestHandle(t, env, table, types.CapRead)
	require.NoError(t, table.Insert(h))

	// Dropping the table's own reference without unlinking first violates
	// the membership invariant.
	assert.Panics(t, func() { table.Release(h) })
}

func TestTeardownFreesEverything(t *testing.T) {
	env := newTestEnv(t, 2)
	table := NewHandleTable(env.cache)

	h1 := newTestHandle(t, env, table, types.CapRead)
	h2 := newTestHandle(t, env, table, types.CapRead|types.CapWrite)
	require.NoError(t, table.Insert(h1))
	require.NoError(t, table.Insert(h2))

	table.Teardown()

	assert.Nil(t, table.Find(h1.ID))
	assert.Nil(t, table.Find(h2.ID))
	assert.Nil(t, env.cache.Lookup(h1.Pool.ID))
	assert.Nil(t, env.cache.Lookup(h2.Pool.ID))

	// Every shard closed once the handles released their pools.
	opens, closes := env.engine.counts()
	assert.Equal(t, opens, closes)
}
