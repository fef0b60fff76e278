package pool

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/events"
	"github.com/shoalstore/shoal/pkg/executor"
	"github.com/shoalstore/shoal/pkg/group"
)

func TestPureLookupMiss(t *testing.T) {
	env := newTestEnv(t, 2)

	_, err := env.cache.LookupOrCreate(uuid.New(), nil)
	assert.ErrorIs(t, err, errdefs.ErrNotFound)
	assert.Nil(t, env.cache.Lookup(uuid.New()))
}

func TestCreateFansOutToEveryStream(t *testing.T) {
	env := newTestEnv(t, 4)
	poolID := uuid.New()

	p, err := env.cache.LookupOrCreate(poolID, &CreateArg{
		MapBuf:      env.mapBuf(t, 7),
		MapVersion:  7,
		CreateGroup: true,
	})
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, uint32(7), p.MapVersion())
	assert.NotNil(t, p.Map())
	assert.NotNil(t, p.Group())

	opens, closes := env.engine.counts()
	assert.Equal(t, 4, opens)
	assert.Equal(t, 0, closes)

	for i := 0; i < 4; i++ {
		version, ok := env.childVersion(t, i, poolID)
		require.True(t, ok, "stream %d has no child", i)
		assert.Equal(t, uint32(7), version)
	}

	env.cache.Release(p)
}

func TestLookupHitIgnoresCreateArg(t *testing.T) {
	env := newTestEnv(t, 2)
	poolID := uuid.New()

	p1, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
	require.NoError(t, err)

	// A hit returns a new reference to the same object; the arg is ignored.
	p2, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 99})
	require.NoError(t, err)
	assert.Same(t, p1, p2)
	assert.Equal(t, uint32(1), p2.MapVersion())

	opens, _ := env.engine.counts()
	assert.Equal(t, 2, opens, "second create must not fan out again")

	env.cache.Release(p1)
	env.cache.Release(p2)
}

func TestReleaseToZeroDestroys(t *testing.T) {
	env := newTestEnv(t, 3)
	poolID := uuid.New()

	p, err := env.cache.LookupOrCreate(poolID, &CreateArg{
		MapBuf:      env.mapBuf(t, 2),
		MapVersion:  2,
		CreateGroup: true,
	})
	require.NoError(t, err)
	g := p.Group()
	require.NotNil(t, g)

	env.cache.Release(p)

	// Children removed on every stream, shards closed, group gone, pool
	// unreachable from the cache.
	opens, closes := env.engine.counts()
	assert.Equal(t, opens, closes)
	for i := 0; i < 3; i++ {
		_, ok := env.childVersion(t, i, poolID)
		assert.False(t, ok, "stream %d still has a child", i)
	}
	assert.ErrorIs(t, env.groups.Destroy(poolID, g), errdefs.ErrNotFound)
	assert.Nil(t, env.cache.Lookup(poolID))
}

func TestConcurrentCreateSingleFlight(t *testing.T) {
	env := newTestEnv(t, 4)
	poolID := uuid.New()

	const callers = 16
	pools := make([]*Pool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			pools[i] = p
		}(i)
	}
	wg.Wait()

	// Exactly one construction, one collective fan-out.
	opens, _ := env.engine.counts()
	assert.Equal(t, 4, opens)
	for i := 1; i < callers; i++ {
		assert.Same(t, pools[0], pools[i])
	}

	for _, p := range pools {
		env.cache.Release(p)
	}
	opens, closes := env.engine.counts()
	assert.Equal(t, opens, closes)
}

func TestCreateRollsBackOnStorageFailure(t *testing.T) {
	env := newTestEnv(t, 4)
	env.engine.failAfter = 2 // two streams open their shard, the rest fail

	poolID := uuid.New()
	_, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrStorageOpen)

	// Compensating removal closed whatever was opened before the failure.
	opens, closes := env.engine.counts()
	assert.Equal(t, opens, closes)
	assert.Nil(t, env.cache.Lookup(poolID))
}

func TestGroupFailureRollsBackChildren(t *testing.T) {
	env := newTestEnv(t, 2)
	poolID := uuid.New()
	buf := env.mapBuf(t, 1)

	// Occupy the pool's group slot so creation's group formation fails.
	blocker, err := env.groups.Create(poolID, mustParseMap(t, buf, 1))
	require.NoError(t, err)

	_, err = env.cache.LookupOrCreate(poolID, &CreateArg{
		MapBuf:      buf,
		MapVersion:  1,
		CreateGroup: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errdefs.ErrExists)

	opens, closes := env.engine.counts()
	assert.Equal(t, opens, closes)
	assert.Nil(t, env.cache.Lookup(poolID))

	require.NoError(t, env.groups.Destroy(poolID, blocker))
}

func TestCreateGroupWithoutMapPanics(t *testing.T) {
	env := newTestEnv(t, 2)
	assert.Panics(t, func() {
		_, _ = env.cache.LookupOrCreate(uuid.New(), &CreateArg{CreateGroup: true})
	})
}

func TestUpdateChildVersions(t *testing.T) {
	env := newTestEnv(t, 3)
	poolID := uuid.New()

	p, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
	require.NoError(t, err)

	env.cache.UpdateChildVersions(poolID, 9)
	for i := 0; i < 3; i++ {
		version, ok := env.childVersion(t, i, poolID)
		require.True(t, ok)
		assert.Equal(t, uint32(9), version)
	}

	env.cache.Release(p)
}

func TestUpdateChildVersionsUnknownPoolPanics(t *testing.T) {
	env := newTestEnv(t, 2)
	assert.Panics(t, func() {
		env.cache.UpdateChildVersions(uuid.New(), 3)
	})
}

func TestReleaseUnderflowPanics(t *testing.T) {
	env := newTestEnv(t, 1)
	poolID := uuid.New()

	p, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
	require.NoError(t, err)

	env.cache.Release(p)
	assert.Panics(t, func() { env.cache.Release(p) })
}

func TestCloseWarnsButPurges(t *testing.T) {
	env := newTestEnv(t, 2)

	p, err := env.cache.LookupOrCreate(uuid.New(), &CreateArg{MapVersion: 1})
	require.NoError(t, err)
	env.cache.Release(p)

	// All pools released; close purges cleanly.
	env.cache.Close()
}

func TestCloseLeakedChildReferencePanics(t *testing.T) {
	env := newTestEnv(t, 2)
	poolID := uuid.New()

	p, err := env.cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
	require.NoError(t, err)
	require.NotNil(t, p)

	// A child reference on stream 0 that nothing ever gives back.
	err = env.exec.Run(0, func(s *executor.Stream) error {
		if child := env.cache.registries[s.ID()].lookup(poolID); child == nil {
			return fmt.Errorf("no child on stream %d", s.ID())
		}
		return nil
	})
	require.NoError(t, err)

	assert.Panics(t, func() { env.cache.Close() })
}

func collectEvents(t *testing.T, sub events.Subscriber, n int) []*events.Event {
	t.Helper()
	collected := make([]*events.Event, 0, n)
	for len(collected) < n {
		select {
		case ev := <-sub:
			collected = append(collected, ev)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out with %d of %d events", len(collected), n)
		}
	}
	return collected
}

func TestPoolLifecycleEventsPublished(t *testing.T) {
	exec := executor.New(2)
	exec.Start()
	t.Cleanup(exec.Stop)

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	sub := broker.Subscribe()

	cache := NewCache(CacheConfig{
		Executor: exec,
		Engine:   newFakeEngine(),
		Paths:    &fakePaths{base: t.TempDir()},
		Groups:   group.NewLocalService(),
		Broker:   broker,
	})

	poolID := uuid.New()
	p, err := cache.LookupOrCreate(poolID, &CreateArg{MapVersion: 1})
	require.NoError(t, err)
	cache.Release(p)

	got := collectEvents(t, sub, 2)
	assert.Equal(t, events.EventPoolOpened, got[0].Type)
	assert.Equal(t, events.EventPoolClosed, got[1].Type)
	for _, ev := range got {
		assert.Equal(t, poolID.String(), ev.Metadata["pool_id"])
		assert.False(t, ev.Timestamp.IsZero())
	}
}
