package target

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoalstore/shoal/pkg/events"
	"github.com/shoalstore/shoal/pkg/executor"
	"github.com/shoalstore/shoal/pkg/group"
	"github.com/shoalstore/shoal/pkg/pool"
	"github.com/shoalstore/shoal/pkg/storage"
	"github.com/shoalstore/shoal/pkg/types"
)

type fixture struct {
	svc    *Service
	cache  *pool.Cache
	table  *pool.HandleTable
	broker *events.Broker
}

func newFixture(t *testing.T, streams int) *fixture {
	t.Helper()

	exec := executor.New(streams)
	exec.Start()
	t.Cleanup(exec.Stop)

	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	resolver, err := storage.NewLocalResolver(t.TempDir())
	require.NoError(t, err)

	cache := pool.NewCache(pool.CacheConfig{
		Executor: exec,
		Engine:   storage.NewBoltEngine(),
		Paths:    resolver,
		Groups:   group.NewLocalService(),
		Broker:   broker,
	})
	table := pool.NewHandleTable(cache)
	t.Cleanup(table.Teardown)

	return &fixture{
		svc:    NewService(cache, table, broker),
		cache:  cache,
		table:  table,
		broker: broker,
	}
}

func TestConnectIsIdempotent(t *testing.T) {
	f := newFixture(t, 2)
	poolID, handleID := uuid.New(), uuid.New()

	req := &types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     handleID,
		Capabilities: types.CapRead,
		MapVersion:   1,
	}

	assert.Equal(t, uint32(0), f.svc.Connect(req).Failed)
	assert.Equal(t, uint32(0), f.svc.Connect(req).Failed)

	// One disconnect fully removes the handle and its only pool reference:
	// the second connect did not create a duplicate entry.
	reply := f.svc.Disconnect(&types.DisconnectRequest{
		PoolID:      poolID,
		HandleCount: 1,
		Handles:     []uuid.UUID{handleID},
	})
	assert.Equal(t, uint32(0), reply.Failed)
	assert.Nil(t, f.cache.Lookup(poolID))
}

func TestConnectConflictingCapabilities(t *testing.T) {
	f := newFixture(t, 2)
	poolID, handleID := uuid.New(), uuid.New()

	reply := f.svc.Connect(&types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     handleID,
		Capabilities: types.CapRead,
		MapVersion:   1,
	})
	require.Equal(t, uint32(0), reply.Failed)

	reply = f.svc.Connect(&types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     handleID,
		Capabilities: types.CapRead | types.CapWrite,
		MapVersion:   1,
	})
	assert.Equal(t, uint32(1), reply.Failed)

	// The existing entry is unmodified: the original capabilities still
	// reconnect cleanly.
	reply = f.svc.Connect(&types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     handleID,
		Capabilities: types.CapRead,
		MapVersion:   1,
	})
	assert.Equal(t, uint32(0), reply.Failed)
}

func TestDisconnectVariants(t *testing.T) {
	f := newFixture(t, 1)
	poolID := uuid.New()

	tests := []struct {
		name   string
		req    *types.DisconnectRequest
		failed uint32
	}{
		{
			name:   "empty list is success",
			req:    &types.DisconnectRequest{PoolID: poolID},
			failed: 0,
		},
		{
			name: "unknown handle is a no-op success",
			req: &types.DisconnectRequest{
				PoolID:      poolID,
				HandleCount: 1,
				Handles:     []uuid.UUID{uuid.New()},
			},
			failed: 0,
		},
		{
			name: "nil list with declared count is invalid",
			req: &types.DisconnectRequest{
				PoolID:      poolID,
				HandleCount: 3,
			},
			failed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.failed, f.svc.Disconnect(tt.req).Failed)
		})
	}
}

func TestUpdateMapPoolNotOpen(t *testing.T) {
	f := newFixture(t, 2)

	reply := f.svc.UpdateMap(&types.UpdateMapRequest{
		PoolID:     uuid.New(),
		MapVersion: 5,
	})
	assert.Equal(t, uint32(1), reply.Failed)
}

func TestUpdateMapAdvancesVersion(t *testing.T) {
	f := newFixture(t, 3)
	poolID := uuid.New()

	reply := f.svc.Connect(&types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     uuid.New(),
		Capabilities: types.CapRead,
		MapVersion:   1,
	})
	require.Equal(t, uint32(0), reply.Failed)

	up := f.svc.UpdateMap(&types.UpdateMapRequest{PoolID: poolID, MapVersion: 4})
	assert.Equal(t, uint32(0), up.Failed)

	p := f.cache.Lookup(poolID)
	require.NotNil(t, p)
	assert.Equal(t, uint32(4), p.MapVersion())
	f.cache.Release(p)
}

func TestConnectDisconnectSequence(t *testing.T) {
	f := newFixture(t, 2)
	poolID, h1 := uuid.New(), uuid.New()

	connect := func(capas types.Capability) uint32 {
		return f.svc.Connect(&types.ConnectRequest{
			PoolID:       poolID,
			HandleID:     h1,
			Capabilities: capas,
			MapVersion:   1,
		}).Failed
	}
	disconnect := func() uint32 {
		return f.svc.Disconnect(&types.DisconnectRequest{
			PoolID:      poolID,
			HandleCount: 1,
			Handles:     []uuid.UUID{h1},
		}).Failed
	}

	assert.Equal(t, uint32(0), connect(types.CapRead))
	assert.Equal(t, uint32(0), connect(types.CapRead), "reconnect with same capabilities")
	assert.Equal(t, uint32(1), connect(types.CapWrite), "reconnect with different capabilities")
	assert.Equal(t, uint32(0), disconnect())
	assert.Equal(t, uint32(0), disconnect(), "already disconnected")
}

func drainEvents(t *testing.T, sub events.Subscriber, n int) []events.EventType {
	t.Helper()
	kinds := make([]events.EventType, 0, n)
	for len(kinds) < n {
		select {
		case ev := <-sub:
			kinds = append(kinds, ev.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out with %d of %d events", len(kinds), n)
		}
	}
	return kinds
}

func TestLifecycleEventsPublished(t *testing.T) {
	f := newFixture(t, 2)
	sub := f.broker.Subscribe()

	poolID, handleID := uuid.New(), uuid.New()

	reply := f.svc.Connect(&types.ConnectRequest{
		PoolID:       poolID,
		HandleID:     handleID,
		Capabilities: types.CapRead,
		MapVersion:   1,
	})
	require.Equal(t, uint32(0), reply.Failed)

	update := f.svc.UpdateMap(&types.UpdateMapRequest{PoolID: poolID, MapVersion: 2})
	require.Equal(t, uint32(0), update.Failed)

	disconnect := f.svc.Disconnect(&types.DisconnectRequest{
		PoolID:      poolID,
		HandleCount: 1,
		Handles:     []uuid.UUID{handleID},
	})
	require.Equal(t, uint32(0), disconnect.Failed)

	assert.Equal(t, []events.EventType{
		events.EventPoolOpened,
		events.EventHandleConnected,
		events.EventMapUpdated,
		events.EventHandleDisconnected,
		events.EventPoolClosed,
	}, drainEvents(t, sub, 5))
}
