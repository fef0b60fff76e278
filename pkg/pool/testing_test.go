package pool

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/executor"
	"github.com/shoalstore/shoal/pkg/group"
	"github.com/shoalstore/shoal/pkg/poolmap"
	"github.com/shoalstore/shoal/pkg/storage"
)

// fakeEngine counts opens and closes and can be told to start failing after
// a number of successful opens, to exercise rollback mid-fan-out.
type fakeEngine struct {
	mu        sync.Mutex
	opens     int
	closes    int
	failAfter int // fail every Open once this many succeeded; <0 = never
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{failAfter: -1}
}

func (e *fakeEngine) Open(path string, poolID uuid.UUID) (storage.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failAfter >= 0 && e.opens >= e.failAfter {
		return nil, fmt.Errorf("shard %s: %w", path, errdefs.ErrStorageOpen)
	}
	e.opens++
	return &fakeHandle{engine: e}, nil
}

func (e *fakeEngine) counts() (opens, closes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens, e.closes
}

type fakeHandle struct {
	engine *fakeEngine
	closed bool
}

func (h *fakeHandle) Put(key, value []byte) error { return nil }

func (h *fakeHandle) Get(key []byte) ([]byte, error) { return nil, nil }

func (h *fakeHandle) Close() error {
	h.engine.mu.Lock()
	defer h.engine.mu.Unlock()
	if h.closed {
		return fmt.Errorf("double close")
	}
	h.closed = true
	h.engine.closes++
	return nil
}

type fakePaths struct {
	base string
}

func (p *fakePaths) PoolFilePath(poolID uuid.UUID, kind storage.FileKind, streamID int) (string, error) {
	return filepath.Join(p.base, poolID.String(), fmt.Sprintf("stream-%d", streamID), string(kind)), nil
}

type testEnv struct {
	exec   *executor.Executor
	engine *fakeEngine
	groups *group.LocalService
	cache  *Cache
}

func newTestEnv(t *testing.T, streams int) *testEnv {
	t.Helper()

	exec := executor.New(streams)
	exec.Start()
	t.Cleanup(exec.Stop)

	engine := newFakeEngine()
	groups := group.NewLocalService()
	cache := NewCache(CacheConfig{
		Executor: exec,
		Engine:   engine,
		Paths:    &fakePaths{base: t.TempDir()},
		Groups:   groups,
	})
	return &testEnv{exec: exec, engine: engine, groups: groups, cache: cache}
}

// childVersion reads a stream's cached map version on that stream's own
// goroutine. The second return is false when the stream has no child.
func (env *testEnv) childVersion(t *testing.T, streamID int, poolID uuid.UUID) (uint32, bool) {
	t.Helper()
	var version uint32
	var found bool
	err := env.exec.Run(streamID, func(s *executor.Stream) error {
		r := env.cache.registries[s.ID()]
		if child := r.lookup(poolID); child != nil {
			version = child.MapVersion()
			found = true
			r.put(child)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run on stream %d: %v", streamID, err)
	}
	return version, found
}

func (env *testEnv) mapBuf(t *testing.T, version uint32) []byte {
	t.Helper()
	m := &poolmap.Map{
		Version: version,
		Nodes: []poolmap.Node{
			{ID: uuid.New(), Address: "10.0.0.1:9400", Shards: 2},
			{ID: uuid.New(), Address: "10.0.0.2:9400", Shards: 2},
		},
	}
	buf, err := m.Encode()
	if err != nil {
		t.Fatalf("encoding pool map: %v", err)
	}
	return buf
}

func mustParseMap(t *testing.T, buf []byte, version uint32) *poolmap.Map {
	t.Helper()
	m, err := poolmap.Parse(buf, version)
	if err != nil {
		t.Fatalf("parsing pool map: %v", err)
	}
	return m
}
