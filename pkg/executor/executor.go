package executor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shoalstore/shoal/pkg/log"
)

// Task is a unit of work executed on one execution stream. The stream
// pointer identifies which stream is running the task; per-stream state
// keyed by Stream.ID() may be touched without locking.
type Task func(s *Stream) error

// Stream is one of the node's parallel execution streams, one per local
// shard. All work submitted to a stream runs serialized on a single
// goroutine, so resources private to a stream never need synchronization.
type Stream struct {
	id    int
	tasks chan *task
}

// ID returns the stream's index in [0, NumStreams).
func (s *Stream) ID() int {
	return s.id
}

type task struct {
	fn       Task
	err      error
	panicked any
	done     chan struct{}
}

// execute runs the task on the stream's goroutine. A panic is captured and
// re-raised on the submitting goroutine, so a crashing task takes down its
// submitter, not the stream.
func (t *task) execute(s *Stream) {
	defer func() {
		if r := recover(); r != nil {
			t.panicked = r
		}
		close(t.done)
	}()
	t.err = t.fn(s)
}

// Executor owns the node's execution streams and provides collective
// dispatch: running one task on every stream with a synchronous join.
type Executor struct {
	streams []*Stream
	wg      sync.WaitGroup
	logger  zerolog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
}

// New creates an executor with n execution streams. n must be at least 1.
func New(n int) *Executor {
	if n < 1 {
		panic(fmt.Sprintf("executor: invalid stream count %d", n))
	}

	e := &Executor{
		streams: make([]*Stream, n),
		logger:  log.WithComponent("executor"),
	}
	for i := range e.streams {
		e.streams[i] = &Stream{
			id:    i,
			tasks: make(chan *task),
		}
	}
	return e
}

// Start launches one goroutine per stream. It must be called exactly once
// before any task is submitted.
func (e *Executor) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		panic("executor: already started")
	}
	e.started = true

	for _, s := range e.streams {
		e.wg.Add(1)
		go e.run(s)
	}
	e.logger.Info().Int("streams", len(e.streams)).Msg("execution streams started")
}

// Stop drains and terminates every stream. Tasks submitted after Stop
// panics the submitter; in-flight tasks complete first.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.mu.Unlock()

	for _, s := range e.streams {
		close(s.tasks)
	}
	e.wg.Wait()
	e.logger.Info().Msg("execution streams stopped")
}

// NumStreams returns the number of execution streams.
func (e *Executor) NumStreams() int {
	return len(e.streams)
}

func (e *Executor) run(s *Stream) {
	defer e.wg.Done()
	logger := log.WithStreamID(s.id)
	logger.Debug().Msg("stream running")
	for t := range s.tasks {
		t.execute(s)
	}
	logger.Debug().Msg("stream drained")
}

// Run executes fn on the given stream and blocks until it completes. A
// panic in fn resumes here.
func (e *Executor) Run(streamID int, fn Task) error {
	if streamID < 0 || streamID >= len(e.streams) {
		return fmt.Errorf("executor: no such stream %d", streamID)
	}
	s := e.streams[streamID]
	t := &task{fn: fn, done: make(chan struct{})}
	s.tasks <- t
	<-t.done
	if t.panicked != nil {
		panic(t.panicked)
	}
	return t.err
}

// Collective executes fn exactly once on every execution stream and blocks
// until all invocations complete. It is a synchronous barrier: no result is
// observed before every stream has finished. The returned error joins the
// failures of all streams; ordering across streams is unspecified. A panic
// on any stream resumes here after the join, so the barrier still holds.
//
// Most call sites dispatch operations that are defined to always succeed
// once resources exist (registry add/remove); those treat a non-nil return
// as an internal-consistency fault and crash loudly. Pool creation is the
// one site where failure is recoverable and rolled back by a compensating
// collective.
func (e *Executor) Collective(fn Task) error {
	pending := make([]*task, len(e.streams))
	for i, s := range e.streams {
		t := &task{fn: fn, done: make(chan struct{})}
		pending[i] = t
		s.tasks <- t
	}

	var errs []error
	var panicked any
	for _, t := range pending {
		<-t.done
		if t.panicked != nil && panicked == nil {
			panicked = t.panicked
		}
		if t.err != nil {
			errs = append(errs, t.err)
		}
	}
	if panicked != nil {
		panic(panicked)
	}
	return errors.Join(errs...)
}
