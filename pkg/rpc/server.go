package rpc

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"

	"github.com/shoalstore/shoal/pkg/log"
	"github.com/shoalstore/shoal/pkg/types"
)

// HandlerFunc processes one decoded request body and returns the encoded
// reply body. An error here means the request could not be decoded or
// dispatched at all; handler-level failures travel inside the reply as a
// failure count, never as a transport error.
type HandlerFunc func(body []byte) ([]byte, error)

// AggregatorFunc folds one partial reply (source) into an accumulated reply
// (result) and returns the updated result. One aggregator is registered per
// request kind; the fan-out coordinator applies it when merging per-node
// replies into the single reply the originator sees.
type AggregatorFunc func(source, result []byte) ([]byte, error)

// Server is the framed-TCP request server. Handlers and aggregators are
// registered per request kind before Listen.
type Server struct {
	ser         Serializer
	handlers    *xsync.MapOf[uint8, HandlerFunc]
	aggregators *xsync.MapOf[uint8, AggregatorFunc]
	logger      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	live     map[net.Conn]struct{}
	quit     chan struct{}
	conns    sync.WaitGroup
}

// NewServer creates a server using ser for reply bodies.
func NewServer(ser Serializer) *Server {
	return &Server{
		ser:         ser,
		handlers:    xsync.NewMapOf[uint8, HandlerFunc](),
		aggregators: xsync.NewMapOf[uint8, AggregatorFunc](),
		logger:      log.WithComponent("rpc-server"),
		live:        make(map[net.Conn]struct{}),
		quit:        make(chan struct{}),
	}
}

// RegisterHandler registers the handler for a request kind.
func (s *Server) RegisterHandler(kind types.RequestKind, fn HandlerFunc) {
	s.handlers.Store(uint8(kind), fn)
}

// RegisterAggregator registers the reply aggregator for a request kind.
func (s *Server) RegisterAggregator(kind types.RequestKind, fn AggregatorFunc) {
	s.aggregators.Store(uint8(kind), fn)
}

// Aggregate folds the per-node replies for kind into one reply body using
// the registered aggregator. At least one reply is required.
func (s *Server) Aggregate(kind types.RequestKind, replies [][]byte) ([]byte, error) {
	fn, ok := s.aggregators.Load(uint8(kind))
	if !ok {
		return nil, fmt.Errorf("no aggregator registered for %s", kind)
	}
	if len(replies) == 0 {
		return nil, fmt.Errorf("no replies to aggregate for %s", kind)
	}

	result := replies[0]
	for _, source := range replies[1:] {
		var err error
		result, err = fn(source, result)
		if err != nil {
			return nil, fmt.Errorf("aggregating %s replies: %w", kind, err)
		}
	}
	return result, nil
}

// Listen accepts connections on addr and serves until Stop. It blocks.
func (s *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("serving")

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				s.conns.Wait()
				return nil
			default:
			}
			s.logger.Error().Err(err).Msg("accept error")
			continue
		}
		s.conns.Add(1)
		go s.handleConnection(conn)
	}
}

// Addr returns the bound listen address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every live connection, then waits until all
// in-flight requests have finished. Nothing the handlers depend on may be
// torn down until Stop returns.
func (s *Server) Stop() {
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		return
	default:
	}
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.live {
		conn.Close()
	}
	s.mu.Unlock()

	s.conns.Wait()
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.conns.Done()
	defer conn.Close()

	s.mu.Lock()
	select {
	case <-s.quit:
		// Accepted in the window between Stop closing the listener and
		// the accept loop noticing.
		s.mu.Unlock()
		return
	default:
	}
	s.live[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.live, conn)
		s.mu.Unlock()
	}()

	// Serialize writes; requests on one connection are processed
	// concurrently and reply out of order, matched by request id.
	var writeMu sync.Mutex
	var workers sync.WaitGroup

	for {
		kind, _, requestID, payload, err := readFrame(conn)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Debug().Err(err).Msg("connection closed")
			}
			break
		}

		workers.Add(1)
		go func() {
			defer workers.Done()

			status, reply := s.dispatch(kind, payload)

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := writeFrame(conn, kind, status, requestID, reply); err != nil {
				s.logger.Error().Err(err).Msg("failed to write reply")
			}
		}()
	}

	workers.Wait()
}

func (s *Server) dispatch(kind uint8, payload []byte) (uint8, []byte) {
	fn, ok := s.handlers.Load(kind)
	if !ok {
		s.logger.Error().Uint8("kind", kind).Msg("no handler for request kind")
		return statusError, []byte(fmt.Sprintf("no handler for request kind %d", kind))
	}

	reply, err := fn(payload)
	if err != nil {
		s.logger.Error().Err(err).
			Str("kind", types.RequestKind(kind).String()).
			Msg("request dispatch failed")
		return statusError, []byte(err.Error())
	}
	return statusOK, reply
}
