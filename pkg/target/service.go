package target

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shoalstore/shoal/pkg/errdefs"
	"github.com/shoalstore/shoal/pkg/events"
	"github.com/shoalstore/shoal/pkg/log"
	"github.com/shoalstore/shoal/pkg/metrics"
	"github.com/shoalstore/shoal/pkg/pool"
	"github.com/shoalstore/shoal/pkg/types"
)

// Service handles the pool target requests arriving at this node: connect,
// disconnect, and update-map-version. Each handler runs a request to
// completion and produces a reply carrying only a failure count; the
// underlying cause of a failure is logged here, keyed by pool and handle
// identifiers, and never put on the wire.
type Service struct {
	cache  *pool.Cache
	table  *pool.HandleTable
	broker *events.Broker // optional
	logger zerolog.Logger
}

// NewService creates the request handler service. broker may be nil.
func NewService(cache *pool.Cache, table *pool.HandleTable, broker *events.Broker) *Service {
	return &Service{
		cache:  cache,
		table:  table,
		broker: broker,
		logger: log.WithComponent("target"),
	}
}

// Connect registers a connection handle against a pool, opening the pool
// locally on a first connect. Reconnecting with the identical capability
// set is idempotent; a different capability set for an existing handle is a
// conflict.
func (s *Service) Connect(req *types.ConnectRequest) *types.ConnectReply {
	start := time.Now()
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Str("handle_id", req.HandleID.String()).
		Msg("handling connect")

	err := s.connect(req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("pool_id", req.PoolID.String()).
			Str("handle_id", req.HandleID.String()).
			Msg("connect failed")
	}
	metrics.RecordRequest("connect", err != nil, time.Since(start))

	reply := &types.ConnectReply{Failed: failCount(err)}
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Uint32("failed", reply.Failed).
		Msg("replying connect")
	return reply
}

func (s *Service) connect(req *types.ConnectRequest) error {
	if hdl := s.table.Find(req.HandleID); hdl != nil {
		defer s.table.Release(hdl)
		if hdl.Capabilities == req.Capabilities {
			s.logger.Debug().
				Str("pool_id", req.PoolID.String()).
				Str("handle_id", req.HandleID.String()).
				Uint64("capabilities", uint64(hdl.Capabilities)).
				Msg("found compatible pool handle")
			return nil
		}
		return fmt.Errorf("handle %s has capabilities %#x, requested %#x: %w",
			req.HandleID, uint64(hdl.Capabilities), uint64(req.Capabilities), errdefs.ErrConflict)
	}

	p, err := s.cache.LookupOrCreate(req.PoolID, &pool.CreateArg{MapVersion: req.MapVersion})
	if err != nil {
		return err
	}

	hdl := &pool.Handle{
		ID:           req.HandleID,
		Capabilities: req.Capabilities,
		Pool:         p,
	}
	if err := s.table.Insert(hdl); err != nil {
		s.cache.Release(p)
		return err
	}

	s.publish(events.EventHandleConnected, req.PoolID, req.HandleID, "handle connected")
	return nil
}

// Disconnect drops a set of connection handles. Unknown handle identifiers
// are skipped: disconnecting an already disconnected handle is success. An
// empty set is success; a nil set with non-zero declared count is invalid
// input.
func (s *Service) Disconnect(req *types.DisconnectRequest) *types.DisconnectReply {
	start := time.Now()
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Uint64("handles", req.HandleCount).
		Msg("handling disconnect")

	err := s.disconnect(req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("pool_id", req.PoolID.String()).
			Msg("disconnect failed")
	}
	metrics.RecordRequest("disconnect", err != nil, time.Since(start))

	reply := &types.DisconnectReply{Failed: failCount(err)}
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Uint32("failed", reply.Failed).
		Msg("replying disconnect")
	return reply
}

func (s *Service) disconnect(req *types.DisconnectRequest) error {
	if req.HandleCount == 0 {
		return nil
	}
	if req.Handles == nil {
		return fmt.Errorf("declared %d handles with nil list: %w",
			req.HandleCount, errdefs.ErrInvalidInput)
	}

	for _, id := range req.Handles {
		hdl := s.table.Find(id)
		if hdl == nil {
			s.logger.Debug().
				Str("pool_id", req.PoolID.String()).
				Str("handle_id", id.String()).
				Msg("handle does not exist")
			continue
		}
		// Find and Delete are not atomic: two disconnects racing on the
		// same handle would both get past Find, and the loser's Delete
		// asserts. The control plane issues at most one disconnect per
		// handle at a time; a retry only arrives after the first attempt
		// resolved, and lands in the skip branch above.
		s.table.Delete(hdl.ID)
		s.publish(events.EventHandleDisconnected, req.PoolID, id, "handle disconnected")
		s.table.Release(hdl)
	}
	return nil
}

// UpdateMap advertises a new pool map version: every stream's cached
// version is overwritten through a collective fan-out, then the pool
// object's version is updated under its writer lock. A pool that is not
// open locally reports not-found to the caller; a stream missing its child
// entry indicates a prior inconsistency and crashes loudly.
func (s *Service) UpdateMap(req *types.UpdateMapRequest) *types.UpdateMapReply {
	start := time.Now()
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Uint32("map_version", req.MapVersion).
		Msg("handling update-map")

	err := s.updateMap(req)
	if err != nil {
		s.logger.Error().Err(err).
			Str("pool_id", req.PoolID.String()).
			Msg("update-map failed")
	}
	metrics.RecordRequest("update-map", err != nil, time.Since(start))

	reply := &types.UpdateMapReply{Failed: failCount(err)}
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Uint32("failed", reply.Failed).
		Msg("replying update-map")
	return reply
}

func (s *Service) updateMap(req *types.UpdateMapRequest) error {
	p := s.cache.Lookup(req.PoolID)
	if p == nil {
		// The pool may legitimately not be open here yet.
		return fmt.Errorf("pool %s: %w", req.PoolID, errdefs.ErrNotFound)
	}
	defer s.cache.Release(p)

	s.cache.UpdateChildVersions(req.PoolID, req.MapVersion)

	old := p.SetMapVersion(req.MapVersion)
	s.logger.Debug().
		Str("pool_id", req.PoolID.String()).
		Uint32("from", old).
		Uint32("to", req.MapVersion).
		Msg("changed cached map version")

	s.publish(events.EventMapUpdated, req.PoolID, uuid.Nil, "map version updated")
	return nil
}

func (s *Service) publish(t events.EventType, poolID, handleID uuid.UUID, msg string) {
	if s.broker == nil {
		return
	}
	meta := map[string]string{"pool_id": poolID.String()}
	if handleID != uuid.Nil {
		meta["handle_id"] = handleID.String()
	}
	s.broker.Publish(&events.Event{Type: t, Message: msg, Metadata: meta})
}

func failCount(err error) uint32 {
	if err != nil {
		return 1
	}
	return 0
}
