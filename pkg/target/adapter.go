package target

import (
	"fmt"

	"github.com/shoalstore/shoal/pkg/rpc"
	"github.com/shoalstore/shoal/pkg/types"
)

// Register wires the service's handlers and reply aggregators into the rpc
// server, one pair per request kind.
func Register(srv *rpc.Server, svc *Service, ser rpc.Serializer) {
	srv.RegisterHandler(types.KindConnect, func(body []byte) ([]byte, error) {
		var req types.ConnectRequest
		if err := ser.Deserialize(body, &req); err != nil {
			return nil, fmt.Errorf("decoding connect request: %w", err)
		}
		return ser.Serialize(svc.Connect(&req))
	})
	srv.RegisterAggregator(types.KindConnect, func(source, result []byte) ([]byte, error) {
		var src, res types.ConnectReply
		if err := decodePair(ser, source, result, &src, &res); err != nil {
			return nil, err
		}
		AggregateConnect(&src, &res)
		return ser.Serialize(&res)
	})

	srv.RegisterHandler(types.KindDisconnect, func(body []byte) ([]byte, error) {
		var req types.DisconnectRequest
		if err := ser.Deserialize(body, &req); err != nil {
			return nil, fmt.Errorf("decoding disconnect request: %w", err)
		}
		return ser.Serialize(svc.Disconnect(&req))
	})
	srv.RegisterAggregator(types.KindDisconnect, func(source, result []byte) ([]byte, error) {
		var src, res types.DisconnectReply
		if err := decodePair(ser, source, result, &src, &res); err != nil {
			return nil, err
		}
		AggregateDisconnect(&src, &res)
		return ser.Serialize(&res)
	})

	srv.RegisterHandler(types.KindUpdateMap, func(body []byte) ([]byte, error) {
		var req types.UpdateMapRequest
		if err := ser.Deserialize(body, &req); err != nil {
			return nil, fmt.Errorf("decoding update-map request: %w", err)
		}
		return ser.Serialize(svc.UpdateMap(&req))
	})
	srv.RegisterAggregator(types.KindUpdateMap, func(source, result []byte) ([]byte, error) {
		var src, res types.UpdateMapReply
		if err := decodePair(ser, source, result, &src, &res); err != nil {
			return nil, err
		}
		AggregateUpdateMap(&src, &res)
		return ser.Serialize(&res)
	})
}

func decodePair(ser rpc.Serializer, source, result []byte, src, res any) error {
	if err := ser.Deserialize(source, src); err != nil {
		return fmt.Errorf("decoding partial reply: %w", err)
	}
	if err := ser.Deserialize(result, res); err != nil {
		return fmt.Errorf("decoding accumulated reply: %w", err)
	}
	return nil
}
