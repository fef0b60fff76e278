/*
Package rpc implements the framed-TCP transport for the pool target
service: a request server with per-kind handlers and reply aggregators,
and a small synchronous client.

# Wire Format

Every message is one frame, big endian:

	1 byte   request kind
	1 byte   status (statusOK on requests; statusError marks a transport
	         rejection whose payload is the error text)
	8 bytes  request id, echoed on the reply
	4 bytes  payload length (16 MiB cap)
	N bytes  payload

Payloads are encoded by a pluggable Serializer; "json" (the default) and
"gob" are built in. Both ends of a connection must be configured with the
same serializer.

Requests on one connection are processed concurrently and may reply out
of order; the request id pairs them back up. The Client serializes its
calls, so ordering only matters for callers driving the conn directly.

# Failure Semantics

A statusError frame means the request never reached its handler: unknown
kind, undecodable body. Handler-level failures are not transport errors;
they ride inside a successful reply as a failure count, so a caller that
fans a request out to many nodes can merge the replies.

# Aggregation

Aggregate folds per-node reply bodies for one request kind into a single
body using the AggregatorFunc registered for that kind. pkg/target
registers one aggregator per request kind alongside each handler.

# Usage

	srv := rpc.NewServer(ser)
	target.Register(srv, svc, ser)
	go srv.Listen(cfg.ListenAddr)
	...
	srv.Stop()

	client, err := rpc.Dial(addr, ser, 5*time.Second)
	reply, err := client.Connect(&types.ConnectRequest{...})
*/
package rpc
