package rpc

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/shoalstore/shoal/pkg/types"
)

// Client is a synchronous client for the pool target service. Calls on one
// client are serialized; use one client per concurrent caller or pool them
// above this layer.
type Client struct {
	conn    net.Conn
	ser     Serializer
	timeout time.Duration

	mu     sync.Mutex
	nextID uint64
}

// Dial connects to a pool target server at addr.
func Dial(addr string, ser Serializer, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Client{conn: conn, ser: ser, timeout: timeout}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Connect issues a connect request.
func (c *Client) Connect(req *types.ConnectRequest) (*types.ConnectReply, error) {
	var reply types.ConnectReply
	if err := c.call(types.KindConnect, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Disconnect issues a disconnect request.
func (c *Client) Disconnect(req *types.DisconnectRequest) (*types.DisconnectReply, error) {
	var reply types.DisconnectReply
	if err := c.call(types.KindDisconnect, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// UpdateMap issues an update-map-version request.
func (c *Client) UpdateMap(req *types.UpdateMapRequest) (*types.UpdateMapReply, error) {
	var reply types.UpdateMapReply
	if err := c.call(types.KindUpdateMap, req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

func (c *Client) call(kind types.RequestKind, req, reply any) error {
	body, err := c.ser.Serialize(req)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", kind, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	requestID := c.nextID

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("setting deadline: %w", err)
		}
	}

	if err := writeFrame(c.conn, uint8(kind), statusOK, requestID, body); err != nil {
		return fmt.Errorf("sending %s request: %w", kind, err)
	}

	replyKind, status, replyID, payload, err := readFrame(c.conn)
	if err != nil {
		return fmt.Errorf("reading %s reply: %w", kind, err)
	}
	if replyID != requestID || replyKind != uint8(kind) {
		return fmt.Errorf("mismatched reply: kind %d id %d, want kind %d id %d",
			replyKind, replyID, uint8(kind), requestID)
	}
	if status != statusOK {
		return fmt.Errorf("%s request rejected: %s", kind, payload)
	}

	if err := c.ser.Deserialize(payload, reply); err != nil {
		return fmt.Errorf("decoding %s reply: %w", kind, err)
	}
	return nil
}
