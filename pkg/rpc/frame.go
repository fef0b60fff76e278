package rpc

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Frame status codes.
const (
	statusOK    uint8 = 0
	statusError uint8 = 1
)

// Frame layout, big endian:
//   - 1 byte:  request kind
//   - 1 byte:  status (replies only; statusOK on requests)
//   - 8 bytes: request id, echoed on the reply
//   - 4 bytes: payload length
//   - N bytes: payload
const headerSize = 14

const maxFrameSize = 16 << 20 // 16 MiB

// writeFrame writes one frame to the connection.
func writeFrame(conn net.Conn, kind uint8, status uint8, requestID uint64, payload []byte) error {
	header := make([]byte, headerSize)
	header[0] = kind
	header[1] = status
	binary.BigEndian.PutUint64(header[2:10], requestID)
	binary.BigEndian.PutUint32(header[10:14], uint32(len(payload)))

	b := net.Buffers{header, payload}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads one frame from the connection.
func readFrame(conn net.Conn) (kind uint8, status uint8, requestID uint64, payload []byte, err error) {
	header := make([]byte, headerSize)
	if _, err = io.ReadFull(conn, header); err != nil {
		return 0, 0, 0, nil, err
	}

	kind = header[0]
	status = header[1]
	requestID = binary.BigEndian.Uint64(header[2:10])
	length := binary.BigEndian.Uint32(header[10:14])

	if length > maxFrameSize {
		return 0, 0, 0, nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	if length == 0 {
		return kind, status, requestID, []byte{}, nil
	}

	payload = make([]byte, length)
	if _, err = io.ReadFull(conn, payload); err != nil {
		return 0, 0, 0, nil, err
	}
	return kind, status, requestID, payload, nil
}
