package rpc

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Serializer encodes request and reply bodies for the wire. Both ends of a
// connection must agree on the serializer in use.
type Serializer interface {
	// Serialize encodes v into a byte slice.
	Serialize(v any) ([]byte, error)
	// Deserialize decodes data into v, which must be a pointer.
	Deserialize(data []byte, v any) error
	// Name returns the serializer's config name.
	Name() string
}

// NewSerializer returns the serializer registered under name ("json" or
// "gob").
func NewSerializer(name string) (Serializer, error) {
	switch name {
	case "json", "":
		return &jsonSerializer{}, nil
	case "gob":
		return &gobSerializer{}, nil
	default:
		return nil, fmt.Errorf("unknown serializer %q", name)
	}
}

// jsonSerializer implements Serializer using json encoding
type jsonSerializer struct{}

func (j *jsonSerializer) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j *jsonSerializer) Deserialize(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (j *jsonSerializer) Name() string { return "json" }

// gobSerializer implements Serializer using Go's binary gob format
type gobSerializer struct{}

func (g *gobSerializer) Serialize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *gobSerializer) Deserialize(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewBuffer(data)).Decode(v)
}

func (g *gobSerializer) Name() string { return "gob" }
