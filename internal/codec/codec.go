// Package codec turns socket frames into bytes and back.
//
// Two codecs exist: JSON, carried in WebSocket text messages and used by
// default, and CBOR, carried in binary messages. A client picks one with the
// "codec" query parameter at connect time and both ends keep it for the life
// of the socket.
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// ErrNoPayload is returned by Packet.Bind when the frame carried no data.
var ErrNoPayload = errors.New("codec: frame has no data")

type Codec interface {
	// Name is the value of the "codec" query parameter selecting this codec.
	Name() string
	// Binary reports whether frames travel as binary WebSocket messages.
	Binary() bool
	Encode(f models.Frame) ([]byte, error)
	Decode(b []byte) (Packet, error)
}

// Packet is a decoded frame whose data is still encoded. Bind decodes the
// data once the event name tells the receiver what to expect.
type Packet struct {
	Event string
	Room  string
	Ack   uint64
	Error string

	data      []byte
	unmarshal func([]byte, any) error
}

// HasData reports whether the frame carried a data field.
func (p Packet) HasData() bool {
	return len(p.data) > 0 && p.unmarshal != nil
}

// Bind decodes the frame data into v.
func (p Packet) Bind(v any) error {
	if !p.HasData() {
		return ErrNoPayload
	}
	if err := p.unmarshal(p.data, v); err != nil {
		return fmt.Errorf("decode %q data: %w", p.Event, err)
	}
	return nil
}

// ByName returns the codec registered under name. An empty name selects JSON.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}
