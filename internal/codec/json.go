package codec

import (
	"bytes"
	"encoding/json"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// JSON is the default text codec.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Ack   uint64          `json:"ack,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Binary() bool { return false }

// Encode leaves <, > and & unescaped so message content reaches other
// clients exactly as typed.
func (jsonCodec) Encode(f models.Frame) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(f); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (jsonCodec) Decode(b []byte) (Packet, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Packet{}, err
	}
	p := Packet{Event: env.Event, Room: env.Room, Ack: env.Ack, Error: env.Error}
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		p.data = env.Data
		p.unmarshal = json.Unmarshal
	}
	return p, nil
}
