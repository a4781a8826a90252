package codec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// CBOR is the binary codec. Struct fields use their json tag names as keys.
var CBOR Codec = cborCodec{}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Timestamps keep sub-second precision.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Data decoded into an any value must stay usable with encoding/json.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

type cborEnvelope struct {
	Event string          `cbor:"event"`
	Room  string          `cbor:"room,omitempty"`
	Ack   uint64          `cbor:"ack,omitempty"`
	Error string          `cbor:"error,omitempty"`
	Data  cbor.RawMessage `cbor:"data,omitempty"`
}

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Binary() bool { return true }

func (cborCodec) Encode(f models.Frame) ([]byte, error) {
	return encMode.Marshal(f)
}

func (cborCodec) Decode(b []byte) (Packet, error) {
	var env cborEnvelope
	if err := decMode.Unmarshal(b, &env); err != nil {
		return Packet{}, err
	}
	p := Packet{Event: env.Event, Room: env.Room, Ack: env.Ack, Error: env.Error}
	// 0xf6 is CBOR null.
	if len(env.Data) > 0 && !(len(env.Data) == 1 && env.Data[0] == 0xf6) {
		p.data = env.Data
		p.unmarshal = decMode.Unmarshal
	}
	return p, nil
}
