// Package transport owns the single persistent socket between a chat client
// and the server.
//
// A [Session] moves through disconnected, connecting and connected. Connect
// starts a supervisor goroutine that dials, reads frames until the socket
// drops and then redials after a fixed delay, up to a bounded number of
// attempts. Every inbound frame and every state event of a connection is
// delivered to the [Handler] from that supervisor goroutine, in order.
//
// Requests that expect an acknowledgement carry a numeric ack id; the
// server answers with an "ack" frame echoing it. Pending acknowledgements
// resolve to an error when they time out or the socket goes away, so callers
// never wait forever.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
)

var (
	// ErrAuthMissing is returned by Connect when no token is supplied.
	ErrAuthMissing = errors.New("transport: auth token missing")
	// ErrAuthRejected means the server refused the token during the handshake.
	ErrAuthRejected = errors.New("transport: auth token rejected")
	// ErrAlreadyActive is returned by Connect while a connection is live or
	// being established.
	ErrAlreadyActive = errors.New("transport: session already active")
	// ErrNotConnected is returned when sending without a live socket.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrDisconnected resolves acknowledgements cut short by Disconnect.
	ErrDisconnected = errors.New("transport: disconnected")
	// ErrConnectionLost resolves acknowledgements cut short by a dropped socket.
	ErrConnectionLost = errors.New("transport: connection lost")
	// ErrAckTimeout resolves acknowledgements that took longer than AckTimeout.
	ErrAckTimeout = errors.New("transport: acknowledgement timed out")
	// ErrReconnectExhausted is the reason of the terminal disconnect after the
	// retry budget is spent.
	ErrReconnectExhausted = errors.New("transport: reconnect attempts exhausted")
)

// RejectedError carries the reason of an "ack" frame that reported an error.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "rejected by server: " + e.Reason
}

// HandshakeError reports a non-101 answer to the upgrade request.
type HandshakeError struct {
	Status int
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed with status %d: %v", e.Status, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventConnectError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventConnectError:
		return "connect_error"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// StateEvent is a connection lifecycle notification. State is the state the
// session is in after the event. Terminal is set on the disconnect that ends
// the supervisor: an explicit Disconnect or an exhausted retry budget.
type StateEvent struct {
	Kind     EventKind
	State    State
	Err      error
	Attempt  int
	Terminal bool
}

// Handler receives everything the session observes. Calls for one session
// never overlap. Implementations must not call Disconnect from inside a
// callback.
type Handler interface {
	HandleState(ev StateEvent)
	HandleFrame(p codec.Packet)
}

// Conn is one established socket carrying encoded frames.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(b []byte) error
	Close() error
}

// Dialer establishes a Conn, presenting token as the connection credential.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

type Options struct {
	// ReconnectAttempts bounds the redials after a failure or drop.
	ReconnectAttempts int
	// ReconnectDelay is waited before every redial.
	ReconnectDelay time.Duration
	// ConnectTimeout bounds a single dial including the handshake.
	ConnectTimeout time.Duration
	// AckTimeout bounds the wait for an acknowledgement.
	AckTimeout time.Duration
	Codec      codec.Codec
	Clock      clock.Clock
	Logger     zerolog.Logger
}

// DefaultOptions matches the web client: 5 attempts, 1s apart, 20s
// handshake timeout.
func DefaultOptions() Options {
	return Options{
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		ConnectTimeout:    20 * time.Second,
		AckTimeout:        10 * time.Second,
	}
}

func (o *Options) normalize() {
	if o.ReconnectAttempts < 0 {
		o.ReconnectAttempts = 0
	}
	if o.ReconnectDelay < 0 {
		o.ReconnectDelay = 0
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = 20 * time.Second
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = 10 * time.Second
	}
	if o.Codec == nil {
		o.Codec = codec.JSON
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
}
