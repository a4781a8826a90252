// Package transporttest provides an in-memory transport.Dialer whose server
// side is driven by the test.
package transporttest

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/transport"
)

// ErrHang queued with FailNext makes the dial block until its context ends.
var ErrHang = errors.New("transporttest: hang until canceled")

const waitFor = 2 * time.Second

// Dialer hands out pipe connections and queues their server ends for
// Accept.
type Dialer struct {
	Codec codec.Codec

	mu     sync.Mutex
	fail   []error
	tokens []string
	peers  chan *Peer
}

func NewDialer() *Dialer {
	return &Dialer{Codec: codec.JSON, peers: make(chan *Peer, 16)}
}

// FailNext makes the next len(errs) dials fail with errs, in order.
func (d *Dialer) FailNext(errs ...error) {
	d.mu.Lock()
	d.fail = append(d.fail, errs...)
	d.mu.Unlock()
}

func (d *Dialer) Dial(ctx context.Context, token string) (transport.Conn, error) {
	d.mu.Lock()
	d.tokens = append(d.tokens, token)
	var err error
	if len(d.fail) > 0 {
		err, d.fail = d.fail[0], d.fail[1:]
	}
	d.mu.Unlock()

	switch {
	case errors.Is(err, ErrHang):
		<-ctx.Done()
		return nil, ctx.Err()
	case err != nil:
		return nil, err
	}

	client, server := newPipe()
	d.peers <- &Peer{end: server, codec: d.Codec}
	return client, nil
}

// Dials is the number of dial attempts so far.
func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

// Tokens lists the token presented on every dial, oldest first.
func (d *Dialer) Tokens() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.tokens...)
}

// Accept returns the server end of the next successful dial.
func (d *Dialer) Accept(t testing.TB) *Peer {
	t.Helper()
	select {
	case p := <-d.peers:
		return p
	case <-time.After(waitFor):
		t.Fatal("no connection dialed")
		return nil
	}
}

// Peer is the server end of a pipe.
type Peer struct {
	end   *pipeEnd
	codec codec.Codec
}

// Next returns the next frame written by the client.
func (p *Peer) Next(t testing.TB) codec.Packet {
	t.Helper()
	select {
	case b := <-p.end.in:
		pk, err := p.codec.Decode(b)
		require.NoError(t, err)
		return pk
	case <-p.end.closed:
		t.Fatal("connection closed while waiting for a frame")
	case <-time.After(waitFor):
		t.Fatal("no frame written")
	}
	return codec.Packet{}
}

// NextEvent skips frames until one carries event.
func (p *Peer) NextEvent(t testing.TB, event string) codec.Packet {
	t.Helper()
	for {
		if pk := p.Next(t); pk.Event == event {
			return pk
		}
	}
}

func (p *Peer) Send(t testing.TB, f models.Frame) {
	t.Helper()
	b, err := p.codec.Encode(f)
	require.NoError(t, err)
	require.NoError(t, p.end.WriteMessage(b))
}

func (p *Peer) Ack(t testing.TB, id uint64, resp models.AckResponse) {
	t.Helper()
	p.Send(t, models.Frame{Event: models.EventAck, Ack: id, Data: resp})
}

func (p *Peer) Reject(t testing.TB, id uint64, reason string) {
	t.Helper()
	p.Send(t, models.Frame{Event: models.EventAck, Ack: id, Error: reason})
}

// Drop closes the pipe as a network failure would.
func (p *Peer) Drop() { _ = p.end.Close() }

func (p *Peer) Closed() <-chan struct{} { return p.end.closed }

type pipeEnd struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   *sync.Once
}

func newPipe() (*pipeEnd, *pipeEnd) {
	a, b := make(chan []byte, 64), make(chan []byte, 64)
	closed := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: a, out: b, closed: closed, once: once},
		&pipeEnd{in: b, out: a, closed: closed, once: once}
}

func (e *pipeEnd) ReadMessage() ([]byte, error) {
	select {
	case b := <-e.in:
		return b, nil
	case <-e.closed:
		return nil, io.EOF
	}
}

func (e *pipeEnd) WriteMessage(b []byte) error {
	select {
	case <-e.closed:
		return io.ErrClosedPipe
	default:
	}
	select {
	case e.out <- append([]byte(nil), b...):
		return nil
	case <-e.closed:
		return io.ErrClosedPipe
	}
}

func (e *pipeEnd) Close() error {
	e.once.Do(func() { close(e.closed) })
	return nil
}
