package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

type ackResult struct {
	packet codec.Packet
	err    error
}

// Session is the client end of one logical connection. The zero value is not
// usable; build one with New.
type Session struct {
	dialer Dialer
	opts   Options

	mu      sync.Mutex
	state   State
	handler Handler
	conn    Conn
	cancel  context.CancelFunc
	done    chan struct{}
	pending map[uint64]chan ackResult

	writeMu sync.Mutex
	ackSeq  atomic.Uint64
}

func New(d Dialer, opts Options) *Session {
	opts.normalize()
	return &Session{
		dialer:  d,
		opts:    opts,
		handler: nopHandler{},
		pending: make(map[uint64]chan ackResult),
	}
}

// SetHandler replaces the receiver of state events and frames. A nil handler
// discards them.
func (s *Session) SetHandler(h Handler) {
	if h == nil {
		h = nopHandler{}
	}
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts dialing with token. It returns immediately; progress is
// reported through the handler.
func (s *Session) Connect(token string) error {
	if token == "" {
		return ErrAuthMissing
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	prev := s.done
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	s.state = Connecting
	s.mu.Unlock()

	s.opts.Logger.Debug().Msg("[transport] connecting")
	go s.supervise(ctx, token, prev, done)
	return nil
}

// Disconnect closes the socket, stops reconnecting and fails every pending
// acknowledgement with ErrDisconnected. The terminal disconnect event has
// been delivered by the time it returns. Calling it on an idle session is a
// no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	cancel, done, conn := s.cancel, s.done, s.conn
	if cancel == nil {
		s.mu.Unlock()
		return
	}
	cancel()
	s.cancel = nil
	s.conn = nil
	s.state = Disconnected
	pending := s.takePendingLocked()
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	failPending(pending, ErrDisconnected)
	<-done
}

// Emit sends a frame without waiting for any reply.
func (s *Session) Emit(event, room string, data any) error {
	conn, err := s.liveConn()
	if err != nil {
		return err
	}
	return s.write(conn, models.Frame{Event: event, Room: room, Data: data})
}

// EmitWithAck sends a frame carrying a fresh ack id and waits for the
// matching "ack" frame. It fails with ErrAckTimeout after AckTimeout, with
// ErrConnectionLost or ErrDisconnected when the socket goes away first, and
// with *RejectedError when the server answers with an error.
func (s *Session) EmitWithAck(ctx context.Context, event, room string, data any) (codec.Packet, error) {
	id := s.ackSeq.Add(1)
	ch := make(chan ackResult, 1)

	s.mu.Lock()
	if s.state != Connected || s.conn == nil {
		s.mu.Unlock()
		return codec.Packet{}, ErrNotConnected
	}
	conn := s.conn
	s.pending[id] = ch
	s.mu.Unlock()

	timer := s.opts.Clock.Timer(s.opts.AckTimeout)
	defer timer.Stop()

	if err := s.write(conn, models.Frame{Event: event, Room: room, Ack: id, Data: data}); err != nil {
		s.dropPending(id)
		return codec.Packet{}, err
	}

	select {
	case r := <-ch:
		return r.packet, r.err
	case <-timer.C:
		s.dropPending(id)
		return codec.Packet{}, ErrAckTimeout
	case <-ctx.Done():
		s.dropPending(id)
		return codec.Packet{}, ctx.Err()
	}
}

func (s *Session) liveConn() (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected || s.conn == nil {
		return nil, ErrNotConnected
	}
	return s.conn, nil
}

func (s *Session) write(conn Conn, f models.Frame) error {
	b, err := s.opts.Codec.Encode(f)
	if err != nil {
		return fmt.Errorf("encode %q: %w", f.Event, err)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(b); err != nil {
		return fmt.Errorf("write %q: %w", f.Event, err)
	}
	return nil
}

// supervise owns one Connect..terminal-disconnect cycle. It waits for the
// previous cycle to finish so handler calls never overlap.
func (s *Session) supervise(ctx context.Context, token string, prev <-chan struct{}, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}

	attempts, reason := s.run(ctx, token)
	s.opts.Logger.Info().Err(reason).Int("attempt", attempts).Msg("[transport] stopped")
	s.emit(StateEvent{
		Kind:     EventDisconnected,
		State:    Disconnected,
		Err:      reason,
		Attempt:  attempts,
		Terminal: true,
	})
}

// run dials and reads until ctx is canceled or the retry budget runs out,
// and returns the reason of the terminal disconnect.
func (s *Session) run(ctx context.Context, token string) (int, error) {
	log := s.opts.Logger
	retries := 0
	var lastErr error

	for {
		if ctx.Err() != nil {
			return retries, ErrDisconnected
		}
		if lastErr != nil {
			if retries >= s.opts.ReconnectAttempts {
				return s.exhaust(ctx, retries, lastErr)
			}
			retries++
			if !s.sleep(ctx, s.opts.ReconnectDelay) {
				return retries, ErrDisconnected
			}
			log.Info().Int("attempt", retries).Msg("[transport] reconnecting")
		}

		conn, err := s.dial(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				return retries, ErrDisconnected
			}
			lastErr = err
			log.Warn().Err(err).Int("attempt", retries).Msg("[transport] connect failed")
			s.emit(StateEvent{Kind: EventConnectError, State: Connecting, Err: err, Attempt: retries})
			continue
		}

		if !s.attach(ctx, conn) {
			_ = conn.Close()
			return retries, ErrDisconnected
		}
		log.Info().Int("attempt", retries).Msg("[transport] connected")
		s.emit(StateEvent{Kind: EventConnected, State: Connected, Attempt: retries})
		retries = 0

		err = s.readLoop(conn)
		if !s.detach(ctx, conn) {
			return retries, ErrDisconnected
		}
		lastErr = fmt.Errorf("%w: %v", ErrConnectionLost, err)
		log.Warn().Err(err).Msg("[transport] connection lost")
		if s.opts.ReconnectAttempts > 0 {
			s.emit(StateEvent{Kind: EventDisconnected, State: Connecting, Err: lastErr})
		}
	}
}

func (s *Session) dial(ctx context.Context, token string) (Conn, error) {
	dctx, cancel := s.opts.Clock.WithTimeout(ctx, s.opts.ConnectTimeout)
	defer cancel()

	conn, err := s.dialer.Dial(dctx, token)
	if err != nil {
		if ctx.Err() == nil && errors.Is(dctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("connect timeout after %s: %w", s.opts.ConnectTimeout, err)
		}
		return nil, err
	}
	return conn, nil
}

func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := s.opts.Clock.Timer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) attach(ctx context.Context, conn Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.conn = conn
	s.state = Connected
	return true
}

// detach reports whether the loss was unexpected. An expected loss comes
// from Disconnect, which has already cleaned up.
func (s *Session) detach(ctx context.Context, conn Conn) bool {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	s.state = Connecting
	pending := s.takePendingLocked()
	s.mu.Unlock()

	_ = conn.Close()
	failPending(pending, ErrConnectionLost)
	return true
}

func (s *Session) exhaust(ctx context.Context, retries int, lastErr error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return retries, ErrDisconnected
	}
	s.cancel()
	s.cancel = nil
	s.state = Disconnected
	return retries, fmt.Errorf("%w: %w", ErrReconnectExhausted, lastErr)
}

func (s *Session) readLoop(conn Conn) error {
	for {
		b, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		p, err := s.opts.Codec.Decode(b)
		if err != nil {
			s.opts.Logger.Warn().Err(err).Msg("[transport] undecodable frame dropped")
			continue
		}
		if p.Event == models.EventAck {
			s.resolve(p)
			continue
		}
		s.currentHandler().HandleFrame(p)
	}
}

func (s *Session) resolve(p codec.Packet) {
	s.mu.Lock()
	ch, ok := s.pending[p.Ack]
	delete(s.pending, p.Ack)
	s.mu.Unlock()
	if !ok {
		s.opts.Logger.Debug().Uint64("ack", p.Ack).Msg("[transport] late ack ignored")
		return
	}
	r := ackResult{packet: p}
	if p.Error != "" {
		r.err = &RejectedError{Reason: p.Error}
	}
	ch <- r
}

func (s *Session) dropPending(id uint64) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) takePendingLocked() map[uint64]chan ackResult {
	taken := s.pending
	s.pending = make(map[uint64]chan ackResult)
	return taken
}

func failPending(pending map[uint64]chan ackResult, err error) {
	for _, ch := range pending {
		ch <- ackResult{err: err}
	}
}

func (s *Session) emit(ev StateEvent) {
	s.currentHandler().HandleState(ev)
}

func (s *Session) currentHandler() Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

type nopHandler struct{}

func (nopHandler) HandleState(StateEvent)    {}
func (nopHandler) HandleFrame(codec.Packet) {}
