// Package session is the client-side state machine of a chat connection.
//
// A Session composes a transport with the active room subscription, the
// room's message list and the typing indicator. Every mutation happens under
// one lock, and the application observes the results through Events in the
// order they happened.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/transport"
)

var (
	ErrEmptyContent = errors.New("session: message content is empty")
	ErrNotInRoom    = errors.New("session: room is not the active room")
	ErrNoRoom       = errors.New("session: room id is empty")
	ErrClosed       = errors.New("session: closed")
)

// JoinError is the server's refusal of a join request.
type JoinError struct {
	RoomID string
	Reason string
}

func (e *JoinError) Error() string {
	return fmt.Sprintf("join %s refused: %s", e.RoomID, e.Reason)
}

// Transport is the connection a Session drives. *transport.Session
// implements it.
type Transport interface {
	Connect(token string) error
	Disconnect()
	Emit(event, room string, data any) error
	EmitWithAck(ctx context.Context, event, room string, data any) (codec.Packet, error)
	State() transport.State
	SetHandler(h transport.Handler)
}

type Options struct {
	// UserID marks own messages. When empty it is taken from the server's
	// welcome frame.
	UserID   string
	UserName string
	// TypingExpiry clears a remote typing indicator that was not refreshed.
	TypingExpiry time.Duration
	Clock        clock.Clock
	Logger       zerolog.Logger
}

type Session struct {
	tr  Transport
	clk clock.Clock
	log zerolog.Logger
	box *mailbox

	mu       sync.Mutex
	closed   bool
	userID   string
	userName string
	subs     *Subscriptions
	exchange *Exchange
	typing   *Typing
}

func New(tr Transport, opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.TypingExpiry <= 0 {
		opts.TypingExpiry = 3 * time.Second
	}
	s := &Session{
		tr:       tr,
		clk:      opts.Clock,
		log:      opts.Logger,
		box:      newMailbox(),
		userID:   opts.UserID,
		userName: opts.UserName,
	}
	s.subs = NewSubscriptions(tr.Emit, opts.Clock, opts.Logger)
	s.exchange = NewExchange(opts.UserID)
	s.typing = NewTyping(opts.Clock, opts.TypingExpiry, s.expireTyping)
	tr.SetHandler(handler{s})
	return s
}

// Events delivers notifications in the order they happened. The channel is
// closed by Close.
func (s *Session) Events() <-chan Event { return s.box.out }

func (s *Session) State() transport.State { return s.tr.State() }

// UserID is the id that marks own messages.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Connect starts connecting with token. The outcome arrives as events.
func (s *Session) Connect(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.tr.Connect(token); err != nil {
		return err
	}
	s.box.push(Event{Kind: StateChanged, State: transport.Connecting})
	return nil
}

// Disconnect closes the connection and forgets the active room.
func (s *Session) Disconnect() {
	// The transport waits for its supervisor, which may be waiting for s.mu.
	s.tr.Disconnect()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.Clear()
	s.exchange.Reset("")
	s.clearTypingLocked()
}

// Close disconnects and closes the Events channel.
func (s *Session) Close() {
	s.Disconnect()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.box.close()
}

// SwitchRoom makes roomID the active room. Events of the previous room are
// ignored from now on. Switching to the active room does nothing.
func (s *Session) SwitchRoom(roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrNoRoom
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if !s.subs.Switch(roomID) {
		return nil
	}
	s.log.Info().Str("room", roomID).Msg("[session] switched room")
	s.exchange.Reset(roomID)
	s.clearTypingLocked()
	return nil
}

// LeaveRoom drops the active room.
func (s *Session) LeaveRoom() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.subs.Leave(); ok {
		s.log.Info().Str("room", room).Msg("[session] left room")
	}
	s.exchange.Reset("")
	s.clearTypingLocked()
}

func (s *Session) CurrentRoom() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs.Current()
}

// Joined reports whether the server confirmed the active room on the
// current connection.
func (s *Session) Joined() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subs.Joined()
}

// History returns the active room's messages, oldest first.
func (s *Session) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchange.History()
}

// TypingUser returns the sender currently typing in the active room.
func (s *Session) TypingUser() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing.Current()
}

// Send appends an own message with status sending, transmits it and waits
// for the acknowledgement. The returned message carries the final status:
// the acknowledged one, or failed together with a non-nil error. A failed
// message stays in the history. Sending requires the server to have
// confirmed the join of roomID.
func (s *Session) Send(ctx context.Context, roomID, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.Message{}, ErrEmptyContent
	}

	s.mu.Lock()
	if !s.subs.Active(roomID) || !s.subs.Joined() {
		s.mu.Unlock()
		return models.Message{}, ErrNotInRoom
	}
	msg := models.Message{
		Content:    content,
		SenderID:   s.userID,
		SenderName: s.userName,
		RoomID:     roomID,
		Timestamp:  s.clk.Now().UTC(),
		Status:     models.StatusSending,
		IsOwn:      true,
		LocalID:    uuid.NewString(),
	}
	s.exchange.Append(msg)
	s.box.push(Event{Kind: MessageAppended, RoomID: roomID, Message: msg})
	s.mu.Unlock()

	wire := msg
	wire.IsOwn = false
	pkt, err := s.tr.EmitWithAck(ctx, models.EventChatMessage, "", wire)

	var final models.Message
	if err != nil {
		final = msg.WithStatus(models.StatusFailed)
		s.log.Warn().Err(err).Str("room", roomID).Msg("[session] message not acknowledged")
		err = fmt.Errorf("send: %w", err)
	} else {
		status, id := s.ackOutcome(pkt)
		final = msg.WithStatus(status)
		final.ID = id
	}

	s.mu.Lock()
	if _, ok := s.exchange.Replace(final); ok {
		s.box.push(Event{Kind: MessageUpdated, RoomID: roomID, Message: final})
	}
	s.mu.Unlock()
	return final, err
}

func (s *Session) ackOutcome(p codec.Packet) (models.Status, string) {
	var ack models.AckResponse
	if p.HasData() {
		if err := p.Bind(&ack); err != nil {
			s.log.Debug().Err(err).Msg("[session] malformed ack payload")
		}
	}
	if ack.Status == models.StatusSent || ack.Status.Acknowledged() {
		return ack.Status, ack.ID
	}
	if ack.Status != "" {
		s.log.Debug().Str("status", string(ack.Status)).Bool("known", ack.Status.Valid()).Msg("[session] unexpected ack status")
	}
	return models.StatusDelivered, ack.ID
}

// NotifyTyping tells the room the local user started or stopped typing.
// Failures are logged and otherwise ignored.
func (s *Session) NotifyTyping(roomID string, typing bool) {
	if roomID == "" {
		return
	}
	event := models.EventTypingStopped
	if typing {
		event = models.EventTyping
	}
	payload := models.TypingPayload{RoomID: roomID, SenderID: s.UserID()}
	if err := s.tr.Emit(event, "", payload); err != nil {
		s.log.Debug().Err(err).Str("event", event).Msg("[session] typing signal dropped")
	}
}

func (s *Session) expireTyping(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.typing.Expire(gen) {
		s.box.push(Event{Kind: TypingChanged, RoomID: s.exchange.Room()})
	}
}

func (s *Session) clearTypingLocked() {
	if s.typing.Clear() {
		s.box.push(Event{Kind: TypingChanged})
	}
}

func (s *Session) onState(ev transport.StateEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case transport.EventConnected:
		s.subs.OnConnected()
		s.box.push(Event{Kind: StateChanged, State: transport.Connected})
	case transport.EventConnectError:
		s.box.push(Event{Kind: ConnectFailed, State: ev.State, Err: ev.Err})
	case transport.EventDisconnected:
		s.subs.OnDisconnected()
		s.clearTypingLocked()
		s.box.push(Event{Kind: StateChanged, State: ev.State, Err: ev.Err, Terminal: ev.Terminal})
	}
}

func (s *Session) onFrame(p codec.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.With().Str("event", p.Event).Logger()
	switch p.Event {
	case models.EventMessageHistory:
		var batch []models.Message
		if p.HasData() {
			if err := p.Bind(&batch); err != nil {
				log.Warn().Err(err).Msg("[session] bad history")
				return
			}
		}
		room := p.Room
		if room == "" && len(batch) > 0 {
			room = batch[0].RoomID
		}
		if !s.subs.MarkJoined(room) {
			log.Debug().Str("room", room).Msg("[session] stale history dropped")
			return
		}
		history, _ := s.exchange.OnHistory(room, batch)
		s.box.push(Event{Kind: Joined, RoomID: room})
		s.box.push(Event{Kind: HistoryReplaced, RoomID: room, History: history})

	case models.EventJoinError:
		var je models.JoinErrorPayload
		if err := p.Bind(&je); err != nil {
			log.Warn().Err(err).Msg("[session] bad join error")
			return
		}
		if !s.subs.MarkRefused(je.RoomID) {
			log.Debug().Str("room", je.RoomID).Msg("[session] stale join error dropped")
			return
		}
		s.box.push(Event{Kind: JoinFailed, RoomID: je.RoomID, Err: &JoinError{RoomID: je.RoomID, Reason: je.Error}})

	case models.EventChatMessage:
		var m models.Message
		if err := p.Bind(&m); err != nil {
			log.Warn().Err(err).Msg("[session] bad message")
			return
		}
		appended, ok := s.exchange.OnIncoming(m)
		if !ok {
			log.Debug().Str("room", m.RoomID).Msg("[session] message for inactive room dropped")
			return
		}
		s.box.push(Event{Kind: MessageAppended, RoomID: m.RoomID, Message: appended})

	case models.EventTyping, models.EventTypingStopped:
		var tp models.TypingPayload
		if err := p.Bind(&tp); err != nil {
			log.Warn().Err(err).Msg("[session] bad typing signal")
			return
		}
		if !s.subs.Active(tp.RoomID) || tp.SenderID == "" || tp.SenderID == s.userID {
			return
		}
		var changed bool
		if p.Event == models.EventTyping {
			changed = s.typing.Start(tp.SenderID)
		} else {
			changed = s.typing.Stop(tp.SenderID)
		}
		if changed {
			who, _ := s.typing.Current()
			s.box.push(Event{Kind: TypingChanged, RoomID: tp.RoomID, Typing: who})
		}

	case models.EventConnected:
		var w models.Welcome
		if err := p.Bind(&w); err != nil {
			log.Debug().Err(err).Msg("[session] bad welcome")
			return
		}
		if s.userID == "" && w.UserID != "" {
			s.userID = w.UserID
			s.exchange.SetSelf(w.UserID)
		}
		if s.userName == "" {
			s.userName = w.UserName
		}
		log.Debug().Str("user", w.UserID).Msg("[session] welcomed")

	case models.EventError:
		log.Warn().Str("error", p.Error).Msg("[session] server error")

	default:
		log.Debug().Msg("[session] unhandled event")
	}
}

// handler keeps the transport callbacks off the Session's exported API.
type handler struct{ s *Session }

func (h handler) HandleState(ev transport.StateEvent) { h.s.onState(ev) }
func (h handler) HandleFrame(p codec.Packet)          { h.s.onFrame(p) }
