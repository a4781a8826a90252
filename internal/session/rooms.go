package session

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// emitFunc sends one frame without waiting for a reply.
type emitFunc func(event, room string, data any) error

// Subscriptions tracks the single room a session wants to be in. It is not
// safe for concurrent use; the Session serializes access.
type Subscriptions struct {
	emit  emitFunc
	clock clock.Clock
	log   zerolog.Logger

	room        string
	requestedAt time.Time
	joined      bool
	connected   bool
}

func NewSubscriptions(emit emitFunc, clk clock.Clock, log zerolog.Logger) *Subscriptions {
	return &Subscriptions{emit: emit, clock: clk, log: log}
}

// Switch makes roomID the active room and reports whether it changed. The
// join request goes out now when connected, otherwise on the next
// OnConnected; rooms replaced in between are never requested.
func (s *Subscriptions) Switch(roomID string) bool {
	if roomID == s.room {
		return false
	}
	s.room = roomID
	s.requestedAt = s.clock.Now()
	s.joined = false
	if s.connected {
		s.requestJoin()
	}
	return true
}

// Leave drops the active room, telling the server when connected.
func (s *Subscriptions) Leave() (string, bool) {
	room := s.room
	if room == "" {
		return "", false
	}
	if s.connected {
		if err := s.emit(models.EventLeaveRoom, "", room); err != nil {
			s.log.Debug().Err(err).Str("room", room).Msg("[session] leave not sent")
		}
	}
	s.Clear()
	return room, true
}

// Clear forgets the active room without telling the server.
func (s *Subscriptions) Clear() {
	s.room = ""
	s.requestedAt = time.Time{}
	s.joined = false
}

func (s *Subscriptions) Current() (string, bool) {
	return s.room, s.room != ""
}

// Active reports whether events for roomID belong to the current
// subscription.
func (s *Subscriptions) Active(roomID string) bool {
	return roomID != "" && roomID == s.room
}

func (s *Subscriptions) Joined() bool { return s.joined }

// MarkJoined records the server's confirmation for roomID. Confirmations
// for any other room are stale and ignored.
func (s *Subscriptions) MarkJoined(roomID string) bool {
	if !s.Active(roomID) {
		return false
	}
	s.joined = true
	s.log.Debug().Str("room", roomID).Dur("after", s.clock.Since(s.requestedAt)).Msg("[session] joined")
	return true
}

// MarkRefused records a "join error" for roomID. The room stays active so a
// later reconnect asks again.
func (s *Subscriptions) MarkRefused(roomID string) bool {
	if !s.Active(roomID) {
		return false
	}
	s.joined = false
	return true
}

// OnConnected rejoins the remembered room on a fresh socket.
func (s *Subscriptions) OnConnected() {
	s.connected = true
	s.joined = false
	if s.room != "" {
		s.requestJoin()
	}
}

// OnDisconnected keeps the room but marks it unjoined.
func (s *Subscriptions) OnDisconnected() {
	s.connected = false
	s.joined = false
}

func (s *Subscriptions) requestJoin() {
	s.requestedAt = s.clock.Now()
	if err := s.emit(models.EventJoinRoom, "", s.room); err != nil {
		s.log.Warn().Err(err).Str("room", s.room).Msg("[session] join request not sent")
		return
	}
	s.log.Debug().Str("room", s.room).Msg("[session] join requested")
}
