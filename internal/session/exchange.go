package session

import (
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// Exchange holds the message list of the active room. It is not safe for
// concurrent use; the Session serializes access.
type Exchange struct {
	self     string
	room     string
	messages []models.Message
}

func NewExchange(self string) *Exchange {
	return &Exchange{self: self}
}

// Reset empties the list and scopes it to room.
func (x *Exchange) Reset(room string) {
	x.room = room
	x.messages = nil
}

func (x *Exchange) Room() string { return x.room }

// SetSelf changes the user id that marks messages as own.
func (x *Exchange) SetSelf(userID string) { x.self = userID }

// Append adds an optimistic own message.
func (x *Exchange) Append(m models.Message) {
	x.messages = append(x.messages, m)
}

// OnHistory replaces the list with batch when it belongs to the active room.
// Own messages the server never stored (sending or failed) are kept after
// the batch.
func (x *Exchange) OnHistory(room string, batch []models.Message) ([]models.Message, bool) {
	if room == "" || room != x.room {
		return nil, false
	}
	msgs := make([]models.Message, 0, len(batch))
	for _, m := range batch {
		msgs = append(msgs, x.mark(m))
	}
	for _, m := range x.messages {
		if m.ID == "" && m.LocalID != "" && (m.Status == models.StatusSending || m.Status == models.StatusFailed) {
			msgs = append(msgs, m)
		}
	}
	x.messages = msgs
	return x.History(), true
}

// OnIncoming appends m when it belongs to the active room. Duplicates are
// kept.
func (x *Exchange) OnIncoming(m models.Message) (models.Message, bool) {
	if m.RoomID == "" || m.RoomID != x.room {
		return models.Message{}, false
	}
	m = x.mark(m)
	x.messages = append(x.messages, m)
	return m, true
}

// Replace swaps the message carrying m.LocalID for m.
func (x *Exchange) Replace(m models.Message) (int, bool) {
	if m.LocalID == "" {
		return -1, false
	}
	for i := range x.messages {
		if x.messages[i].LocalID == m.LocalID {
			x.messages[i] = m
			return i, true
		}
	}
	return -1, false
}

// History returns a copy of the list, oldest first.
func (x *Exchange) History() []models.Message {
	out := make([]models.Message, len(x.messages))
	copy(out, x.messages)
	return out
}

func (x *Exchange) mark(m models.Message) models.Message {
	m.IsOwn = x.self != "" && m.SenderID == x.self
	return m
}
