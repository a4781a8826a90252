package models

import "time"

// Status is the delivery state of a chat message.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	// StatusFailed marks an own message whose acknowledgement never arrived
	// or was rejected. It is never sent over the wire by the server.
	StatusFailed Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusSending, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return true
	}
	return false
}

// Acknowledged reports whether the server has accepted the message.
func (s Status) Acknowledged() bool {
	return s == StatusDelivered || s == StatusRead
}

type Message struct {
	ID         string    `json:"_id,omitempty"`
	Content    string    `json:"content"`
	SenderID   string    `json:"senderId"`
	SenderName string    `json:"senderName"`
	RoomID     string    `json:"roomId"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
	Status     Status    `json:"status,omitempty"`
	IsOwn      bool      `json:"isOwn,omitempty"`

	// LocalID correlates an optimistically appended message with its
	// acknowledgement. It never leaves the client.
	LocalID string `json:"-"`
}

// WithStatus returns a copy of m carrying status s.
func (m Message) WithStatus(s Status) Message {
	m.Status = s
	return m
}

// Wire event names.
const (
	EventConnected      = "connected"
	EventJoinRoom       = "join room"
	EventLeaveRoom      = "leave room"
	EventMessageHistory = "message history"
	EventJoinError      = "join error"
	EventChatMessage    = "chat message"
	EventAck            = "ack"
	EventTyping         = "typing"
	EventTypingStopped  = "typing stopped"
	EventError          = "error"
)

// Frame is the envelope of every event on the socket. Ack is non-zero on a
// request expecting an acknowledgement and on the matching "ack" reply.
type Frame struct {
	Event string `json:"event"`
	Room  string `json:"room,omitempty"`
	Ack   uint64 `json:"ack,omitempty"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// AckResponse is the payload of an "ack" frame.
type AckResponse struct {
	Status Status `json:"status"`
	ID     string `json:"_id,omitempty"`
}

// TypingPayload is carried by "typing" and "typing stopped".
type TypingPayload struct {
	RoomID   string `json:"roomId"`
	SenderID string `json:"senderId"`
}

// JoinErrorPayload tells a client its "join room" was refused.
type JoinErrorPayload struct {
	RoomID string `json:"roomId"`
	Error  string `json:"error"`
}

// Welcome is sent once right after the socket is accepted.
type Welcome struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Message  string `json:"message,omitempty"`
}
