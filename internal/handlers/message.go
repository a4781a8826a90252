package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
)

// dispatcher handles the frames of one peer.
type dispatcher struct {
	chat *services.ChatService
	hub  *RoomManager
	peer *Peer
	log  zerolog.Logger
}

func (d *dispatcher) handle(ctx context.Context, msgType int, msg []byte) {
	want := websocket.TextMessage
	if d.peer.codec.Binary() {
		want = websocket.BinaryMessage
	}
	if msgType != want {
		return
	}

	p, err := d.peer.codec.Decode(msg)
	if err != nil {
		d.log.Debug().Err(err).Msg("[ws] undecodable frame")
		d.send(models.Frame{Event: models.EventError, Error: "malformed frame"})
		return
	}

	switch p.Event {
	case models.EventJoinRoom:
		d.handleJoin(ctx, p)
	case models.EventLeaveRoom:
		d.handleLeave()
	case models.EventChatMessage:
		d.handleChat(ctx, p)
	case models.EventTyping, models.EventTypingStopped:
		d.handleTyping(p)
	default:
		d.log.Debug().Str("event", p.Event).Msg("[ws] unknown event")
		d.send(models.Frame{Event: models.EventError, Ack: p.Ack, Error: "unknown event " + p.Event})
	}
}

func (d *dispatcher) handleJoin(ctx context.Context, p codec.Packet) {
	var roomID string
	if err := p.Bind(&roomID); err != nil || roomID == "" {
		d.send(models.Frame{Event: models.EventJoinError, Data: models.JoinErrorPayload{Error: "room id is required"}})
		return
	}

	if _, err := d.chat.RoomFor(ctx, roomID, d.peer.UserID); err != nil {
		reason := "unable to join room"
		if errors.Is(err, services.ErrRoomNotFound) || errors.Is(err, services.ErrNotMember) {
			reason = err.Error()
		} else {
			d.log.Error().Err(err).Str("room", roomID).Msg("[ws] room lookup failed")
		}
		d.send(models.Frame{
			Event: models.EventJoinError,
			Room:  roomID,
			Data:  models.JoinErrorPayload{RoomID: roomID, Error: reason},
		})
		return
	}

	if prev := d.hub.Join(roomID, d.peer); prev != "" {
		d.log.Debug().Str("from", prev).Str("to", roomID).Msg("[ws] switched room")
	}

	history, err := d.chat.GetRecentMessages(ctx, roomID)
	if err != nil {
		d.log.Error().Err(err).Str("room", roomID).Msg("[ws] history load failed")
		history = []models.Message{}
	}
	d.send(models.Frame{Event: models.EventMessageHistory, Room: roomID, Data: history})
}

func (d *dispatcher) handleLeave() {
	if room := d.hub.Leave(d.peer.ID); room != "" {
		d.log.Debug().Str("room", room).Msg("[ws] left room")
	}
}

func (d *dispatcher) handleChat(ctx context.Context, p codec.Packet) {
	var in models.Message
	if err := p.Bind(&in); err != nil {
		d.reject(p.Ack, "malformed message")
		return
	}
	if in.RoomID == "" || d.hub.CurrentRoom(d.peer.ID) != in.RoomID {
		d.reject(p.Ack, "not in room")
		return
	}

	sender := models.User{ID: d.peer.UserID, Name: d.peer.UserName}
	stored, err := d.chat.PostMessage(ctx, sender, in.RoomID, in.Content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage),
			errors.Is(err, services.ErrMessageTooLong),
			errors.Is(err, services.ErrNotMember),
			errors.Is(err, services.ErrRoomNotFound):
			d.reject(p.Ack, err.Error())
		default:
			d.log.Error().Err(err).Str("room", in.RoomID).Msg("[ws] save message failed")
			d.reject(p.Ack, "message not stored")
		}
		return
	}

	if p.Ack != 0 {
		d.send(models.Frame{
			Event: models.EventAck,
			Ack:   p.Ack,
			Data:  models.AckResponse{Status: stored.Status, ID: stored.ID},
		})
	}
	d.hub.Broadcast(in.RoomID, models.Frame{Event: models.EventChatMessage, Room: in.RoomID, Data: stored}, d.peer.ID)
}

func (d *dispatcher) handleTyping(p codec.Packet) {
	var in models.TypingPayload
	_ = p.Bind(&in)

	room := d.hub.CurrentRoom(d.peer.ID)
	if room == "" || (in.RoomID != "" && in.RoomID != room) {
		return
	}
	out := models.TypingPayload{RoomID: room, SenderID: d.peer.UserID}
	d.hub.Broadcast(room, models.Frame{Event: p.Event, Room: room, Data: out}, d.peer.ID)
}

func (d *dispatcher) reject(ack uint64, reason string) {
	if ack == 0 {
		d.send(models.Frame{Event: models.EventError, Error: reason})
		return
	}
	d.send(models.Frame{Event: models.EventAck, Ack: ack, Error: reason})
}

func (d *dispatcher) send(f models.Frame) {
	if err := d.peer.Send(f); err != nil {
		d.log.Warn().Err(err).Str("event", f.Event).Msg("[ws] write failed")
	}
}
