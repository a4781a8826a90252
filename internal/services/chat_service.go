package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
)

// MaxMessageLength bounds the content of one chat message, in characters.
const MaxMessageLength = 5000

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrNotMember      = errors.New("not a room member")
	ErrInvalidRoom    = errors.New("room name and a known purpose are required")
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content is too long")
)

type ChatService struct {
	store        store.Store
	historyLimit int
	now          func() time.Time
}

func NewChatService(st store.Store, historyLimit int) *ChatService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ChatService{store: st, historyLimit: historyLimit, now: time.Now}
}

// CreateRoom stores a new room with its creator as the first member.
func (s *ChatService) CreateRoom(ctx context.Context, creatorID string, data models.RoomCreationData) (models.Room, error) {
	name := strings.TrimSpace(data.Name)
	if name == "" || !models.ValidPurpose(data.Purpose) {
		return models.Room{}, ErrInvalidRoom
	}
	room := models.Room{
		ID:          uuid.NewString(),
		Name:        name,
		Purpose:     data.Purpose,
		IsPrivate:   data.IsPrivate,
		Description: strings.TrimSpace(data.Description),
		CreatedBy:   creatorID,
		Members:     []models.User{{ID: creatorID}},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return models.Room{}, err
	}
	return s.Room(ctx, room.ID)
}

func (s *ChatService) Room(ctx context.Context, id string) (models.Room, error) {
	room, err := s.store.Room(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return room, ErrRoomNotFound
	}
	return room, err
}

// RoomFor returns the room if userID may see it.
func (s *ChatService) RoomFor(ctx context.Context, id, userID string) (models.Room, error) {
	room, err := s.Room(ctx, id)
	if err != nil {
		return room, err
	}
	if !room.CanAccess(userID) {
		return models.Room{}, ErrNotMember
	}
	return room, nil
}

// RoomsFor lists the rooms userID is a member of.
func (s *ChatService) RoomsFor(ctx context.Context, userID string) ([]models.Room, error) {
	return s.filterRooms(ctx, func(r models.Room) bool { return r.HasMember(userID) })
}

// AvailableRooms lists the public rooms userID has not joined yet.
func (s *ChatService) AvailableRooms(ctx context.Context, userID string) ([]models.Room, error) {
	return s.filterRooms(ctx, func(r models.Room) bool { return !r.IsPrivate && !r.HasMember(userID) })
}

// JoinRoom adds userID to a public room. Private rooms only accept members
// added by an existing member.
func (s *ChatService) JoinRoom(ctx context.Context, roomID, userID string) (models.Room, error) {
	room, err := s.RoomFor(ctx, roomID, userID)
	if err != nil {
		return room, err
	}
	if room.HasMember(userID) {
		return room, nil
	}
	if err := s.store.AddMembers(ctx, roomID, []string{userID}); err != nil {
		return models.Room{}, err
	}
	return s.Room(ctx, roomID)
}

// AddMembers lets an existing member add users to the room. Unknown user
// ids are skipped.
func (s *ChatService) AddMembers(ctx context.Context, actorID string, req models.RoomMembers) (models.Room, error) {
	room, err := s.Room(ctx, req.RoomID)
	if err != nil {
		return room, err
	}
	if !room.HasMember(actorID) {
		return models.Room{}, ErrNotMember
	}

	var ids []string
	for _, id := range req.Members {
		if id == "" || slices.Contains(ids, id) || room.HasMember(id) {
			continue
		}
		if _, err := s.store.UserByID(ctx, id); errors.Is(err, store.ErrNotFound) {
			continue
		} else if err != nil {
			return models.Room{}, fmt.Errorf("look up member %s: %w", id, err)
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		if err := s.store.AddMembers(ctx, room.ID, ids); err != nil {
			return models.Room{}, err
		}
	}
	return s.Room(ctx, room.ID)
}

// PostMessage validates and stores a message from sender in roomID. The
// stored copy carries a server id, timestamp and delivered status.
func (s *ChatService) PostMessage(ctx context.Context, sender models.User, roomID, content string) (models.Message, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return models.Message{}, ErrEmptyMessage
	case utf8.RuneCountInString(content) > MaxMessageLength:
		return models.Message{}, ErrMessageTooLong
	}
	if _, err := s.RoomFor(ctx, roomID, sender.ID); err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:         uuid.NewString(),
		Content:    content,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		RoomID:     roomID,
		Timestamp:  s.now().UTC(),
		Status:     models.StatusDelivered,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// GetRecentMessages returns the history replayed on join, oldest first.
func (s *ChatService) GetRecentMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	msgs, err := s.store.RecentMessages(ctx, roomID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (s *ChatService) filterRooms(ctx context.Context, keep func(models.Room) bool) ([]models.Room, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Room{}
	for _, r := range rooms {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
