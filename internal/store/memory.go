package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

type roomRecord struct {
	Room    models.Room `json:"room"`
	Members []string    `json:"members"`
}

// Memory keeps everything in maps guarded by one lock.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]Account
	byName   map[string]string
	rooms    map[string]*roomRecord
	messages map[string][]models.Message
}

func NewMemory() *Memory {
	return &Memory{
		users:    make(map[string]Account),
		byName:   make(map[string]string),
		rooms:    make(map[string]*roomRecord),
		messages: make(map[string][]models.Message),
	}
}

func (m *Memory) CreateUser(_ context.Context, acc Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[acc.User.Name]; ok {
		return ErrConflict
	}
	m.users[acc.User.ID] = acc
	m.byName[acc.User.Name] = acc.User.ID
	return nil
}

func (m *Memory) UserByName(_ context.Context, name string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	if !ok {
		return Account{}, ErrNotFound
	}
	return m.users[id], nil
}

func (m *Memory) UserByID(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return acc.User, nil
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.users))
	for _, acc := range m.users {
		out = append(out, acc.User)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateRoom(_ context.Context, r models.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[r.ID]; ok {
		return ErrConflict
	}
	rec := &roomRecord{Room: r, Members: memberIDs(r)}
	rec.Room.Members = nil
	m.rooms[r.ID] = rec
	return nil
}

func (m *Memory) Room(_ context.Context, id string) (models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.rooms[id]
	if !ok {
		return models.Room{}, ErrNotFound
	}
	return m.resolve(rec), nil
}

func (m *Memory) ListRooms(_ context.Context) ([]models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Room, 0, len(m.rooms))
	for _, rec := range m.rooms {
		out = append(out, m.resolve(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) AddMembers(_ context.Context, roomID string, userIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rooms[roomID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range userIDs {
		if !slices.Contains(rec.Members, id) {
			rec.Members = append(rec.Members, id)
		}
	}
	return nil
}

func (m *Memory) SaveMessage(_ context.Context, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[msg.RoomID] = append(m.messages[msg.RoomID], msg)
	return nil
}

func (m *Memory) RecentMessages(_ context.Context, roomID string, limit int) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(tail(m.messages[roomID], limit)), nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) resolve(rec *roomRecord) models.Room {
	r := rec.Room
	r.Members = make([]models.User, 0, len(rec.Members))
	for _, id := range rec.Members {
		if acc, ok := m.users[id]; ok {
			r.Members = append(r.Members, acc.User)
		}
	}
	return r
}
