// Package store persists users, rooms and chat messages for the server.
//
// Three backends implement Store: Memory for tests and single-process use,
// Postgres over a pgx pool, and Pebble as an embedded key-value store.
package store

import (
	"context"
	"errors"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique name is already taken.
	ErrConflict = errors.New("store: already exists")
)

// Account is a user together with its password hash.
type Account struct {
	User         models.User
	PasswordHash string
}

type Store interface {
	CreateUser(ctx context.Context, acc Account) error
	UserByName(ctx context.Context, name string) (Account, error)
	UserByID(ctx context.Context, id string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// CreateRoom stores r; r.Members only needs ids.
	CreateRoom(ctx context.Context, r models.Room) error
	// Room returns the room with its members resolved to users.
	Room(ctx context.Context, id string) (models.Room, error)
	ListRooms(ctx context.Context) ([]models.Room, error)
	// AddMembers adds userIDs to the room, skipping existing members.
	AddMembers(ctx context.Context, roomID string, userIDs []string) error

	SaveMessage(ctx context.Context, m models.Message) error
	// RecentMessages returns at most limit messages of roomID, oldest first.
	RecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error)

	Close() error
}

// memberIDs lists the ids of r's members.
func memberIDs(r models.Room) []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

func tail[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[len(s)-limit:]
	}
	return s
}
