package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
)

func newServices(t *testing.T) (*UserService, *ChatService, *Tokens) {
	t.Helper()
	st := store.NewMemory()
	tokens := NewTokens("test-secret", time.Hour)
	return NewUserService(st, tokens), NewChatService(st, 2), tokens
}

func TestRegisterLogin(t *testing.T) {
	users, _, tokens := newServices(t)
	ctx := context.Background()

	res, err := users.Register(ctx, models.RegisterRequest{Name: " raman ", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "raman", res.User.Name)
	assert.NotEmpty(t, res.User.Color)

	claims, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)

	_, err = users.Register(ctx, models.RegisterRequest{Name: "raman", Password: "x"})
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = users.Register(ctx, models.RegisterRequest{Name: "", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = users.Login(ctx, models.LoginRequest{Name: "raman", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	login, err := users.Login(ctx, models.LoginRequest{Name: "raman", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestTokenValidation(t *testing.T) {
	tokens := NewTokens("a", time.Hour)
	tok, err := tokens.Generate("u1", "raman")
	require.NoError(t, err)

	_, err = NewTokens("b", time.Hour).Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokens("a", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRoomMembership(t *testing.T) {
	users, chat, _ := newServices(t)
	ctx := context.Background()
	alice, err := users.Register(ctx, models.RegisterRequest{Name: "alice", Password: "pw"})
	require.NoError(t, err)
	bob, err := users.Register(ctx, models.RegisterRequest{Name: "bob", Password: "pw"})
	require.NoError(t, err)

	_, err = chat.CreateRoom(ctx, alice.User.ID, models.RoomCreationData{Name: "x", Purpose: "party"})
	assert.ErrorIs(t, err, ErrInvalidRoom)

	secret, err := chat.CreateRoom(ctx, alice.User.ID, models.RoomCreationData{Name: "secret", Purpose: "work", IsPrivate: true})
	require.NoError(t, err)
	public, err := chat.CreateRoom(ctx, alice.User.ID, models.RoomCreationData{Name: "lobby", Purpose: "chat"})
	require.NoError(t, err)
	assert.True(t, secret.HasMember(alice.User.ID))

	_, err = chat.JoinRoom(ctx, secret.ID, bob.User.ID)
	assert.ErrorIs(t, err, ErrNotMember)
	_, err = chat.AddMembers(ctx, bob.User.ID, models.RoomMembers{RoomID: secret.ID, Members: []string{bob.User.ID}})
	assert.ErrorIs(t, err, ErrNotMember)

	available, err := chat.AvailableRooms(ctx, bob.User.ID)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, public.ID, available[0].ID)

	joined, err := chat.JoinRoom(ctx, public.ID, bob.User.ID)
	require.NoError(t, err)
	assert.True(t, joined.HasMember(bob.User.ID))

	added, err := chat.AddMembers(ctx, alice.User.ID, models.RoomMembers{RoomID: secret.ID, Members: []string{bob.User.ID, "ghost"}})
	require.NoError(t, err)
	assert.Len(t, added.Members, 2)

	mine, err := chat.RoomsFor(ctx, bob.User.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = chat.Room(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestPostMessage(t *testing.T) {
	users, chat, _ := newServices(t)
	ctx := context.Background()
	alice, err := users.Register(ctx, models.RegisterRequest{Name: "alice", Password: "pw"})
	require.NoError(t, err)
	bob, err := users.Register(ctx, models.RegisterRequest{Name: "bob", Password: "pw"})
	require.NoError(t, err)
	room, err := chat.CreateRoom(ctx, alice.User.ID, models.RoomCreationData{Name: "secret", Purpose: "work", IsPrivate: true})
	require.NoError(t, err)

	_, err = chat.PostMessage(ctx, alice.User, room.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, err = chat.PostMessage(ctx, alice.User, room.ID, strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)
	_, err = chat.PostMessage(ctx, bob.User, room.ID, "hi")
	assert.ErrorIs(t, err, ErrNotMember)

	for _, c := range []string{"one", "two", "three"} {
		m, err := chat.PostMessage(ctx, alice.User, room.ID, c)
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, models.StatusDelivered, m.Status)
	}

	history, err := chat.GetRecentMessages(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Content)
	assert.Equal(t, "three", history[1].Content)

	empty, err := chat.GetRecentMessages(ctx, "quiet")
	require.NoError(t, err)
	assert.NotNil(t, empty)
}

type brokenUsers struct {
	store.Store
	err error
}

func (b brokenUsers) UserByID(ctx context.Context, id string) (models.User, error) {
	if id == "flaky" {
		return models.User{}, b.err
	}
	return b.Store.UserByID(ctx, id)
}

func TestAddMembersLookupFailure(t *testing.T) {
	st := store.NewMemory()
	users := NewUserService(st, NewTokens("test-secret", time.Hour))
	ctx := context.Background()
	alice, err := users.Register(ctx, models.RegisterRequest{Name: "alice", Password: "pw"})
	require.NoError(t, err)

	down := errors.New("connection reset")
	chat := NewChatService(brokenUsers{Store: st, err: down}, 2)
	room, err := chat.CreateRoom(ctx, alice.User.ID, models.RoomCreationData{Name: "secret", Purpose: "work", IsPrivate: true})
	require.NoError(t, err)

	_, err = chat.AddMembers(ctx, alice.User.ID, models.RoomMembers{RoomID: room.ID, Members: []string{"ghost", "flaky"}})
	assert.ErrorIs(t, err, down)

	got, err := chat.Room(ctx, room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}
