package roomapi_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/AmanSingh544/ChatAppResponsive/internal/app"
	"github.com/AmanSingh544/ChatAppResponsive/internal/config"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/roomapi"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
)

func serve(t *testing.T) func() *roomapi.Client {
	t.Helper()
	srv := app.NewServer(app.NewDeps(store.NewMemory(), config.Defaults().Server))
	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Listener(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return func() *roomapi.Client {
		c := roomapi.New("http://chat.test/")
		c.HTTP = &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
		return c
	}
}

func TestAuthFlow(t *testing.T) {
	client := serve(t)()
	ctx := context.Background()

	_, err := client.GetRooms(ctx)
	assert.ErrorIs(t, err, roomapi.ErrUnauthenticated)

	res, err := client.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Name)
	assert.Equal(t, res.Token, client.Token)

	_, err = client.Register(ctx, "alice", "pw")
	var apiErr *roomapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusBadRequest, apiErr.Status)

	_, err = client.Login(ctx, "alice", "nope")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusUnauthorized, apiErr.Status)

	me, err := client.GetUser(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)

	require.NoError(t, client.Logout(ctx))
	assert.Empty(t, client.Token)
}

func TestBadTokenIsRejected(t *testing.T) {
	client := serve(t)()
	client.Token = "not-a-jwt"

	_, err := client.GetAllUsers(context.Background())
	var apiErr *roomapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid token", apiErr.Message)
}

func TestRoomEndpoints(t *testing.T) {
	newClient := serve(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice, bob := newClient(), newClient()
	a, err := alice.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	b, err := bob.Register(ctx, "bob", "pw")
	require.NoError(t, err)

	lobby, err := alice.CreateRoom(ctx, models.RoomCreationData{Name: "lobby", Purpose: "chat"})
	require.NoError(t, err)
	secret, err := alice.CreateRoom(ctx, models.RoomCreationData{Name: "secret", Purpose: "work", IsPrivate: true})
	require.NoError(t, err)

	_, err = alice.CreateRoom(ctx, models.RoomCreationData{Name: "bad", Purpose: "nope"})
	var apiErr *roomapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusBadRequest, apiErr.Status)

	available, err := bob.GetAvailableRooms(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, lobby.ID, available[0].ID)

	_, err = bob.GetRoomByID(ctx, secret.ID)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusForbidden, apiErr.Status)

	_, err = bob.JoinRoom(ctx, secret.ID)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusForbidden, apiErr.Status)

	joined, err := bob.JoinRoom(ctx, lobby.ID)
	require.NoError(t, err)
	assert.True(t, joined.HasMember(b.User.ID))

	added, err := alice.AddMembers(ctx, models.RoomMembers{RoomID: secret.ID, Members: []string{b.User.ID}})
	require.NoError(t, err)
	assert.True(t, added.HasMember(b.User.ID))

	rooms, err := bob.GetRooms(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	got, err := bob.GetRoomByID(ctx, secret.ID)
	require.NoError(t, err)
	assert.Equal(t, "secret", got.Name)

	_, err = bob.GetRoomByID(ctx, "missing")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, fasthttp.StatusNotFound, apiErr.Status)

	users, err := alice.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, b.User.ID, users[0].ID)
	assert.Equal(t, models.PresenceOffline, users[0].Status)
	assert.NotEqual(t, a.User.ID, users[0].ID)
}
