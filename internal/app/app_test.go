package app_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanSingh544/ChatAppResponsive/internal/app"
	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/config"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/roomapi"
	"github.com/AmanSingh544/ChatAppResponsive/internal/session"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
	"github.com/AmanSingh544/ChatAppResponsive/internal/transport"
)

const wait = 5 * time.Second

func startServer(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := app.NewServer(app.NewDeps(store.NewMemory(), config.Defaults().Server))
	go func() { _ = srv.Listener(ln) }()
	t.Cleanup(func() { _ = srv.ShutdownWithTimeout(time.Second) })
	return "http://" + ln.Addr().String() + "/"
}

type client struct {
	api  *roomapi.Client
	user models.User
	sess *session.Session
}

func newClient(t *testing.T, base, name string, cd codec.Codec, attempts int) *client {
	t.Helper()
	api := roomapi.New(base)
	res, err := api.Register(context.Background(), name, "pw")
	require.NoError(t, err)

	opts := transport.DefaultOptions()
	opts.ReconnectAttempts = attempts
	opts.ReconnectDelay = 10 * time.Millisecond
	opts.ConnectTimeout = wait
	opts.AckTimeout = wait
	opts.Codec = cd
	tr := transport.New(&transport.WSDialer{ServerURL: base, Codec: cd}, opts)

	sess := session.New(tr, session.Options{UserID: res.User.ID, UserName: res.User.Name})
	t.Cleanup(sess.Close)
	return &client{api: api, user: res.User, sess: sess}
}

func (c *client) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, c.sess.Connect(c.api.Token))
	next(t, c.sess, func(ev session.Event) bool {
		return ev.Kind == session.StateChanged && ev.State == transport.Connected
	})
}

// next returns the first event matching match, skipping the others.
func next(t *testing.T, s *session.Session, match func(session.Event) bool) session.Event {
	t.Helper()
	timeout := time.After(wait)
	for {
		select {
		case ev, ok := <-s.Events():
			require.True(t, ok, "event stream closed")
			if match(ev) {
				return ev
			}
		case <-timeout:
			require.FailNow(t, "timed out waiting for event")
		}
	}
}

func kind(k session.EventKind) func(session.Event) bool {
	return func(ev session.Event) bool { return ev.Kind == k }
}

func TestChatRoundTrip(t *testing.T) {
	base := startServer(t)
	ctx := context.Background()

	alice := newClient(t, base, "alice", codec.JSON, 0)
	bob := newClient(t, base, "bob", codec.CBOR, 0)

	room, err := alice.api.CreateRoom(ctx, models.RoomCreationData{Name: "lobby", Purpose: "chat"})
	require.NoError(t, err)
	_, err = bob.api.JoinRoom(ctx, room.ID)
	require.NoError(t, err)

	alice.connect(t)
	bob.connect(t)

	for _, c := range []*client{alice, bob} {
		require.NoError(t, c.sess.SwitchRoom(room.ID))
		ev := next(t, c.sess, kind(session.HistoryReplaced))
		assert.Equal(t, room.ID, ev.RoomID)
		assert.Empty(t, ev.History)
	}

	sent, err := alice.sess.Send(ctx, room.ID, "  hello bob  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, sent.Status)
	assert.NotEmpty(t, sent.ID)
	assert.True(t, sent.IsOwn)

	got := next(t, bob.sess, kind(session.MessageAppended)).Message
	assert.Equal(t, "hello bob", got.Content)
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, alice.user.ID, got.SenderID)
	assert.False(t, got.IsOwn)

	bob.sess.NotifyTyping(room.ID, true)
	ev := next(t, alice.sess, func(ev session.Event) bool {
		return ev.Kind == session.TypingChanged && ev.Typing != ""
	})
	assert.Equal(t, bob.user.ID, ev.Typing)

	bob.sess.NotifyTyping(room.ID, false)
	next(t, alice.sess, func(ev session.Event) bool {
		return ev.Kind == session.TypingChanged && ev.Typing == ""
	})

	// A late joiner replays the stored message.
	carol := newClient(t, base, "carol", codec.JSON, 0)
	carol.connect(t)
	require.NoError(t, carol.sess.SwitchRoom(room.ID))
	history := next(t, carol.sess, kind(session.HistoryReplaced)).History
	require.Len(t, history, 1)
	assert.Equal(t, "hello bob", history[0].Content)
}

func TestPrivateRoomRefusesJoin(t *testing.T) {
	base := startServer(t)
	ctx := context.Background()

	alice := newClient(t, base, "alice", codec.JSON, 0)
	mallory := newClient(t, base, "mallory", codec.JSON, 0)

	secret, err := alice.api.CreateRoom(ctx, models.RoomCreationData{Name: "secret", Purpose: "work", IsPrivate: true})
	require.NoError(t, err)

	mallory.connect(t)
	require.NoError(t, mallory.sess.SwitchRoom(secret.ID))
	ev := next(t, mallory.sess, kind(session.JoinFailed))

	var joinErr *session.JoinError
	require.True(t, errors.As(ev.Err, &joinErr))
	assert.Equal(t, secret.ID, joinErr.RoomID)
	assert.False(t, mallory.sess.Joined())

	_, err = mallory.sess.Send(ctx, secret.ID, "let me in")
	assert.ErrorIs(t, err, session.ErrNotInRoom)
	assert.Empty(t, mallory.sess.History())
}

func TestInvalidTokenIsRejectedAtHandshake(t *testing.T) {
	base := startServer(t)
	c := newClient(t, base, "alice", codec.JSON, 0)

	require.NoError(t, c.sess.Connect("forged"))
	ev := next(t, c.sess, kind(session.ConnectFailed))
	assert.ErrorIs(t, ev.Err, transport.ErrAuthRejected)

	var hsErr *transport.HandshakeError
	require.True(t, errors.As(ev.Err, &hsErr))
	assert.Equal(t, 401, hsErr.Status)
}
