package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxNeverBlocksProducer(t *testing.T) {
	m := newMailbox()
	defer m.close()

	for i := 0; i < 1000; i++ {
		m.push(Event{Kind: MessageAppended, RoomID: string(rune('a' + i%26))})
	}
	for i := 0; i < 1000; i++ {
		ev := <-m.out
		require.Equal(t, string(rune('a'+i%26)), ev.RoomID)
	}
}

func TestMailboxCloseEndsStream(t *testing.T) {
	m := newMailbox()
	m.push(Event{Kind: Joined})
	m.close()
	m.push(Event{Kind: Joined})

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-m.out:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestTypingRearmOutlivesOldTimer(t *testing.T) {
	mock := clock.NewMock()
	expired := make(chan uint64, 4)
	ty := NewTyping(mock, 3*time.Second, func(gen uint64) { expired <- gen })

	assert.True(t, ty.Start("u2"))
	mock.Add(2 * time.Second)
	assert.False(t, ty.Start("u2"))
	mock.Add(2 * time.Second)

	// Only the second arming may fire, after a full expiry.
	select {
	case gen := <-expired:
		t.Fatalf("expired early with generation %d", gen)
	default:
	}
	mock.Add(time.Second)
	gen := <-expired
	assert.True(t, ty.Expire(gen))
	_, ok := ty.Current()
	assert.False(t, ok)
}

func TestTypingStaleGenerationIgnored(t *testing.T) {
	ty := NewTyping(clock.NewMock(), time.Second, func(uint64) {})
	ty.Start("u2")
	stale := ty.gen
	ty.Start("u3")
	assert.False(t, ty.Expire(stale))
	who, _ := ty.Current()
	assert.Equal(t, "u3", who)
}
