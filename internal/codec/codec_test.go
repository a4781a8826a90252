package codec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

func TestFrameRoundTrip(t *testing.T) {
	sent := models.Message{
		Content:    "<b>hi</b> & bye",
		SenderID:   "u1",
		SenderName: "Raman",
		RoomID:     "room-42",
		Timestamp:  time.Date(2025, 6, 2, 20, 1, 0, 123456789, time.UTC),
		Status:     models.StatusSending,
		LocalID:    "never-on-the-wire",
	}

	for _, c := range []Codec{JSON, CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Encode(models.Frame{Event: models.EventChatMessage, Ack: 7, Data: sent})
			require.NoError(t, err)

			p, err := c.Decode(b)
			require.NoError(t, err)
			assert.Equal(t, models.EventChatMessage, p.Event)
			assert.Equal(t, uint64(7), p.Ack)
			require.True(t, p.HasData())

			var got models.Message
			require.NoError(t, p.Bind(&got))
			assert.Equal(t, sent.Content, got.Content)
			assert.Equal(t, sent.RoomID, got.RoomID)
			assert.True(t, sent.Timestamp.Equal(got.Timestamp))
			assert.Empty(t, got.LocalID)
		})
	}
}

func TestJSONKeepsMarkupUnescaped(t *testing.T) {
	b, err := JSON.Encode(models.Frame{Event: models.EventChatMessage, Data: models.Message{Content: "a<b"}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"content":"a<b"`)
	assert.NotContains(t, string(b), "\n")
}

func TestBindWithoutData(t *testing.T) {
	for _, c := range []Codec{JSON, CBOR} {
		b, err := c.Encode(models.Frame{Event: models.EventAck, Ack: 3, Error: "not a room member"})
		require.NoError(t, err)

		p, err := c.Decode(b)
		require.NoError(t, err)
		assert.False(t, p.HasData(), c.Name())
		assert.Equal(t, "not a room member", p.Error)
		assert.ErrorIs(t, p.Bind(&models.AckResponse{}), ErrNoPayload)
	}
}

func TestHistoryBatchOrder(t *testing.T) {
	batch := []models.Message{{Content: "one"}, {Content: "two"}, {Content: "three"}}
	for _, c := range []Codec{JSON, CBOR} {
		b, err := c.Encode(models.Frame{Event: models.EventMessageHistory, Room: "r", Data: batch})
		require.NoError(t, err)
		p, err := c.Decode(b)
		require.NoError(t, err)
		assert.Equal(t, "r", p.Room)

		var got []models.Message
		require.NoError(t, p.Bind(&got))
		require.Len(t, got, 3)
		assert.Equal(t, "three", got[2].Content)
	}
}

func TestByName(t *testing.T) {
	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = ByName(" CBOR ")
	require.NoError(t, err)
	assert.True(t, c.Binary())

	_, err = ByName("xml")
	assert.Error(t, err)
}
