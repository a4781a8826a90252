package utils

import (
	"github.com/gofiber/websocket/v2"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
)

// SendFrame encodes a frame with the connection's codec and writes it.
// Fiber's websocket implementation is not safe for concurrent writes; the
// caller must hold the connection's write lock.
func SendFrame(c *websocket.Conn, cd codec.Codec, f models.Frame) error {
	b, err := cd.Encode(f)
	if err != nil {
		return err
	}
	msgType := websocket.TextMessage
	if cd.Binary() {
		msgType = websocket.BinaryMessage
	}
	return c.WriteMessage(msgType, b)
}
