package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
)

// Locals keys set by the middlewares below.
const (
	localUserID   = "user_id"
	localUsername = "username"
	localCodec    = "codec"
)

// WebSocketHandler serves one socket per authenticated client.
func WebSocketHandler(chat *services.ChatService, hub *RoomManager) fiber.Handler {
	return websocket.New(func(c *websocket.Conn) {
		userID, _ := c.Locals(localUserID).(string)
		username, _ := c.Locals(localUsername).(string)
		cd, ok := c.Locals(localCodec).(codec.Codec)
		if !ok {
			cd = codec.JSON
		}

		ctx, cancel := context.WithCancel(context.Background())
		peer := NewPeer(uuid.NewString(), userID, username, c, cd)
		logger := log.With().Str("peer", peer.ID).Str("user", userID).Logger()

		if hub.RegisterConnection(peer) {
			logger.Info().Msg("[ws] user online")
		} else {
			logger.Debug().Int("sockets", hub.CountUserConnections(userID)).Msg("[ws] additional socket")
		}
		defer func() {
			cancel()
			peer.Close()
			if hub.UnregisterConnection(peer.ID) {
				logger.Info().Msg("[ws] user offline")
			}
			_ = c.Close()
		}()

		if err := peer.Send(models.Frame{
			Event: models.EventConnected,
			Data: models.Welcome{
				UserID:   userID,
				UserName: username,
				Message:  "Welcome to the chat server",
			},
		}); err != nil {
			logger.Warn().Err(err).Msg("[ws] welcome write failed")
			return
		}

		d := &dispatcher{chat: chat, hub: hub, peer: peer, log: logger}
		for {
			msgType, msg, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					logger.Warn().Err(err).Msg("[ws] read failed")
				}
				return
			}
			d.handle(ctx, msgType, msg)
		}
	})
}

// WSUpgradeMiddleware rejects plain HTTP requests and resolves the frame
// codec from the "codec" query parameter.
func WSUpgradeMiddleware(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	cd, err := codec.ByName(c.Query("codec"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	c.Locals(localCodec, cd)
	return c.Next()
}

// AuthMiddleware verifies the access token taken from the access_token
// query parameter or the Authorization header.
func AuthMiddleware(tokens *services.Tokens) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("access_token")
		if token == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		c.Locals(localUserID, claims.UserID)
		c.Locals(localUsername, claims.Username)
		return c.Next()
	}
}
