package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
)

// ListUsersHandler returns every other user with their live presence.
func ListUsersHandler(users *services.UserService, hub *RoomManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		self, _ := currentUser(c)
		all, err := users.ListUsers(c.UserContext())
		if err != nil {
			return failErr(c, err)
		}

		out := make([]models.User, 0, len(all))
		for _, u := range all {
			if u.ID == self {
				continue
			}
			out = append(out, withPresence(u, hub))
		}
		return reply(c, fiber.StatusOK, "", out)
	}
}

// GetProfileHandler returns one user, or the caller when the id is "me".
func GetProfileHandler(users *services.UserService, hub *RoomManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if id == "me" {
			id, _ = currentUser(c)
		}
		u, err := users.GetUser(c.UserContext(), id)
		if err != nil {
			return failErr(c, err)
		}
		return reply(c, fiber.StatusOK, "", withPresence(u, hub))
	}
}

func withPresence(u models.User, hub *RoomManager) models.User {
	u.Status = models.PresenceOffline
	if hub.IsUserOnline(u.ID) {
		u.Status = models.PresenceOnline
	}
	return u
}
