package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
)

func SignupHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid request")
		}
		res, err := users.Register(c.UserContext(), req)
		if err != nil {
			return failErr(c, err)
		}
		return reply(c, fiber.StatusCreated, "User registered", res)
	}
}

func LoginHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fail(c, fiber.StatusBadRequest, "Invalid request")
		}
		res, err := users.Login(c.UserContext(), req)
		if err != nil {
			return failErr(c, err)
		}
		return reply(c, fiber.StatusOK, "Logged in", res)
	}
}

// LogoutHandler acknowledges a logout. Tokens are stateless and simply
// dropped by the client.
func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return reply[any](c, fiber.StatusOK, "Logged out", nil)
	}
}
