package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
)

func reply[T any](c *fiber.Ctx, status int, message string, data T) error {
	return c.Status(status).JSON(models.APIResponse[T]{Success: true, Message: message, Data: data})
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(models.APIResponse[any]{Success: false, Message: message})
}

// failErr maps service errors to HTTP statuses. Unknown errors are logged
// and hidden behind a 500.
func failErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidRoom),
		errors.Is(err, services.ErrUserExists):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotMember):
		return fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrRoomNotFound), errors.Is(err, store.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "not found")
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("[api] request failed")
	return fail(c, fiber.StatusInternalServerError, "internal error")
}

// ErrorHandler renders errors returned by handlers and middlewares in the
// response envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fail(c, fe.Code, fe.Message)
	}
	return failErr(c, err)
}

func currentUser(c *fiber.Ctx) (id, name string) {
	id, _ = c.Locals(localUserID).(string)
	name, _ = c.Locals(localUsername).(string)
	return id, name
}
