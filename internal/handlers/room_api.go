package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/services"
)

// RoomHandlers serves the room endpoints under /api/user/room.
type RoomHandlers struct {
	chat *services.ChatService
}

func NewRoomHandlers(chat *services.ChatService) *RoomHandlers {
	return &RoomHandlers{chat: chat}
}

func (h *RoomHandlers) Create(c *fiber.Ctx) error {
	var req models.RoomCreationData
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}
	self, _ := currentUser(c)
	room, err := h.chat.CreateRoom(c.UserContext(), self, req)
	if err != nil {
		return failErr(c, err)
	}
	return reply(c, fiber.StatusCreated, "Room created", room)
}

func (h *RoomHandlers) List(c *fiber.Ctx) error {
	self, _ := currentUser(c)
	rooms, err := h.chat.RoomsFor(c.UserContext(), self)
	if err != nil {
		return failErr(c, err)
	}
	return reply(c, fiber.StatusOK, "", rooms)
}

func (h *RoomHandlers) Available(c *fiber.Ctx) error {
	self, _ := currentUser(c)
	rooms, err := h.chat.AvailableRooms(c.UserContext(), self)
	if err != nil {
		return failErr(c, err)
	}
	return reply(c, fiber.StatusOK, "", rooms)
}

func (h *RoomHandlers) Get(c *fiber.Ctx) error {
	self, _ := currentUser(c)
	room, err := h.chat.RoomFor(c.UserContext(), c.Params("id"), self)
	if err != nil {
		return failErr(c, err)
	}
	return reply(c, fiber.StatusOK, "", room)
}

func (h *RoomHandlers) Join(c *fiber.Ctx) error {
	self, _ := currentUser(c)
	room, err := h.chat.JoinRoom(c.UserContext(), c.Params("id"), self)
	if err != nil {
		return failErr(c, err)
	}
	return reply(c, fiber.StatusOK, "Joined room", room)
}

func (h *RoomHandlers) AddMembers(c *fiber.Ctx) error {
	var req models.AddMembersRequest
	if err := c.BodyParser(&req); err != nil || req.MembersData.RoomID == "" {
		return fail(c, fiber.StatusBadRequest, "Invalid request")
	}
	self, _ := currentUser(c)
	room, err := h.chat.AddMembers(c.UserContext(), self, req.MembersData)
	if err != nil {
		return failErr(c, err)
	}
	return reply(c, fiber.StatusOK, "Members added", room)
}

// Routes mounts the room endpoints on r.
func (h *RoomHandlers) Routes(r fiber.Router) {
	r.Post("/create", h.Create)
	r.Get("/list", h.List)
	r.Get("/available_room", h.Available)
	r.Post("/join/:id", h.Join)
	r.Put("/add_member", h.AddMembers)
	r.Get("/:id", h.Get)
}
