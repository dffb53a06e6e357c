package notification

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/klimatholod/store-backend/internal/apperror"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(s *Service, log *slog.Logger) *Handler {
	return &Handler{service: s, log: log}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/notifications", h.list)
	app.Post("/notifications", h.create)
	app.Put("/notifications/:id/read", h.markRead)
	app.Delete("/notifications/:id/delete", h.delete)
}

type createRequest struct {
	Name       text    `json:"name"`
	Phone      text    `json:"phone"`
	Email      text    `json:"email"`
	Address    text    `json:"address"`
	Items      text    `json:"items"`
	TotalPrice text    `json:"totalPrice"`
	Comments   text    `json:"comments"`
	Type       *string `json:"type"`
}

func (h *Handler) list(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to fetch notifications")
	}
	return c.JSON(items)
}

func (h *Handler) create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	id, err := h.service.Create(c.UserContext(), Notification{
		Name:       string(req.Name),
		Phone:      string(req.Phone),
		Email:      string(req.Email),
		Address:    string(req.Address),
		Items:      string(req.Items),
		TotalPrice: string(req.TotalPrice),
		Comments:   string(req.Comments),
		Type:       req.Type,
	})
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to create notification")
	}
	return c.JSON(fiber.Map{"id": id, "message": "Notification created"})
}

func (h *Handler) markRead(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
	}
	if err := h.service.MarkRead(c.UserContext(), id); err != nil {
		return apperror.Respond(c, h.log, err, "failed to mark notification as read")
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *Handler) delete(c *fiber.Ctx) error {
	id, ok := h.parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification id"})
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return apperror.Respond(c, h.log, err, "failed to delete notification")
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

func (h *Handler) parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}
