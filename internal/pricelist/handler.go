package pricelist

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/klimatholod/store-backend/internal/apperror"
)

type Handler struct {
	file *File
	log  *slog.Logger
}

func NewHandler(f *File, log *slog.Logger) *Handler {
	return &Handler{file: f, log: log}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/price", h.get)
}

func (h *Handler) RegisterAdminRoutes(app fiber.Router) {
	app.Put("/update-discount-Pricelist", h.updateDiscount)
}

func (h *Handler) get(c *fiber.Ctx) error {
	data, err := h.file.Read()
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to read price list")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}

func (h *Handler) updateDiscount(c *fiber.Ctx) error {
	var body struct {
		Discount json.RawMessage `json:"Discount"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.file.SetDiscount(body.Discount); err != nil {
		return apperror.Respond(c, h.log, err, "failed to update price list")
	}
	return c.JSON(fiber.Map{"message": "Discount updated"})
}
