package blog

import (
	"log/slog"
	"mime/multipart"
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
	app.Get("/blog-posts", h.list)
}

func (h *Handler) RegisterAdminRoutes(app fiber.Router) {
	app.Post("/blog-posts", h.create)
	app.Delete("/blog-posts/:id", h.delete)
}

func (h *Handler) list(c *fiber.Ctx) error {
	posts, err := h.service.List(c.UserContext())
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to fetch blog posts")
	}
	return c.JSON(posts)
}

func (h *Handler) create(c *fiber.Ctx) error {
	// The image is optional, so a body that is not multipart just has none.
	var image *multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		if files := form.File["image"]; len(files) > 0 {
			image = files[0]
		}
	}

	p, err := h.service.Create(c.UserContext(), c.FormValue("title"), c.FormValue("content"), image)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to create blog post")
	}

	resp := fiber.Map{"id": p.ID, "message": "Blog post created successfully."}
	if p.Image != nil {
		resp["image"] = *p.Image
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *Handler) delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid blog post id"})
	}
	n, err := h.service.Delete(c.UserContext(), id)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to delete blog post")
	}
	return c.JSON(fiber.Map{"deleted": n})
}
