package product

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/shopspring/decimal"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Get("/products", h.getProducts)
	app.Get("/products/:id", h.getProduct)
}

func (h *Handler) RegisterAdminRoutes(app fiber.Router) {
	app.Post("/products", h.createProduct)
	app.Put("/products/:id/image", h.replaceImage)
	app.Put("/products/:id", h.updateProduct)
	app.Delete("/products/:id", h.deleteProduct)
	app.Put("/update-discounts", h.updateDiscounts)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	products, err := h.service.List(c.UserContext())
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to fetch products")
	}
	return c.JSON(products)
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	p, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to fetch product")
	}
	return c.JSON(p)
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "multipart form with images is required"})
	}

	price, err := decimal.NewFromString(strings.TrimSpace(c.FormValue("price")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "price must be a number"})
	}

	var specs []Spec
	if raw := strings.TrimSpace(c.FormValue("specs")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &specs); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "specs must be a JSON list"})
		}
	}

	p := Product{
		Name:            strings.TrimSpace(c.FormValue("name")),
		Description:     c.FormValue("description"),
		FullDescription: c.FormValue("fullDescription"),
		Price:           price,
		Category:        c.FormValue("category"),
		Specs:           specs,
	}
	if p.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	id, err := h.service.Create(c.UserContext(), p, form.File["image"])
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to create product")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id, "message": "Product created"})
}

type updateProductRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	FullDescription string          `json:"fullDescription"`
	Price           decimal.Decimal `json:"price"`
	Discount        decimal.Decimal `json:"discount"`
	Category        string          `json:"category"`
	Specs           []Spec          `json:"specs"`
}

func validateProductPayload(p *updateProductRequest) map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(p.Name) == "" {
		errs["name"] = "name is required"
	}
	if strings.TrimSpace(p.Description) == "" {
		errs["description"] = "description is required"
	}
	if strings.TrimSpace(p.FullDescription) == "" {
		errs["fullDescription"] = "fullDescription is required"
	}
	if !p.Price.IsPositive() {
		errs["price"] = "price must be a positive number"
	}
	if strings.TrimSpace(p.Category) == "" {
		errs["category"] = "category is required"
	}
	return errs
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	req := new(updateProductRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	// report every missing field at once
	if ves := validateProductPayload(req); len(ves) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "required fields: name, description, fullDescription, price, category", "errors": ves})
	}

	err = h.service.Update(c.UserContext(), Product{
		ID:              id,
		Name:            req.Name,
		Description:     req.Description,
		FullDescription: req.FullDescription,
		Price:           req.Price,
		Discount:        req.Discount.Round(2),
		Category:        req.Category,
		Specs:           req.Specs,
	})
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to update product")
	}
	return c.JSON(fiber.Map{"message": "Product updated"})
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return apperror.Respond(c, h.log, err, "failed to delete product")
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *Handler) replaceImage(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid product id"})
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image file is required"})
	}
	index, err := strconv.Atoi(strings.TrimSpace(c.FormValue("index")))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image index must be between 0 and 2"})
	}

	path, err := h.service.ReplaceImage(c.UserContext(), id, index, fh)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to update image")
	}
	return c.JSON(fiber.Map{"message": "Image updated", "newImage": path})
}

func (h *Handler) updateDiscounts(c *fiber.Ctx) error {
	var body struct {
		Products []DiscountEntry `json:"products"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid payload format"})
	}
	if err := h.service.UpdateDiscounts(c.UserContext(), body.Products); err != nil {
		return apperror.Respond(c, h.log, err, "failed to update discounts")
	}
	return c.JSON(fiber.Map{"message": "Discounts updated"})
}
