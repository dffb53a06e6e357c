package order

import (
	"encoding/json"
	"fmt"
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

func NewHandler(s *Service, log *slog.Logger) *Handler {
	return &Handler{service: s, log: log}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/orders", h.createOrder)
	app.Get("/orders/user/:userId", h.listUserOrders)
}

// RegisterAdminRoutes mounts the routes that sit behind the admin guard when
// it is enabled.
func (h *Handler) RegisterAdminRoutes(app fiber.Router) {
	app.Get("/orders/all", h.listAllOrders)
	app.Put("/orders/:orderId/status", h.updateStatus)
}

// flexInt accepts a JSON number or a string holding an integer, since form
// clients often send ids as strings. null decodes to zero.
type flexInt int64

func (n *flexInt) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*n = 0
		return nil
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", b)
	}
	*n = flexInt(v)
	return nil
}

type createOrderRequest struct {
	UserID          flexInt         `json:"user_id"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          Status          `json:"status"`
	Items           []itemRequest   `json:"items"`
	ShippingAddress *string         `json:"shipping_address"`
	ContactPhone    *string         `json:"contact_phone"`
	Comments        *string         `json:"comments"`
}

type itemRequest struct {
	ProductID flexInt         `json:"product_id"`
	Quantity  flexInt         `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
}

func (h *Handler) createOrder(c *fiber.Ctx) error {
	req := new(createOrderRequest)
	if err := c.BodyParser(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	o := Order{
		UserID:          int64(req.UserID),
		TotalPrice:      req.TotalPrice,
		Status:          req.Status,
		ShippingAddress: req.ShippingAddress,
		ContactPhone:    req.ContactPhone,
		Comments:        req.Comments,
		Items:           make([]Item, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		o.Items = append(o.Items, Item{
			ProductID: int64(it.ProductID),
			Quantity:  int(it.Quantity),
			Price:     it.Price,
			Name:      it.Name,
		})
	}

	id, err := h.service.Create(c.UserContext(), o)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to create order")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"orderId": id,
	})
}

func (h *Handler) listUserOrders(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("userId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	orders, err := h.service.ListByUser(c.UserContext(), userID)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to fetch orders")
	}
	return c.JSON(orders)
}

func (h *Handler) listAllOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to fetch all orders")
	}
	return c.JSON(orders)
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("orderId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid order id"})
	}
	var body struct {
		Status Status `json:"status"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := h.service.UpdateStatus(c.UserContext(), id, body.Status); err != nil {
		return apperror.Respond(c, h.log, err, "failed to update order status")
	}
	return c.JSON(fiber.Map{"message": "Order status updated successfully"})
}
