package user

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/klimatholod/store-backend/internal/apperror"
)

type Handler struct {
	service *Service
	log     *slog.Logger
}

type credentialsRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	UserID          int64  `json:"userId"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userInfoRequest struct {
	UserID  int64   `json:"userId"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func NewHandler(service *Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) RegisterPublicRoutes(app fiber.Router) {
	app.Post("/register", h.register)
	app.Post("/login", h.login)
	app.Post("/verify-email", h.verifyEmail)
	app.Post("/resend-verification", h.resendVerification)
	app.Post("/verify-token", h.verifyToken)
	app.Post("/request-password-reset", h.requestPasswordReset)
	app.Post("/reset-password", h.resetPassword)
	app.Post("/change-password", h.changePassword)
	app.Post("/update-user-info", h.updateUserInfo)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
}

func (h *Handler) register(c *fiber.Ctx) error {
	payload := new(credentialsRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}

	msg, err := h.service.Register(c.UserContext(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to register user")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

func (h *Handler) login(c *fiber.Ctx) error {
	payload := new(credentialsRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}

	u, token, err := h.service.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return apperror.Respond(c, h.log, err, "login failed")
	}
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    u,
		"token":   token,
	})
}

func (h *Handler) verifyEmail(c *fiber.Ctx) error {
	payload := new(tokenRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if err := h.service.VerifyEmail(c.UserContext(), payload.Token); err != nil {
		return apperror.Respond(c, h.log, err, "failed to verify email")
	}
	return c.JSON(fiber.Map{"message": "Email verified"})
}

func (h *Handler) verifyToken(c *fiber.Ctx) error {
	payload := new(tokenRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if err := h.service.VerifyToken(c.UserContext(), payload.Token); err != nil {
		return apperror.Respond(c, h.log, err, "failed to check token")
	}
	return c.JSON(fiber.Map{"message": "Token is valid"})
}

func (h *Handler) resendVerification(c *fiber.Ctx) error {
	payload := new(emailRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if err := h.service.ResendVerification(c.UserContext(), payload.Email); err != nil {
		return apperror.Respond(c, h.log, err, "failed to resend verification")
	}
	return c.JSON(fiber.Map{"message": "Verification email sent"})
}

func (h *Handler) requestPasswordReset(c *fiber.Ctx) error {
	payload := new(emailRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if err := h.service.RequestPasswordReset(c.UserContext(), payload.Email); err != nil {
		return apperror.Respond(c, h.log, err, "failed to request password reset")
	}
	return c.JSON(fiber.Map{"message": "Password reset instructions sent"})
}

func (h *Handler) resetPassword(c *fiber.Ctx) error {
	payload := new(tokenRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if err := h.service.ResetPassword(c.UserContext(), payload.Token, payload.NewPassword); err != nil {
		return apperror.Respond(c, h.log, err, "failed to reset password")
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

func (h *Handler) changePassword(c *fiber.Ctx) error {
	payload := new(changePasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if payload.UserID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
	}
	err := h.service.ChangePassword(c.UserContext(), payload.UserID, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		return apperror.Respond(c, h.log, err, "failed to change password")
	}
	return c.JSON(fiber.Map{"message": "Password changed"})
}

func (h *Handler) updateUserInfo(c *fiber.Ctx) error {
	payload := new(userInfoRequest)
	if err := c.BodyParser(payload); err != nil {
		return badBody(c)
	}
	if payload.UserID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "userId is required"})
	}
	if err := h.service.UpdateUserInfo(c.UserContext(), payload.UserID, payload.Phone, payload.Address); err != nil {
		return apperror.Respond(c, h.log, err, "failed to update user info")
	}
	return c.JSON(fiber.Map{"message": "User info updated"})
}
