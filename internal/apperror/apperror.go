// Package apperror holds the error kinds shared by every feature package and
// maps them onto HTTP responses.
package apperror

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("already exists")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidToken          = errors.New("invalid token")
	ErrExpiredOrInvalidToken = errors.New("token is invalid or expired")
	ErrTooManyRequests       = errors.New("too many requests")
)

// Validation wraps ErrValidation with a client-facing message.
func Validation(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

// NotFound wraps ErrNotFound with a client-facing message.
func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

// New attaches a client-facing message to any kind.
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Status returns the HTTP status for err. Unknown errors are internal failures.
func Status(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredOrInvalidToken):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrTooManyRequests):
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// Respond writes {"error": msg} with the status mapped from err. Internal
// failures are logged with detail and reported with the fallback message.
func Respond(c *fiber.Ctx, log *slog.Logger, err error, fallback string) error {
	status := Status(err)
	if status == fiber.StatusInternalServerError {
		if log != nil {
			log.Error(fallback, "error", err, "method", c.Method(), "path", c.Path())
		}
		return c.Status(status).JSON(fiber.Map{"error": fallback})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// ErrorHandler is installed as fiber.Config.ErrorHandler so framework errors
// (unknown route, body limit) use the same envelope.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}
		return Respond(c, log, err, "internal server error")
	}
}
