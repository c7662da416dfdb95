package handlers

import (
	"errors"
	"log"

	"pinboard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
)

// ErrorHandler turns every error returned by a handler into
// {"error": <status text>, "message": <detail>}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code, message := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   statusText(code),
		"message": message,
	})
}

func statusFor(err error) (int, string) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	message := err.Error()
	var se *services.Error
	if errors.As(err, &se) {
		message = se.Message
	}

	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		return fiber.StatusBadRequest, message
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, message
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden, message
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusUnauthorized, message
	}
	return fiber.StatusInternalServerError, "Internal Server Error"
}

func statusText(code int) string {
	if text := fiberutils.StatusMessage(code); text != "" {
		return text
	}
	return "Error"
}
