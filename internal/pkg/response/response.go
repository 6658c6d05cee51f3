package response

import (
	"errors"

	"btg-funds/internal/core/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a success response
func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 created response
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends an error response
func Error(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(Response{
		Success: false,
		Error:   message,
	})
}

// BadRequest sends a 400 bad request response
func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func Forbidden(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusForbidden, message)
}

// NotFound sends a 404 not found response
func NotFound(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusNotFound, message)
}

// Conflict sends a 409 conflict response
func Conflict(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusConflict, message)
}

// InternalServerError sends a 500 internal server error response
func InternalServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// FromError maps a service error onto a response by its kind.
// Unclassified errors are logged and answered with a generic 500.
func FromError(c *fiber.Ctx, err error) error {
	var e *domain.Error
	if !errors.As(err, &e) {
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("❌ Unhandled error")
		return InternalServerError(c, "Internal Server Error")
	}

	switch e.Kind {
	case domain.KindBadRequest:
		return BadRequest(c, e.Message)
	case domain.KindUnauthorized:
		return Unauthorized(c, e.Message)
	case domain.KindForbidden:
		return Forbidden(c, e.Message)
	case domain.KindNotFound:
		return NotFound(c, e.Message)
	case domain.KindConflict:
		return Conflict(c, e.Message)
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("❌ Unhandled error")
		return InternalServerError(c, "Internal Server Error")
	}
}
