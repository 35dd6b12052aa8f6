package httpapi

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/rs/zerolog"
)

// errorBody is the wire shape for every failed request.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message  string `json:"message"`
	TextCode string `json:"text_code,omitempty"`
	Fields   any    `json:"fields,omitempty"`
}

// NewErrorHandler returns the app-level error handler. Rich errors keep their
// category-derived status and text code; validation errors become field-level
// 400s; anything else is an opaque 500 so internals never leak to clients.
func NewErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var vErr validation.Errors
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(errorBody{Error: errorDetail{
				Message: "validation failed",
				Fields:  vErr,
			}})
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			status := richErr.Code
			if status < fiber.StatusBadRequest || status > 599 {
				status = fiber.StatusInternalServerError
			}
			if status >= fiber.StatusInternalServerError {
				logger.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(status).JSON(errorBody{Error: errorDetail{
				Message:  richErr.Message,
				TextCode: richErr.TextCode,
			}})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(errorBody{Error: errorDetail{Message: fiberErr.Message}})
		}

		logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled request error")
		return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: errorDetail{
			Message: "internal server error",
		}})
	}
}
