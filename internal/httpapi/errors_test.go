package httpapi

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func appReturning(err error) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(zerolog.Nop())})
	app.Get("/boom", func(c *fiber.Ctx) error { return err })
	return app
}

func TestErrorHandler(t *testing.T) {
	t.Run("rich errors keep status and text code", func(t *testing.T) {
		err := goerrors.New("chat not found", goerrors.CategoryNotFound).
			WithTextCode("CHAT_NOT_FOUND").
			WithCode(goerrors.CodeNotFound)

		resp, testErr := appReturning(err).Test(httptest.NewRequest("GET", "/boom", nil))

		assert.NoError(t, testErr)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

		var body errorBody
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "chat not found", body.Error.Message)
		assert.Equal(t, "CHAT_NOT_FOUND", body.Error.TextCode)
	})

	t.Run("validation errors become field level 400s", func(t *testing.T) {
		err := validation.Errors{"mobileNumber": errors.New("cannot be blank")}

		resp, testErr := appReturning(err).Test(httptest.NewRequest("GET", "/boom", nil))

		assert.NoError(t, testErr)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("fiber errors keep their status", func(t *testing.T) {
		resp, testErr := appReturning(fiber.ErrUpgradeRequired).Test(httptest.NewRequest("GET", "/boom", nil))

		assert.NoError(t, testErr)
		assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
	})

	t.Run("unknown errors are opaque 500s", func(t *testing.T) {
		resp, testErr := appReturning(errors.New("sql: connection refused")).
			Test(httptest.NewRequest("GET", "/boom", nil))

		assert.NoError(t, testErr)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		var body errorBody
		assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "internal server error", body.Error.Message)
		assert.NotContains(t, body.Error.Message, "sql")
	})
}
