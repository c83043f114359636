// Package httpapi holds the fiber glue shared by the feature handlers:
// request binding, validation and error mapping.
package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/logging"
)

var validate = validator.New()

// Bind parses the JSON body into dst and runs its `validate` tags.
func Bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Fail converts a service error into a *fiber.Error. Storage failures are
// logged here and hidden from the client.
func Fail(logger *logrus.Logger, module, fn string, err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrReferentialIntegrity):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidTransition):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	}
	logging.LogError(logger, module, fn, "service call", nil, err)
	return fiber.NewError(fiber.StatusInternalServerError, "DB Error")
}

// ErrorHandler renders every error as {"error": msg}.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
		}
		logger.WithField("path", c.Path()).Error("unexpected error: " + err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "unexpected server error",
		})
	}
}

// QueryUint reads a required positive integer query parameter.
func QueryUint(c *fiber.Ctx, key string) (uint, error) {
	v := c.Query(key)
	if v == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" is required")
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" is invalid")
	}
	return uint(n), nil
}

func ParamUint(c *fiber.Ctx, key string) (uint, error) {
	n, err := strconv.ParseUint(c.Params(key), 10, 64)
	if err != nil || n == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" is invalid")
	}
	return uint(n), nil
}

// Actor is the operator name recorded in the audit trail.
func Actor(c *fiber.Ctx) string {
	if a := strings.TrimSpace(c.Get("X-Actor")); a != "" {
		return a
	}
	return "anonymous"
}
