package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler is the fiber.Config ErrorHandler. Controllers map domain
// errors to *fiber.Error; anything else is a 500.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse("Validation failed", verr.Fields))
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Message, nil))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error", nil))
}
