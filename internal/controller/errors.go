package controller

import (
	"errors"

	"chatproxy-be/internal/pkg/serverutils"
	"chatproxy-be/internal/service"
	"chatproxy-be/pkg/flowise"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// toHTTPError maps service errors to *fiber.Error for serverutils.ErrorHandler.
func toHTTPError(err error) error {
	var (
		fetchErr    *service.ReconcileFetchError
		providerErr *flowise.ProviderError
		verr        *serverutils.ValidationError
		ferr        *fiber.Error
	)

	switch {
	case errors.As(err, &verr), errors.As(err, &ferr):
		return err
	case errors.Is(err, service.ErrChatflowNotEntitled):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSessionInactive),
		errors.Is(err, service.ErrSyncInProgress),
		errors.Is(err, service.ErrSuspiciousEmptyCatalog):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUploadTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, flowise.ErrProviderUnavailable):
		return fiber.NewError(fiber.StatusServiceUnavailable, "Chat provider unavailable")
	case errors.As(err, &fetchErr), errors.As(err, &providerErr):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return err
}

func callerFrom(ctx *fiber.Ctx) service.Caller {
	userId, _ := ctx.Locals(serverutils.LocalUserId).(string)
	role, _ := ctx.Locals(serverutils.LocalRole).(string)
	return service.Caller{UserId: userId, Role: role}
}

func sessionIdParam(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}
	return id, nil
}
