// Package handlers contains the Fiber HTTP handlers. Each handler binds the
// request, delegates to a service and maps the result or sentinel error onto
// the uniform response envelope.
package handlers

import (
	"errors"
	"log/slog"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/middleware"
	"github.com/fleetstack/fleet-backend/internal/policy"
	"github.com/fleetstack/fleet-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

func success(c *fiber.Ctx, status int, message string, obj any) error {
	return c.Status(status).JSON(dto.SuccessResponse(message, obj, status))
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.FailureResponse(message, status))
}

// internalError logs the unexpected error with request context and returns a
// generic 500 envelope so internals never leak to the client.
func internalError(c *fiber.Ctx, action string, err error) error {
	slog.Error("request failed",
		"action", action,
		"path", c.Path(),
		"request_id", c.Locals("requestid"),
		"error", err.Error(),
	)
	return failure(c, fiber.StatusInternalServerError, "An unexpected error occurred.")
}

// requireActor resolves the authenticated actor; on failure it writes a 401
// envelope and returns ok=false.
func requireActor(c *fiber.Ctx) (policy.Actor, error, bool) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		return policy.Actor{}, failure(c, fiber.StatusUnauthorized, "Invalid or expired access token."), false
	}
	return actor, nil, true
}

// notFoundOrForbidden maps the shared lookup sentinels; handled is false
// when the error was not one of them.
func notFoundOrForbidden(c *fiber.Ctx, err error, notFoundMsg string) (resp error, handled bool) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return failure(c, fiber.StatusForbidden, "You do not have permission to access this resource."), true
	case errors.Is(err, services.ErrVehicleNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTelemetryNotFound):
		return failure(c, fiber.StatusNotFound, notFoundMsg), true
	}
	return nil, false
}

// idParam parses a positive integer route parameter.
func idParam(c *fiber.Ctx, name string) (uint, bool) {
	id, err := c.ParamsInt(name)
	if err != nil || id < 1 {
		return 0, false
	}
	return uint(id), true
}
