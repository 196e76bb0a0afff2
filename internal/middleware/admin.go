package middleware

import (
	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired gates a route on the ADMIN role claim. It must run after
// JWTProtected.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := CurrentActor(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.FailureResponse("Invalid or expired access token.", fiber.StatusUnauthorized))
		}
		if !actor.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(
				dto.FailureResponse("Admin access required.", fiber.StatusForbidden))
		}
		return c.Next()
	}
}
