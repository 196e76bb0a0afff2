package middleware

import (
	"errors"

	"github.com/fleetstack/fleet-backend/internal/config"
	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/policy"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTProtected rejects requests without a valid, unexpired bearer token.
func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(
				dto.FailureResponse("Invalid or expired access token.", fiber.StatusUnauthorized))
		},
	})
}

var errNoActor = errors.New("no authenticated user in request context")

// CurrentActor extracts the authenticated principal stored by JWTProtected.
// Claims that do not match the expected shape are treated as absent.
func CurrentActor(c *fiber.Ctx) (policy.Actor, error) {
	tok, ok := c.Locals("user").(*jwt.Token)
	if !ok || tok == nil {
		return policy.Actor{}, errNoActor
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return policy.Actor{}, errNoActor
	}
	id, ok := claims["id"].(float64)
	if !ok || id <= 0 {
		return policy.Actor{}, errNoActor
	}
	role, ok := claims["role"].(string)
	if !ok || !models.ValidRole(role) {
		return policy.Actor{}, errNoActor
	}
	return policy.Actor{ID: uint(id), Role: role}, nil
}
