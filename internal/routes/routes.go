package routes

import (
	"time"

	"github.com/fleetstack/fleet-backend/internal/config"
	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/handlers"
	"github.com/fleetstack/fleet-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func rateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(
				dto.FailureResponse("Too many requests. Please try again later.", fiber.StatusTooManyRequests))
		},
	})
}

func Setup(
	app *fiber.App,
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	vehicleHandler *handlers.VehicleHandler,
	telemetryHandler *handlers.TelemetryHandler,
	healthHandler *handlers.HealthHandler,
) {
	api := app.Group("/api")

	// General API rate limit: 60 req/min per IP
	api.Use(rateLimiter(60))

	api.Get("/health", healthHandler.Check)

	// Auth: public, with a stricter 10 req/min limit
	auth := api.Group("/auth")
	auth.Use(rateLimiter(10))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)
	auth.Get("/me", authHandler.Me)

	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)

	// Users: list/create/delete are admin only; get/update enforce the
	// self-or-admin policy in the service
	users := api.Group("/users", middleware.JWTProtected(cfg))
	users.Get("/", middleware.AdminRequired(), userHandler.List)
	users.Post("/", middleware.AdminRequired(), userHandler.Create)
	users.Get("/:id", userHandler.Get)
	users.Patch("/:id", userHandler.Update)
	users.Delete("/:id", middleware.AdminRequired(), userHandler.Delete)

	// Vehicles: ownership scoped; literal routes registered before params
	vehicles := api.Group("/vehicles", middleware.JWTProtected(cfg))
	vehicles.Post("/", vehicleHandler.Create)
	vehicles.Get("/", vehicleHandler.Summary)
	vehicles.Get("/all", vehicleHandler.List)
	vehicles.Get("/detail/:id", vehicleHandler.Get)
	vehicles.Get("/:id", vehicleHandler.LatestTelemetry)
	vehicles.Patch("/:id", vehicleHandler.Update)
	vehicles.Delete("/:id", vehicleHandler.Delete)

	// Telemetry: access derived from the owning vehicle
	telemetry := api.Group("/telemetry-logs", middleware.JWTProtected(cfg))
	telemetry.Get("/latest/vehicles", telemetryHandler.LatestForFleet)
	telemetry.Get("/stats", telemetryHandler.Stats)
	telemetry.Post("/vehicles/:id", telemetryHandler.Create)
	telemetry.Get("/vehicles/:id/latest", telemetryHandler.LatestForVehicle)
	telemetry.Get("/vehicles/:id/all", telemetryHandler.AllForVehicle)
	telemetry.Get("/vehicles/:id", telemetryHandler.History)
	telemetry.Get("/:logId", telemetryHandler.Get)
	telemetry.Patch("/:logId", telemetryHandler.Update)
	telemetry.Delete("/:logId", telemetryHandler.Delete)
}
