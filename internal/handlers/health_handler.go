package handlers

import (
	"time"

	"github.com/fleetstack/fleet-backend/internal/database"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := database.Ping(h.db); err != nil {
		return failure(c, fiber.StatusServiceUnavailable, "Database unreachable.")
	}
	return success(c, fiber.StatusOK, "Service healthy.", fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
