package dto

import (
	"time"

	"github.com/fleetstack/fleet-backend/internal/models"
)

type CreateVehicleRequest struct {
	Name         string  `json:"name"`
	LicensePlate string  `json:"license_plate"`
	Model        *string `json:"model"`
	Status       string  `json:"status"`
	// UserID lets an ADMIN create a vehicle for another user; ignored otherwise.
	UserID uint `json:"user_id"`
}

type UpdateVehicleRequest struct {
	Name         *string `json:"name"`
	LicensePlate *string `json:"license_plate"`
	Model        *string `json:"model"`
	Status       *string `json:"status"`
	// UserID reassigns ownership; ADMIN only, ignored otherwise.
	UserID *uint `json:"user_id"`
}

type VehicleQuery struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// VehicleResponse is a vehicle joined with its most recent telemetry log
// (nil when the vehicle has never reported).
type VehicleResponse struct {
	models.Vehicle
	LatestTelemetry *models.TelemetryLog `json:"latestTelemetry"`
}

// VehicleSummary backs the list view: status plus the latest reported speed.
type VehicleSummary struct {
	ID        uint     `json:"id"`
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	Speed     *float64 `json:"speed"`
	UpdatedAt string   `json:"updated_at"`
}

// FlattenedTelemetry is the latest reading of a vehicle with well-known
// payload keys pulled to the top level; absent keys stay null.
type FlattenedTelemetry struct {
	VehicleID uint       `json:"vehicleId"`
	Odometer  *float64   `json:"odometer"`
	FuelLevel *float64   `json:"fuel_level"`
	Timestamp *time.Time `json:"timestamp"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Speed     *float64   `json:"speed"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

type PaginatedVehicles struct {
	Data       []VehicleResponse `json:"data"`
	Pagination Pagination        `json:"pagination"`
}
