package dto

import (
	"encoding/json"
	"time"

	"github.com/fleetstack/fleet-backend/internal/models"
)

type CreateTelemetryRequest struct {
	// Timestamp defaults to the insertion time when absent.
	Timestamp *time.Time      `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type UpdateTelemetryRequest struct {
	Timestamp *time.Time      `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

type TelemetryQuery struct {
	From  *time.Time
	To    *time.Time
	Page  int
	Limit int
}

type PaginatedTelemetry struct {
	Data       []models.TelemetryLog `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

// VehicleLatestLog pairs a vehicle with its most recent log (nil when the
// vehicle has never reported).
type VehicleLatestLog struct {
	VehicleID uint                 `json:"vehicle_id"`
	Log       *models.TelemetryLog `json:"log"`
}

// FleetStats groups the actor's vehicles by status. Parked is everything
// neither moving (ACTIVE) nor in maintenance.
type FleetStats struct {
	Total       int64 `json:"total"`
	Parked      int64 `json:"parked"`
	Moving      int64 `json:"moving"`
	Maintenance int64 `json:"maintenance"`
}
