package handlers

import (
	"errors"
	"time"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TelemetryHandler struct {
	telemetryService *services.TelemetryService
}

func NewTelemetryHandler(telemetryService *services.TelemetryService) *TelemetryHandler {
	return &TelemetryHandler{telemetryService: telemetryService}
}

func (h *TelemetryHandler) Create(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	vehicleID, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}
	var req dto.CreateTelemetryRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if len(req.Data) == 0 {
		return failure(c, fiber.StatusBadRequest, "Telemetry data is required.")
	}

	log, err := h.telemetryService.Create(actor, vehicleID, &req)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.create", err)
	}
	return success(c, fiber.StatusCreated, "Telemetry log created.", log)
}

// History returns the vehicle's logs newest-first with optional from/to
// bounds (RFC 3339) and pagination.
func (h *TelemetryHandler) History(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	vehicleID, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}

	q := dto.TelemetryQuery{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 50),
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return failure(c, fiber.StatusBadRequest, "Invalid 'from' timestamp.")
		}
		q.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return failure(c, fiber.StatusBadRequest, "Invalid 'to' timestamp.")
		}
		q.To = &t
	}

	page, err := h.telemetryService.ListForVehicle(actor, vehicleID, &q)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.history", err)
	}
	return success(c, fiber.StatusOK, "Telemetry logs retrieved.", page)
}

func (h *TelemetryHandler) AllForVehicle(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	vehicleID, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}

	logs, err := h.telemetryService.AllForVehicle(actor, vehicleID)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.all", err)
	}
	return success(c, fiber.StatusOK, "Telemetry logs retrieved.", logs)
}

func (h *TelemetryHandler) LatestForVehicle(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	vehicleID, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}

	log, err := h.telemetryService.LatestForVehicle(actor, vehicleID)
	if err != nil {
		if errors.Is(err, services.ErrNoTelemetry) {
			return failure(c, fiber.StatusNotFound, "No telemetry for this vehicle.")
		}
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.latest", err)
	}
	return success(c, fiber.StatusOK, "Telemetry log retrieved.", log)
}

// LatestForFleet returns the newest log per visible vehicle.
func (h *TelemetryHandler) LatestForFleet(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	latest, err := h.telemetryService.LatestForOwnedVehicles(actor)
	if err != nil {
		return internalError(c, "telemetry.fleet_latest", err)
	}
	return success(c, fiber.StatusOK, "Latest telemetry retrieved.", latest)
}

func (h *TelemetryHandler) Stats(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	stats, err := h.telemetryService.Stats(actor)
	if err != nil {
		return internalError(c, "telemetry.stats", err)
	}
	return success(c, fiber.StatusOK, "Fleet stats retrieved.", stats)
}

func (h *TelemetryHandler) Get(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	logID, ok := idParam(c, "logId")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid log id.")
	}

	log, err := h.telemetryService.Get(actor, logID)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Telemetry log not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.get", err)
	}
	return success(c, fiber.StatusOK, "Telemetry log retrieved.", log)
}

func (h *TelemetryHandler) Update(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	logID, ok := idParam(c, "logId")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid log id.")
	}
	var req dto.UpdateTelemetryRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}

	log, err := h.telemetryService.Update(actor, logID, &req)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Telemetry log not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.update", err)
	}
	return success(c, fiber.StatusOK, "Telemetry log updated.", log)
}

func (h *TelemetryHandler) Delete(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	logID, ok := idParam(c, "logId")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid log id.")
	}

	if err := h.telemetryService.Delete(actor, logID); err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Telemetry log not found."); handled {
			return resp
		}
		return internalError(c, "telemetry.delete", err)
	}
	return success(c, fiber.StatusOK, "Telemetry log deleted.", nil)
}
