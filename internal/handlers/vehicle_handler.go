package handlers

import (
	"errors"
	"strings"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type VehicleHandler struct {
	vehicleService *services.VehicleService
}

func NewVehicleHandler(vehicleService *services.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicleService: vehicleService}
}

func (h *VehicleHandler) Create(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	var req dto.CreateVehicleRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.LicensePlate = strings.TrimSpace(req.LicensePlate)
	if req.Name == "" || req.LicensePlate == "" {
		return failure(c, fiber.StatusBadRequest, "Name and license_plate are required.")
	}

	vehicle, err := h.vehicleService.Create(actor, &req)
	if err != nil {
		if errors.Is(err, services.ErrPlateTaken) {
			return failure(c, fiber.StatusConflict, "License plate already in use.")
		}
		if resp, handled := notFoundOrForbidden(c, err, "Owner not found."); handled {
			return resp
		}
		return internalError(c, "vehicles.create", err)
	}
	return success(c, fiber.StatusCreated, "Vehicle created.", vehicle)
}

// Summary returns the compact fleet list with latest reported speeds.
func (h *VehicleHandler) Summary(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	summaries, err := h.vehicleService.Summary(actor)
	if err != nil {
		return internalError(c, "vehicles.summary", err)
	}
	return success(c, fiber.StatusOK, "Vehicles retrieved.", summaries)
}

// List returns paginated vehicles with their latest telemetry attached.
func (h *VehicleHandler) List(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	q := dto.VehicleQuery{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
	}

	page, err := h.vehicleService.List(actor, &q)
	if err != nil {
		return internalError(c, "vehicles.list", err)
	}
	return success(c, fiber.StatusOK, "Vehicles retrieved.", page)
}

func (h *VehicleHandler) Get(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}

	vehicle, err := h.vehicleService.Get(actor, id)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "vehicles.get", err)
	}
	return success(c, fiber.StatusOK, "Vehicle retrieved.", vehicle)
}

// LatestTelemetry flattens the vehicle's newest log into the common fields.
func (h *VehicleHandler) LatestTelemetry(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}

	flat, err := h.vehicleService.LatestTelemetry(actor, id)
	if err != nil {
		if errors.Is(err, services.ErrNoTelemetry) {
			return failure(c, fiber.StatusNotFound, "No telemetry for this vehicle.")
		}
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "vehicles.latest", err)
	}
	return success(c, fiber.StatusOK, "Telemetry retrieved.", flat)
}

func (h *VehicleHandler) Update(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}
	var req dto.UpdateVehicleRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}

	vehicle, err := h.vehicleService.Update(actor, id, &req)
	if err != nil {
		if errors.Is(err, services.ErrPlateTaken) {
			return failure(c, fiber.StatusConflict, "License plate already in use.")
		}
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "vehicles.update", err)
	}
	return success(c, fiber.StatusOK, "Vehicle updated.", vehicle)
}

func (h *VehicleHandler) Delete(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid vehicle id.")
	}

	if err := h.vehicleService.Delete(actor, id); err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "Vehicle not found."); handled {
			return resp
		}
		return internalError(c, "vehicles.delete", err)
	}
	return success(c, fiber.StatusOK, "Vehicle deleted.", nil)
}
