package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/policy"
	"gorm.io/gorm"
)

var (
	ErrPlateTaken  = errors.New("license plate already in use")
	ErrNoTelemetry = errors.New("no telemetry for vehicle")
)

// VehicleService handles vehicle CRUD with ownership scoping. Regular users
// only see and touch their own vehicles; admins see everything. Latest
// telemetry lookups are delegated to the telemetry service so the cache
// stays in one place.
type VehicleService struct {
	db        *gorm.DB
	telemetry *TelemetryService
}

func NewVehicleService(db *gorm.DB, telemetry *TelemetryService) *VehicleService {
	return &VehicleService{db: db, telemetry: telemetry}
}

func (s *VehicleService) Create(actor policy.Actor, req *dto.CreateVehicleRequest) (*models.Vehicle, error) {
	status := req.Status
	if status == "" {
		status = models.VehicleStatusInactive
	}
	if !models.ValidVehicleStatus(status) {
		return nil, fmt.Errorf("invalid vehicle status %q", req.Status)
	}

	ownerID := actor.ID
	if req.UserID != 0 {
		// Assigning a vehicle to someone else is an admin move.
		if req.UserID != actor.ID && !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		ownerID = req.UserID
	}

	var owner models.User
	if err := s.db.First(&owner, ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up owner: %w", err)
	}

	if err := s.checkPlate(req.LicensePlate, 0); err != nil {
		return nil, err
	}

	vehicle := models.Vehicle{
		Name:         req.Name,
		LicensePlate: req.LicensePlate,
		Model:        req.Model,
		Status:       status,
		UserID:       ownerID,
	}
	if err := s.db.Create(&vehicle).Error; err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return &vehicle, nil
}

// List returns the actor's vehicles (all vehicles for admins) filtered by
// search/status, paginated, each annotated with its latest telemetry log.
func (s *VehicleService) List(actor policy.Actor, q *dto.VehicleQuery) (*dto.PaginatedVehicles, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > 100 {
		limit = 10
	}

	query := s.db.Model(&models.Vehicle{})
	if !actor.IsAdmin() {
		query = query.Where("user_id = ?", actor.ID)
	}
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Search != "" {
		like := "%" + q.Search + "%"
		query = query.Where("name LIKE ? OR license_plate LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}

	var vehicles []models.Vehicle
	if err := query.Order("id").Offset((page - 1) * limit).Limit(limit).Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	items := make([]dto.VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		latest, err := s.telemetry.LatestLog(vehicles[i].ID)
		if err != nil {
			return nil, err
		}
		items = append(items, dto.VehicleResponse{Vehicle: vehicles[i], LatestTelemetry: latest})
	}

	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return &dto.PaginatedVehicles{
		Data:       items,
		Pagination: dto.Pagination{Total: total, Page: page, Limit: limit, Pages: pages},
	}, nil
}

// Summary returns a compact view of the actor's fleet with the current
// speed pulled out of each vehicle's latest telemetry payload.
func (s *VehicleService) Summary(actor policy.Actor) ([]dto.VehicleSummary, error) {
	query := s.db.Model(&models.Vehicle{})
	if !actor.IsAdmin() {
		query = query.Where("user_id = ?", actor.ID)
	}
	var vehicles []models.Vehicle
	if err := query.Order("id").Find(&vehicles).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	out := make([]dto.VehicleSummary, 0, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		summary := dto.VehicleSummary{
			ID:        v.ID,
			Name:      v.Name,
			Status:    v.Status,
			UpdatedAt: v.UpdatedAt.Format(time.RFC3339),
		}
		latest, err := s.telemetry.LatestLog(v.ID)
		if err != nil {
			return nil, err
		}
		if latest != nil {
			var payload struct {
				Speed *float64 `json:"speed"`
			}
			if err := json.Unmarshal(latest.Data, &payload); err == nil {
				summary.Speed = payload.Speed
			}
			summary.UpdatedAt = latest.Timestamp.Format(time.RFC3339)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *VehicleService) Get(actor policy.Actor, id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("failed to look up vehicle: %w", err)
	}
	if !policy.Allowed(actor, vehicle.UserID) {
		return nil, ErrForbidden
	}
	return &vehicle, nil
}

// LatestTelemetry returns the vehicle's newest log flattened to the common
// telemetry fields. Missing keys in the payload come back as nulls.
func (s *VehicleService) LatestTelemetry(actor policy.Actor, id uint) (*dto.FlattenedTelemetry, error) {
	vehicle, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	latest, err := s.telemetry.LatestLog(vehicle.ID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNoTelemetry
	}

	flat := dto.FlattenedTelemetry{VehicleID: vehicle.ID, Timestamp: &latest.Timestamp}
	var payload struct {
		Odometer  *float64 `json:"odometer"`
		FuelLevel *float64 `json:"fuel_level"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		Speed     *float64 `json:"speed"`
	}
	if err := json.Unmarshal(latest.Data, &payload); err == nil {
		flat.Odometer = payload.Odometer
		flat.FuelLevel = payload.FuelLevel
		flat.Latitude = payload.Latitude
		flat.Longitude = payload.Longitude
		flat.Speed = payload.Speed
	}
	return &flat, nil
}

func (s *VehicleService) Update(actor policy.Actor, id uint, req *dto.UpdateVehicleRequest) (*models.Vehicle, error) {
	vehicle, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}

	if req.UserID != nil && *req.UserID != vehicle.UserID {
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		var owner models.User
		if err := s.db.First(&owner, *req.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to look up owner: %w", err)
		}
		vehicle.UserID = *req.UserID
	}
	if req.LicensePlate != nil && *req.LicensePlate != vehicle.LicensePlate {
		if err := s.checkPlate(*req.LicensePlate, vehicle.ID); err != nil {
			return nil, err
		}
		vehicle.LicensePlate = *req.LicensePlate
	}
	if req.Name != nil {
		vehicle.Name = *req.Name
	}
	if req.Model != nil {
		vehicle.Model = req.Model
	}
	if req.Status != nil {
		if !models.ValidVehicleStatus(*req.Status) {
			return nil, fmt.Errorf("invalid vehicle status %q", *req.Status)
		}
		vehicle.Status = *req.Status
	}

	if err := s.db.Save(vehicle).Error; err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return vehicle, nil
}

// Delete soft-deletes the vehicle. Its telemetry remains for the cascade on
// account deletion; the latest-telemetry cache entry is invalidated so
// fleet-wide views drop it immediately.
func (s *VehicleService) Delete(actor policy.Actor, id uint) error {
	vehicle, err := s.Get(actor, id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(vehicle).Error; err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	s.telemetry.invalidateLatest(vehicle.ID)
	return nil
}

func (s *VehicleService) checkPlate(plate string, excludeID uint) error {
	query := s.db.Unscoped().Model(&models.Vehicle{}).Where("license_plate = ?", plate)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check license plate: %w", err)
	}
	if count > 0 {
		return ErrPlateTaken
	}
	return nil
}
