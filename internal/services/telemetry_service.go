package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetstack/fleet-backend/internal/cache"
	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/policy"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrTelemetryNotFound = errors.New("telemetry log not found")

// TelemetryService manages telemetry logs. Access is always derived from
// the owning vehicle: whoever may touch the vehicle may touch its logs.
// Latest-log reads go through the Redis cache when one is configured.
type TelemetryService struct {
	db    *gorm.DB
	cache *cache.TelemetryCache
}

func NewTelemetryService(db *gorm.DB, c *cache.TelemetryCache) *TelemetryService {
	return &TelemetryService{db: db, cache: c}
}

func (s *TelemetryService) Create(actor policy.Actor, vehicleID uint, req *dto.CreateTelemetryRequest) (*models.TelemetryLog, error) {
	if _, err := s.ownedVehicle(actor, vehicleID); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	log := models.TelemetryLog{
		VehicleID: vehicleID,
		Timestamp: ts,
		Data:      datatypes.JSON(req.Data),
	}
	if err := s.db.Create(&log).Error; err != nil {
		return nil, fmt.Errorf("failed to create telemetry log: %w", err)
	}
	s.invalidateLatest(vehicleID)
	return &log, nil
}

// ListForVehicle returns the vehicle's logs newest-first, optionally bounded
// by the from/to timestamps, paginated.
func (s *TelemetryService) ListForVehicle(actor policy.Actor, vehicleID uint, q *dto.TelemetryQuery) (*dto.PaginatedTelemetry, error) {
	if _, err := s.ownedVehicle(actor, vehicleID); err != nil {
		return nil, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 || limit > 500 {
		limit = 50
	}

	query := s.db.Model(&models.TelemetryLog{}).Where("vehicle_id = ?", vehicleID)
	if q.From != nil {
		query = query.Where("timestamp >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("timestamp <= ?", *q.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count telemetry logs: %w", err)
	}

	var logs []models.TelemetryLog
	if err := query.Order("timestamp DESC").Offset((page - 1) * limit).Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list telemetry logs: %w", err)
	}

	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return &dto.PaginatedTelemetry{
		Data:       logs,
		Pagination: dto.Pagination{Total: total, Page: page, Limit: limit, Pages: pages},
	}, nil
}

// AllForVehicle returns every log for the vehicle newest-first, unpaginated.
func (s *TelemetryService) AllForVehicle(actor policy.Actor, vehicleID uint) ([]models.TelemetryLog, error) {
	if _, err := s.ownedVehicle(actor, vehicleID); err != nil {
		return nil, err
	}
	var logs []models.TelemetryLog
	if err := s.db.Where("vehicle_id = ?", vehicleID).Order("timestamp DESC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list telemetry logs: %w", err)
	}
	return logs, nil
}

func (s *TelemetryService) LatestForVehicle(actor policy.Actor, vehicleID uint) (*models.TelemetryLog, error) {
	if _, err := s.ownedVehicle(actor, vehicleID); err != nil {
		return nil, err
	}
	latest, err := s.LatestLog(vehicleID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrNoTelemetry
	}
	return latest, nil
}

// LatestForOwnedVehicles returns the newest log per vehicle for every
// vehicle the actor can see. Vehicles without telemetry are included with a
// null log.
func (s *TelemetryService) LatestForOwnedVehicles(actor policy.Actor) ([]dto.VehicleLatestLog, error) {
	query := s.db.Model(&models.Vehicle{})
	if !actor.IsAdmin() {
		query = query.Where("user_id = ?", actor.ID)
	}
	var vehicleIDs []uint
	if err := query.Order("id").Pluck("id", &vehicleIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}

	out := make([]dto.VehicleLatestLog, 0, len(vehicleIDs))
	for _, id := range vehicleIDs {
		latest, err := s.LatestLog(id)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.VehicleLatestLog{VehicleID: id, Log: latest})
	}
	return out, nil
}

// Stats counts the actor's vehicles per status bucket. MAINTENANCE maps to
// its own bucket, ACTIVE to moving, everything else to parked.
func (s *TelemetryService) Stats(actor policy.Actor) (*dto.FleetStats, error) {
	query := s.db.Model(&models.Vehicle{})
	if !actor.IsAdmin() {
		query = query.Where("user_id = ?", actor.ID)
	}

	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := query.Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to compute fleet stats: %w", err)
	}

	stats := dto.FleetStats{}
	for _, r := range rows {
		stats.Total += r.N
		switch r.Status {
		case models.VehicleStatusActive:
			stats.Moving += r.N
		case models.VehicleStatusMaintenance:
			stats.Maintenance += r.N
		default:
			stats.Parked += r.N
		}
	}
	return &stats, nil
}

func (s *TelemetryService) Get(actor policy.Actor, logID uint) (*models.TelemetryLog, error) {
	return s.ownedLog(actor, logID)
}

func (s *TelemetryService) Update(actor policy.Actor, logID uint, req *dto.UpdateTelemetryRequest) (*models.TelemetryLog, error) {
	log, err := s.ownedLog(actor, logID)
	if err != nil {
		return nil, err
	}
	if req.Timestamp != nil {
		log.Timestamp = *req.Timestamp
	}
	if req.Data != nil {
		log.Data = datatypes.JSON(req.Data)
	}
	if err := s.db.Save(log).Error; err != nil {
		return nil, fmt.Errorf("failed to update telemetry log: %w", err)
	}
	s.invalidateLatest(log.VehicleID)
	return log, nil
}

func (s *TelemetryService) Delete(actor policy.Actor, logID uint) error {
	log, err := s.ownedLog(actor, logID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(log).Error; err != nil {
		return fmt.Errorf("failed to delete telemetry log: %w", err)
	}
	s.invalidateLatest(log.VehicleID)
	return nil
}

// LatestLog fetches the newest log for a vehicle, read-through cached. A nil
// result with nil error means the vehicle has no telemetry.
func (s *TelemetryService) LatestLog(vehicleID uint) (*models.TelemetryLog, error) {
	if log, ok := s.cache.GetLatest(vehicleID); ok {
		return log, nil
	}
	var log models.TelemetryLog
	err := s.db.Where("vehicle_id = ?", vehicleID).Order("timestamp DESC").First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest telemetry: %w", err)
	}
	s.cache.SetLatest(vehicleID, &log)
	return &log, nil
}

func (s *TelemetryService) invalidateLatest(vehicleID uint) {
	s.cache.Invalidate(vehicleID)
}

func (s *TelemetryService) ownedVehicle(actor policy.Actor, vehicleID uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.db.First(&vehicle, vehicleID).Error; err != nil {
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

func (s *TelemetryService) ownedLog(actor policy.Actor, logID uint) (*models.TelemetryLog, error) {
	var log models.TelemetryLog
	if err := s.db.First(&log, logID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTelemetryNotFound
		}
		return nil, fmt.Errorf("failed to look up telemetry log: %w", err)
	}
	if _, err := s.ownedVehicle(actor, log.VehicleID); err != nil {
		if errors.Is(err, ErrVehicleNotFound) {
			return nil, ErrTelemetryNotFound
		}
		return nil, err
	}
	return &log, nil
}
