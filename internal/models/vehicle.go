package models

import (
	"time"

	"gorm.io/gorm"
)

// Vehicle lifecycle statuses.
const (
	VehicleStatusActive      = "ACTIVE"
	VehicleStatusInactive    = "INACTIVE"
	VehicleStatusMaintenance = "MAINTENANCE"
)

// ValidVehicleStatus reports whether s is a known vehicle status.
func ValidVehicleStatus(s string) bool {
	return s == VehicleStatusActive || s == VehicleStatusInactive || s == VehicleStatusMaintenance
}

// Vehicle is always bound to an owning user. Deletion is soft: deleted rows
// keep their data but drop out of default queries.
type Vehicle struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null;size:255" json:"name"`
	LicensePlate string         `gorm:"not null;size:32;uniqueIndex" json:"license_plate"`
	Model        *string        `gorm:"size:255" json:"model"`
	Status       string         `gorm:"size:20;not null;default:'INACTIVE'" json:"status"`
	UserID       uint           `gorm:"not null;index" json:"user_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	User         User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
