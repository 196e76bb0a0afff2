package models

import (
	"time"

	"gorm.io/datatypes"
)

// TelemetryLog is one reading reported for a vehicle. The payload is
// schemaless JSON; well-known keys (speed, odometer, fuel_level, lat, lon)
// are picked out by the read-side views. Deletion is hard.
type TelemetryLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	VehicleID uint           `gorm:"not null;index" json:"vehicle_id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	Vehicle   Vehicle        `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE" json:"-"`
}
