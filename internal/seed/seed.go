// Package seed bootstraps the database with the initial admin account and,
// when enabled, a small demo fleet for local development.
package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fleetstack/fleet-backend/internal/config"
	"github.com/fleetstack/fleet-backend/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EnsureAdmin creates the admin account from config when it does not exist.
// Nothing happens when ADMIN_EMAIL is unset or the account is already there.
func EnsureAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", cfg.AdminEmail).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := models.User{Email: cfg.AdminEmail, Password: string(hash), Role: models.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	slog.Info("admin account created", "email", cfg.AdminEmail)
	return nil
}

const demoVehicles = 5

// Demo populates a demo user with a few vehicles and telemetry. It is a
// no-op when any vehicles already exist.
func Demo(db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.Vehicle{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count vehicles: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("demo-password"), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}
	demo := models.User{Email: "demo@fleetstack.local", Password: string(hash), Role: models.RoleUser}
	if err := db.Where("email = ?", demo.Email).FirstOrCreate(&demo).Error; err != nil {
		return fmt.Errorf("failed to create demo user: %w", err)
	}

	statuses := []string{models.VehicleStatusActive, models.VehicleStatusInactive, models.VehicleStatusMaintenance}
	for i := 0; i < demoVehicles; i++ {
		model := gofakeit.CarModel()
		vehicle := models.Vehicle{
			Name:         fmt.Sprintf("%s %s", gofakeit.CarMaker(), model),
			LicensePlate: fmt.Sprintf("%s-%04d", gofakeit.LetterN(3), gofakeit.Number(0, 9999)),
			Model:        &model,
			Status:       statuses[i%len(statuses)],
			UserID:       demo.ID,
		}
		if err := db.Create(&vehicle).Error; err != nil {
			return fmt.Errorf("failed to create demo vehicle: %w", err)
		}

		for j := 0; j < 3; j++ {
			payload, err := json.Marshal(map[string]any{
				"speed":      gofakeit.Float64Range(0, 120),
				"odometer":   gofakeit.Float64Range(1000, 200000),
				"fuel_level": gofakeit.Float64Range(0, 100),
				"latitude":   gofakeit.Latitude(),
				"longitude":  gofakeit.Longitude(),
			})
			if err != nil {
				return fmt.Errorf("failed to build demo telemetry: %w", err)
			}
			log := models.TelemetryLog{
				VehicleID: vehicle.ID,
				Timestamp: time.Now().UTC().Add(-time.Duration(j) * time.Hour),
				Data:      datatypes.JSON(payload),
			}
			if err := db.Create(&log).Error; err != nil {
				return fmt.Errorf("failed to create demo telemetry: %w", err)
			}
		}
	}

	slog.Info("demo fleet seeded", "vehicles", demoVehicles)
	return nil
}
