package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/policy"
	"github.com/fleetstack/fleet-backend/internal/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret     = "test-secret"
	testBcryptCost = bcrypt.MinCost
)

// newTestDB opens an in-memory SQLite database unique to the test and runs
// the migrations. cache=shared keeps the database alive across the pooled
// connections gorm opens.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Vehicle{},
		&models.TelemetryLog{},
	))
	return db
}

func newAuthService(db *gorm.DB) *AuthService {
	codec := token.NewCodec(testSecret, 15*time.Minute)
	return NewAuthService(db, codec, 7*24*time.Hour, testBcryptCost)
}

func newTelemetryService(db *gorm.DB) *TelemetryService {
	return NewTelemetryService(db, nil)
}

func newVehicleService(db *gorm.DB) *VehicleService {
	return NewVehicleService(db, newTelemetryService(db))
}

func createUser(t *testing.T, db *gorm.DB, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), testBcryptCost)
	require.NoError(t, err)
	user := models.User{Email: gofakeit.Email(), Password: string(hash), Role: role}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createVehicle(t *testing.T, db *gorm.DB, ownerID uint, status string) *models.Vehicle {
	t.Helper()
	vehicle := models.Vehicle{
		Name:         gofakeit.CarMaker(),
		LicensePlate: fmt.Sprintf("%s-%06d", gofakeit.LetterN(3), gofakeit.Number(0, 999999)),
		Status:       status,
		UserID:       ownerID,
	}
	require.NoError(t, db.Create(&vehicle).Error)
	return &vehicle
}

func createLog(t *testing.T, db *gorm.DB, vehicleID uint, ts time.Time, payload string) *models.TelemetryLog {
	t.Helper()
	log := models.TelemetryLog{
		VehicleID: vehicleID,
		Timestamp: ts,
		Data:      datatypes.JSON([]byte(payload)),
	}
	require.NoError(t, db.Create(&log).Error)
	return &log
}

func actorFor(u *models.User) policy.Actor {
	return policy.Actor{ID: u.ID, Role: u.Role}
}
