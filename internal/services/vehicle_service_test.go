package services

import (
	"testing"
	"time"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVehicleCreate(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)

	vehicle, err := svc.Create(actorFor(owner), &dto.CreateVehicleRequest{
		Name:         "Van 1",
		LicensePlate: "ABC-123",
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, vehicle.UserID)
	assert.Equal(t, models.VehicleStatusInactive, vehicle.Status)
}

func TestVehicleCreatePlateConflict(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	other := createUser(t, db, models.RoleUser)

	_, err := svc.Create(actorFor(owner), &dto.CreateVehicleRequest{Name: "Van 1", LicensePlate: "ABC-123"})
	require.NoError(t, err)

	// Plates are unique across owners.
	_, err = svc.Create(actorFor(other), &dto.CreateVehicleRequest{Name: "Van 2", LicensePlate: "ABC-123"})
	assert.ErrorIs(t, err, ErrPlateTaken)
}

func TestVehicleCreateForOtherUser(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	admin := createUser(t, db, models.RoleAdmin)
	user := createUser(t, db, models.RoleUser)
	target := createUser(t, db, models.RoleUser)

	// A regular user cannot create a vehicle for someone else.
	_, err := svc.Create(actorFor(user), &dto.CreateVehicleRequest{
		Name: "Van", LicensePlate: "AAA-111", UserID: target.ID,
	})
	assert.ErrorIs(t, err, ErrForbidden)

	vehicle, err := svc.Create(actorFor(admin), &dto.CreateVehicleRequest{
		Name: "Van", LicensePlate: "AAA-111", UserID: target.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, target.ID, vehicle.UserID)

	// Unknown owner is rejected.
	_, err = svc.Create(actorFor(admin), &dto.CreateVehicleRequest{
		Name: "Van", LicensePlate: "BBB-222", UserID: 9999,
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestVehicleGetOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	other := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)
	vehicle := createVehicle(t, db, owner.ID, models.VehicleStatusActive)

	got, err := svc.Get(actorFor(owner), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, vehicle.ID, got.ID)

	_, err = svc.Get(actorFor(other), vehicle.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(actorFor(admin), vehicle.ID)
	assert.NoError(t, err)

	_, err = svc.Get(actorFor(owner), 9999)
	assert.ErrorIs(t, err, ErrVehicleNotFound)
}

func TestVehicleListScoping(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	alice := createUser(t, db, models.RoleUser)
	bob := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)
	createVehicle(t, db, alice.ID, models.VehicleStatusActive)
	createVehicle(t, db, alice.ID, models.VehicleStatusInactive)
	createVehicle(t, db, bob.ID, models.VehicleStatusActive)

	page, err := svc.List(actorFor(alice), &dto.VehicleQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.Total)
	for _, v := range page.Data {
		assert.Equal(t, alice.ID, v.UserID)
	}

	page, err = svc.List(actorFor(admin), &dto.VehicleQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Pagination.Total)

	page, err = svc.List(actorFor(alice), &dto.VehicleQuery{Status: models.VehicleStatusActive})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.Total)
}

func TestVehicleListSearchAndPagination(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)

	for i := 0; i < 15; i++ {
		createVehicle(t, db, owner.ID, models.VehicleStatusActive)
	}
	special := createVehicle(t, db, owner.ID, models.VehicleStatusActive)
	require.NoError(t, db.Model(special).Update("name", "Needle Truck").Error)

	page, err := svc.List(actorFor(owner), &dto.VehicleQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page.Data, 10)
	assert.Equal(t, int64(16), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.Pages)

	page, err = svc.List(actorFor(owner), &dto.VehicleQuery{Search: "Needle"})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, special.ID, page.Data[0].ID)
}

func TestVehicleListIncludesLatestTelemetry(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	vehicle := createVehicle(t, db, owner.ID, models.VehicleStatusActive)
	bare := createVehicle(t, db, owner.ID, models.VehicleStatusActive)

	createLog(t, db, vehicle.ID, time.Now().Add(-time.Hour), `{"speed": 10}`)
	newest := createLog(t, db, vehicle.ID, time.Now(), `{"speed": 55}`)

	page, err := svc.List(actorFor(owner), &dto.VehicleQuery{})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	for _, v := range page.Data {
		switch v.ID {
		case vehicle.ID:
			require.NotNil(t, v.LatestTelemetry)
			assert.Equal(t, newest.ID, v.LatestTelemetry.ID)
		case bare.ID:
			assert.Nil(t, v.LatestTelemetry)
		}
	}
}

func TestVehicleSummarySpeed(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	vehicle := createVehicle(t, db, owner.ID, models.VehicleStatusActive)
	bare := createVehicle(t, db, owner.ID, models.VehicleStatusInactive)

	createLog(t, db, vehicle.ID, time.Now(), `{"speed": 72.5, "odometer": 1000}`)

	summaries, err := svc.Summary(actorFor(owner))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		switch s.ID {
		case vehicle.ID:
			require.NotNil(t, s.Speed)
			assert.Equal(t, 72.5, *s.Speed)
		case bare.ID:
			assert.Nil(t, s.Speed)
		}
	}
}

func TestVehicleLatestTelemetryFlattened(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	vehicle := createVehicle(t, db, owner.ID, models.VehicleStatusActive)
	bare := createVehicle(t, db, owner.ID, models.VehicleStatusActive)

	createLog(t, db, vehicle.ID, time.Now(), `{"speed": 40, "fuel_level": 80.5, "latitude": 52.1}`)

	flat, err := svc.LatestTelemetry(actorFor(owner), vehicle.ID)
	require.NoError(t, err)
	assert.Equal(t, vehicle.ID, flat.VehicleID)
	require.NotNil(t, flat.Speed)
	assert.Equal(t, 40.0, *flat.Speed)
	require.NotNil(t, flat.FuelLevel)
	assert.Equal(t, 80.5, *flat.FuelLevel)
	assert.Nil(t, flat.Odometer)
	assert.Nil(t, flat.Longitude)

	_, err = svc.LatestTelemetry(actorFor(owner), bare.ID)
	assert.ErrorIs(t, err, ErrNoTelemetry)
}

func TestVehicleUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	other := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)
	vehicle := createVehicle(t, db, owner.ID, models.VehicleStatusInactive)
	taken := createVehicle(t, db, owner.ID, models.VehicleStatusInactive)

	name := "Renamed"
	status := models.VehicleStatusMaintenance
	updated, err := svc.Update(actorFor(owner), vehicle.ID, &dto.UpdateVehicleRequest{Name: &name, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.VehicleStatusMaintenance, updated.Status)

	// Plate conflict with another vehicle.
	_, err = svc.Update(actorFor(owner), vehicle.ID, &dto.UpdateVehicleRequest{LicensePlate: &taken.LicensePlate})
	assert.ErrorIs(t, err, ErrPlateTaken)

	// Ownership reassignment is admin only.
	_, err = svc.Update(actorFor(owner), vehicle.ID, &dto.UpdateVehicleRequest{UserID: &other.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err = svc.Update(actorFor(admin), vehicle.ID, &dto.UpdateVehicleRequest{UserID: &other.ID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, updated.UserID)
}

func TestVehicleSoftDelete(t *testing.T) {
	db := newTestDB(t)
	svc := newVehicleService(db)
	owner := createUser(t, db, models.RoleUser)
	other := createUser(t, db, models.RoleUser)
	vehicle := createVehicle(t, db, owner.ID, models.VehicleStatusActive)

	err := svc.Delete(actorFor(other), vehicle.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(actorFor(owner), vehicle.ID))

	_, err = svc.Get(actorFor(owner), vehicle.ID)
	assert.ErrorIs(t, err, ErrVehicleNotFound)

	page, err := svc.List(actorFor(owner), &dto.VehicleQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Data)

	// The row survives as soft-deleted and its plate stays reserved.
	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Vehicle{}).Where("id = ?", vehicle.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.Create(actorFor(owner), &dto.CreateVehicleRequest{Name: "New", LicensePlate: vehicle.LicensePlate})
	assert.ErrorIs(t, err, ErrPlateTaken)
}
