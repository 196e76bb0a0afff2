package services

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserGetPolicy(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testBcryptCost)
	alice := createUser(t, db, models.RoleUser)
	bob := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)

	profile, err := svc.Get(actorFor(alice), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, profile.Email)

	_, err = svc.Get(actorFor(alice), bob.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(actorFor(admin), bob.ID)
	assert.NoError(t, err)

	_, err = svc.Get(actorFor(admin), 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testBcryptCost)

	email := gofakeit.Email()
	profile, err := svc.Create(&dto.CreateUserRequest{Email: email, Password: "password123", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, profile.Role)

	_, err = svc.Create(&dto.CreateUserRequest{Email: email, Password: "password123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Create(&dto.CreateUserRequest{Email: gofakeit.Email(), Password: "password123", Role: "ROOT"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	// Role defaults to USER.
	profile, err = svc.Create(&dto.CreateUserRequest{Email: gofakeit.Email(), Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, profile.Role)
}

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testBcryptCost)
	alice := createUser(t, db, models.RoleUser)
	bob := createUser(t, db, models.RoleUser)
	admin := createUser(t, db, models.RoleAdmin)

	newEmail := gofakeit.Email()
	profile, err := svc.Update(actorFor(alice), alice.ID, &dto.UpdateUserRequest{Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, newEmail, profile.Email)

	// Taking another user's email conflicts.
	_, err = svc.Update(actorFor(alice), alice.ID, &dto.UpdateUserRequest{Email: &bob.Email})
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Role changes are admin only.
	adminRole := models.RoleAdmin
	_, err = svc.Update(actorFor(alice), alice.ID, &dto.UpdateUserRequest{Role: &adminRole})
	assert.ErrorIs(t, err, ErrForbidden)

	profile, err = svc.Update(actorFor(admin), alice.ID, &dto.UpdateUserRequest{Role: &adminRole})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, profile.Role)

	// Password updates are rehashed.
	newPassword := "newpassword1"
	_, err = svc.Update(actorFor(admin), bob.ID, &dto.UpdateUserRequest{Password: &newPassword})
	require.NoError(t, err)
	var stored models.User
	require.NoError(t, db.First(&stored, bob.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(newPassword)))
}

func TestUserDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	userSvc := NewUserService(db, testBcryptCost)
	authSvc := newAuthService(db)
	victim := createUser(t, db, models.RoleUser)
	survivor := createUser(t, db, models.RoleUser)

	vehicle := createVehicle(t, db, victim.ID, models.VehicleStatusActive)
	createLog(t, db, vehicle.ID, time.Now(), `{"speed": 1}`)
	kept := createVehicle(t, db, survivor.ID, models.VehicleStatusActive)
	keptLog := createLog(t, db, kept.ID, time.Now(), `{"speed": 2}`)

	login, err := authSvc.Login(&dto.LoginRequest{Email: victim.Email, Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, login.RefreshToken)

	require.NoError(t, userSvc.Delete(victim.ID))

	var users, vehicles, logs, tokens int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", victim.ID).Count(&users).Error)
	require.NoError(t, db.Unscoped().Model(&models.Vehicle{}).Where("user_id = ?", victim.ID).Count(&vehicles).Error)
	require.NoError(t, db.Model(&models.TelemetryLog{}).Where("vehicle_id = ?", vehicle.ID).Count(&logs).Error)
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("user_id = ?", victim.ID).Count(&tokens).Error)
	assert.Zero(t, users)
	assert.Zero(t, vehicles)
	assert.Zero(t, logs)
	assert.Zero(t, tokens)

	// The other user's data is untouched.
	var keptLogs int64
	require.NoError(t, db.Model(&models.TelemetryLog{}).Where("id = ?", keptLog.ID).Count(&keptLogs).Error)
	assert.Equal(t, int64(1), keptLogs)

	assert.ErrorIs(t, userSvc.Delete(victim.ID), ErrUserNotFound)
}

func TestUserList(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, testBcryptCost)
	createUser(t, db, models.RoleUser)
	createUser(t, db, models.RoleAdmin)

	users, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
