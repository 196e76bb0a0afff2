package services

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))

	var user models.User
	require.NoError(t, db.Where("email = ?", email).First(&user).Error)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.Password)

	resp, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.User.ID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))

	err := svc.Register(&dto.RegisterRequest{Email: email, Password: "otherpassword"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginInvalidCredentialsUniform(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))

	// Unknown email and wrong password produce the same error.
	_, err := svc.Login(&dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(&dto.LoginRequest{Email: email, Password: "wrongpassword"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRevokesPriorSessions(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))

	first, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)
	_, err = svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// The first session's refresh token no longer works.
	_, err = svc.Refresh(first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotationSingleUse(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))
	login, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	pair, err := svc.Refresh(login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, login.RefreshToken, pair.RefreshToken)

	// Replaying the consumed token fails; the rotated one still works.
	_, err = svc.Refresh(login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Refresh(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshExpiredTokenRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := createUser(t, db, models.RoleUser)

	raw, err := token.IssueRefreshToken()
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: token.HashToken(raw),
		ExpiresAt: time.Now().Add(-time.Hour),
	}).Error)

	_, err = svc.Refresh(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// The expired row is excluded at lookup, not deleted.
	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestRefreshDeletedUserCleansToken(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	user := createUser(t, db, models.RoleUser)

	raw, err := token.IssueRefreshToken()
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: token.HashToken(raw),
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	require.NoError(t, db.Delete(user).Error)

	_, err = svc.Refresh(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestLogoutIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))
	login, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	deleted, err := svc.Logout(login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = svc.Logout(login.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}

func TestMeReturnsProfile(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))
	login, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	result, err := svc.Me(login.AccessToken, "")
	require.NoError(t, err)
	require.NotNil(t, result.Profile)
	assert.Nil(t, result.Tokens)
	assert.Equal(t, email, result.Profile.Email)
}

func TestMeMissingToken(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	_, err := svc.Me("", "")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestMeExpiredTokenRefreshFallback(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))
	login, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	expiredCodec := token.NewCodec(testSecret, -time.Minute)
	expired, err := expiredCodec.IssueAccessToken(login.User.ID, models.RoleUser)
	require.NoError(t, err)

	// Expired access with no refresh token: session over.
	_, err = svc.Me(expired, "")
	assert.ErrorIs(t, err, ErrSessionExpired)

	// Expired access with a valid refresh token: new pair, no profile.
	result, err := svc.Me(expired, login.RefreshToken)
	require.NoError(t, err)
	require.NotNil(t, result.Tokens)
	assert.Nil(t, result.Profile)

	// The fallback consumed the refresh token.
	_, err = svc.Me(expired, login.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestMeGarbageTokenIgnoresRefresh(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))
	login, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Me("not-a-jwt", login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidAccessToken)

	// The refresh token survived untouched.
	_, err = svc.Refresh(login.RefreshToken)
	assert.NoError(t, err)
}

func TestMeDeletedUser(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	email := gofakeit.Email()
	require.NoError(t, svc.Register(&dto.RegisterRequest{Email: email, Password: "password123"}))
	login, err := svc.Login(&dto.LoginRequest{Email: email, Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, db.Delete(&models.User{}, login.User.ID).Error)

	_, err = svc.Me(login.AccessToken, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
