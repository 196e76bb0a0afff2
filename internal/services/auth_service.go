package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrMissingToken       = errors.New("no access token provided")
	ErrInvalidAccessToken = errors.New("invalid or expired access token")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService orchestrates registration, login, token refresh, logout and
// identity lookup over the credential and session stores.
type AuthService struct {
	db         *gorm.DB
	codec      *token.Codec
	refreshTTL time.Duration
	bcryptCost int
}

func NewAuthService(db *gorm.DB, codec *token.Codec, refreshTTL time.Duration, bcryptCost int) *AuthService {
	return &AuthService{db: db, codec: codec, refreshTTL: refreshTTL, bcryptCost: bcryptCost}
}

// Register creates a USER-role account. No tokens are issued; registration
// does not imply login.
func (s *AuthService) Register(req *dto.RegisterRequest) error {
	var existing models.User
	err := s.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:    req.Email,
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Login verifies credentials and starts a fresh session. Every previously
// issued refresh token for the user is destroyed in the same transaction
// that persists the new one: a single active session per user, with no
// sessionless gap if the write fails.
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, err := s.codec.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := token.IssueRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.refreshTTL)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			TokenHash: token.HashToken(refreshToken),
			ExpiresAt: expiresAt,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         toUserProfile(&user),
	}, nil
}

// Refresh consumes an unexpired refresh token and issues a new pair.
// Rotation is single-use: the consumed row is deleted in the transaction
// that creates its replacement, so a replayed token always fails.
func (s *AuthService) Refresh(rawToken string) (*dto.TokenPair, error) {
	var stored models.RefreshToken
	err := s.db.Where("token_hash = ? AND expires_at > ?", token.HashToken(rawToken), time.Now()).
		First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The owning account is gone; the stale session goes with it.
			s.db.Delete(&stored)
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	accessToken, err := s.codec.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	newRefresh, err := token.IssueRefreshToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.refreshTTL)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.RefreshToken{}, "id = ?", stored.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Consumed by a concurrent refresh between lookup and delete.
			return gorm.ErrRecordNotFound
		}
		return tx.Create(&models.RefreshToken{
			ID:        uuid.New(),
			UserID:    user.ID,
			TokenHash: token.HashToken(newRefresh),
			ExpiresAt: expiresAt,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// Logout destroys every refresh token of the user. Deleting zero rows is
// still a success; the returned count only drives the response message.
func (s *AuthService) Logout(userID uint) (int64, error) {
	res := s.db.Where("user_id = ?", userID).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete refresh tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Me resolves the caller's profile from an access token. When the access
// token is expired and a refresh token is supplied, the session is rotated
// transparently and the new token pair is returned instead of the profile.
// Any other verification failure never touches the refresh flow.
func (s *AuthService) Me(accessToken, refreshToken string) (*dto.MeResult, error) {
	if accessToken == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.codec.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, token.ErrExpiredToken) {
			if refreshToken == "" {
				return nil, ErrSessionExpired
			}
			pair, rerr := s.Refresh(refreshToken)
			if rerr != nil {
				return nil, ErrSessionExpired
			}
			return &dto.MeResult{Tokens: pair}, nil
		}
		return nil, ErrInvalidAccessToken
	}

	var user models.User
	if err := s.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	profile := toUserProfile(&user)
	return &dto.MeResult{Profile: &profile}, nil
}

func toUserProfile(u *models.User) dto.UserProfile {
	return dto.UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
