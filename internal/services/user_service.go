package services

import (
	"errors"
	"fmt"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/fleetstack/fleet-backend/internal/policy"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var ErrInvalidRole = errors.New("invalid role")

// UserService is the admin-facing account CRUD. List/create/delete are
// ADMIN-only at the route level; get/update apply the ownership policy so
// users can read and edit themselves.
type UserService struct {
	db         *gorm.DB
	bcryptCost int
}

func NewUserService(db *gorm.DB, bcryptCost int) *UserService {
	return &UserService{db: db, bcryptCost: bcryptCost}
}

func (s *UserService) List() ([]dto.UserProfile, error) {
	var users []models.User
	if err := s.db.Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	profiles := make([]dto.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, toUserProfile(&users[i]))
	}
	return profiles, nil
}

func (s *UserService) Get(actor policy.Actor, id uint) (*dto.UserProfile, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !policy.Allowed(actor, user.ID) {
		return nil, ErrForbidden
	}
	profile := toUserProfile(&user)
	return &profile, nil
}

func (s *UserService) Create(req *dto.CreateUserRequest) (*dto.UserProfile, error) {
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	var existing models.User
	err := s.db.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Email: req.Email, Password: string(hash), Role: role}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	profile := toUserProfile(&user)
	return &profile, nil
}

func (s *UserService) Update(actor policy.Actor, id uint, req *dto.UpdateUserRequest) (*dto.UserProfile, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if !policy.Allowed(actor, user.ID) {
		return nil, ErrForbidden
	}

	if req.Role != nil {
		// Only admins may change roles, including their own.
		if !actor.IsAdmin() {
			return nil, ErrForbidden
		}
		if !models.ValidRole(*req.Role) {
			return nil, ErrInvalidRole
		}
		user.Role = *req.Role
	}
	if req.Email != nil && *req.Email != user.Email {
		var existing models.User
		err := s.db.Where("email = ?", *req.Email).First(&existing).Error
		if err == nil {
			return nil, ErrEmailTaken
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		user.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hash)
	}

	if err := s.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	profile := toUserProfile(&user)
	return &profile, nil
}

// Delete removes the account and cascades its dependents: refresh tokens,
// vehicles (including soft-deleted ones) and their telemetry, in one
// transaction.
func (s *UserService) Delete(id uint) error {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var vehicleIDs []uint
		if err := tx.Unscoped().Model(&models.Vehicle{}).Where("user_id = ?", id).Pluck("id", &vehicleIDs).Error; err != nil {
			return err
		}
		if len(vehicleIDs) > 0 {
			if err := tx.Where("vehicle_id IN ?", vehicleIDs).Delete(&models.TelemetryLog{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("user_id = ?", id).Delete(&models.Vehicle{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
