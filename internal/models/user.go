package models

import "time"

// Roles assignable to an account. Registration always produces a USER;
// ADMIN is granted via seeding or the user-admin API.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// ValidRole reports whether s is a known role name.
func ValidRole(s string) bool {
	return s == RoleUser || s == RoleAdmin
}

// User is a fleet account. Emails are stored and matched case-sensitively.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Role      string    `gorm:"size:20;not null;default:'USER'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
