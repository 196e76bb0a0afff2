package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is a single-use session record. Only the SHA-256 hash of the
// opaque token is stored; the raw value is returned to the client once and
// never persisted. Consuming a token (refresh) deletes the row; login deletes
// every row for the user before issuing a new one. Expired rows are excluded
// at lookup rather than purged proactively.
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
