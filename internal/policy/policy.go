// Package policy holds the ownership rule applied before every access to an
// owned resource. It is recomputed per request; nothing is cached.
package policy

import "github.com/fleetstack/fleet-backend/internal/models"

// Actor is the authenticated principal extracted from an access token.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Allowed reports whether the actor may act on a resource owned by ownerID:
// admins may act on anything, users only on their own resources.
func Allowed(a Actor, ownerID uint) bool {
	return a.IsAdmin() || a.ID == ownerID
}
