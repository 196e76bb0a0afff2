package policy

import (
	"testing"

	"github.com/fleetstack/fleet-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		ownerID uint
		want    bool
	}{
		{"owner may access own resource", Actor{ID: 1, Role: models.RoleUser}, 1, true},
		{"user may not access another's resource", Actor{ID: 1, Role: models.RoleUser}, 2, false},
		{"admin may access any resource", Actor{ID: 9, Role: models.RoleAdmin}, 2, true},
		{"admin may access own resource", Actor{ID: 9, Role: models.RoleAdmin}, 9, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.actor, tt.ownerID))
		})
	}
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, Actor{ID: 1, Role: models.RoleAdmin}.IsAdmin())
	assert.False(t, Actor{ID: 1, Role: models.RoleUser}.IsAdmin())
	assert.False(t, Actor{ID: 1, Role: "superuser"}.IsAdmin())
}
