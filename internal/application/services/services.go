package services

import (
	"time"

	"github.com/internhub/core/internal/domain/entities"
	"github.com/internhub/core/internal/ports"
)

// utcNow is the default clock of every service. Timestamps are stored in UTC.
func utcNow() time.Time {
	return time.Now().UTC()
}

func requireAdmin(actor ports.Actor) error {
	if !actor.IsAdmin() {
		return entities.ErrForbidden
	}
	return nil
}
