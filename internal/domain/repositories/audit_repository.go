package repositories

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// AuditRepository defines the append-only audit log
type AuditRepository interface {
	// Record appends an entry
	Record(ctx context.Context, entry *entities.AuditEntry) error

	// ListByResource returns the newest entries for a resource first
	ListByResource(ctx context.Context, resourceID string, limit int) ([]*entities.AuditEntry, error)
}
