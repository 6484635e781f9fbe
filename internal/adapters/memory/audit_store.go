package memory

import (
	"context"
	"sync"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
)

// AuditStore is an in-process AuditRepository
type AuditStore struct {
	mu      sync.RWMutex
	entries []*entities.AuditEntry
}

// NewAuditStore creates an empty store
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Record(ctx context.Context, entry *entities.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	s.entries = append(s.entries, &e)
	return nil
}

// ListByResource returns entries newest first
func (s *AuditStore) ListByResource(ctx context.Context, resourceID string, limit int) ([]*entities.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 50
	}
	out := []*entities.AuditEntry{}
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].ResourceID == resourceID {
			e := *s.entries[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

var _ repositories.AuditRepository = (*AuditStore)(nil)
