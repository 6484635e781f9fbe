package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// PacketStore is an in-process PacketRepository with the same conditional
// transition rules as the PostgreSQL adapter
type PacketStore struct {
	mu      sync.Mutex
	packets map[string]*entities.Packet
	now     func() time.Time
}

// NewPacketStore creates an empty store
func NewPacketStore() *PacketStore {
	return &PacketStore{packets: make(map[string]*entities.Packet), now: time.Now}
}

func copyPacket(p *entities.Packet) *entities.Packet {
	c := *p
	c.Content = p.Content.Clone()
	return &c
}

func strPtr(s string) *string { return &s }

func (s *PacketStore) get(id string) (*entities.Packet, error) {
	p, ok := s.packets[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("packet not found: %s", id))
	}
	return p, nil
}

func (s *PacketStore) Create(ctx context.Context, packet *entities.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.packets[packet.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("packet %s already exists", packet.ID))
	}
	if packet.CreatedAt.IsZero() {
		packet.CreatedAt = s.now()
	}
	if packet.UpdatedAt.IsZero() {
		packet.UpdatedAt = packet.CreatedAt
	}
	s.packets[packet.ID] = copyPacket(packet)
	return nil
}

func (s *PacketStore) GetByID(ctx context.Context, id string) (*entities.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.get(id)
	if err != nil {
		return nil, err
	}
	return copyPacket(p), nil
}

func (s *PacketStore) filter(match func(*entities.Packet) bool, less func(a, b *entities.Packet) bool, limit int) []*entities.Packet {
	var out []*entities.Packet
	for _, p := range s.packets {
		if match(p) {
			out = append(out, copyPacket(p))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func oldestFirst(a, b *entities.Packet) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func (s *PacketStore) ListByClient(ctx context.Context, clientID string) ([]*entities.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(p *entities.Packet) bool { return p.ClientID == clientID }, oldestFirst, 0), nil
}

func (s *PacketStore) ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*entities.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(p *entities.Packet) bool {
		return p.Status == entities.PacketStatusPending &&
			p.RetryCount < maxRetries &&
			(p.NextRetryAt == nil || !p.NextRetryAt.After(now))
	}, oldestFirst, limit), nil
}

// transition applies fn when the packet is in one of the allowed states
func (s *PacketStore) transition(id string, allowed []entities.PacketStatus, fn func(p *entities.Packet)) bool {
	p, ok := s.packets[id]
	if !ok {
		return false
	}
	for _, st := range allowed {
		if p.Status == st {
			fn(p)
			return true
		}
	}
	return false
}

func (s *PacketStore) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, []entities.PacketStatus{entities.PacketStatusPending}, func(p *entities.Packet) {
		p.Status = entities.PacketStatusGenerating
		claimed := now
		p.ClaimedAt = &claimed
		p.UpdatedAt = s.now()
	}), nil
}

func (s *PacketStore) MarkReady(ctx context.Context, id string, result repositories.ReadyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.transition(id, []entities.PacketStatus{entities.PacketStatusGenerating}, func(p *entities.Packet) {
		generatedAt := result.GeneratedAt
		p.Status = entities.PacketStatusReady
		p.Content = result.Content.Clone()
		p.PDFURL = result.PDFURL
		p.GeneratedBy = result.GeneratedBy
		p.GenerationMethod = result.Method
		p.GeneratedAt = &generatedAt
		p.LastError = nil
		p.ErrorKind = nil
		p.NextRetryAt = nil
		p.ClaimedAt = nil
		p.UpdatedAt = generatedAt
	})
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("packet %s is no longer generating", id))
	}
	return nil
}

func (s *PacketStore) MarkFailed(ctx context.Context, id string, message string, kind entities.ErrorKind) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, []entities.PacketStatus{entities.PacketStatusGenerating}, func(p *entities.Packet) {
		k := kind
		p.Status = entities.PacketStatusFailed
		p.LastError = strPtr(message)
		p.ErrorKind = &k
		p.RetryCount++
		p.ClaimedAt = nil
		p.UpdatedAt = s.now()
	}), nil
}

func (s *PacketStore) ScheduleRetry(ctx context.Context, id string, nextRetryAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(id, []entities.PacketStatus{entities.PacketStatusFailed}, func(p *entities.Packet) {
		at := nextRetryAt
		p.Status = entities.PacketStatusPending
		p.NextRetryAt = &at
		p.UpdatedAt = s.now()
	}), nil
}

func (s *PacketStore) ResetForRetry(ctx context.Context, id string, resetCount bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.transition(id, []entities.PacketStatus{entities.PacketStatusFailed, entities.PacketStatusPending}, func(p *entities.Packet) {
		p.Status = entities.PacketStatusPending
		p.NextRetryAt = nil
		p.LastError = nil
		p.ErrorKind = nil
		if resetCount {
			p.RetryCount = 0
		}
		p.UpdatedAt = s.now()
	})
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("packet %s cannot be retried in its current state", id))
	}
	return nil
}

func (s *PacketStore) UpdateContent(ctx context.Context, id string, content *entities.Content, editedBy string) (*entities.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.transition(id, []entities.PacketStatus{entities.PacketStatusPending, entities.PacketStatusReady, entities.PacketStatusFailed}, func(p *entities.Packet) {
		now := s.now()
		p.Status = entities.PacketStatusReady
		p.Content = content.Clone()
		p.Version++
		p.GeneratedBy = editedBy
		p.GenerationMethod = entities.GenerationMethodManual
		p.GeneratedAt = &now
		p.LastError = nil
		p.ErrorKind = nil
		p.NextRetryAt = nil
		p.UpdatedAt = now
	})
	if !ok {
		return nil, apperrors.NewConflictError(fmt.Sprintf("packet %s not found or not in an editable state", id))
	}
	return copyPacket(s.packets[id]), nil
}

func (s *PacketStore) RequeueForRegeneration(ctx context.Context, id string) (*entities.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.transition(id, []entities.PacketStatus{entities.PacketStatusReady, entities.PacketStatusFailed}, func(p *entities.Packet) {
		p.Status = entities.PacketStatusPending
		p.Version++
		p.RetryCount = 0
		p.LastError = nil
		p.ErrorKind = nil
		p.NextRetryAt = nil
		p.UpdatedAt = s.now()
	})
	if !ok {
		return nil, apperrors.NewConflictError(fmt.Sprintf("packet %s not found or not in an editable state", id))
	}
	return copyPacket(s.packets[id]), nil
}

func (s *PacketStore) ListFailed(ctx context.Context, maxRetries, limit int) ([]*entities.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(p *entities.Packet) bool {
		if p.Status != entities.PacketStatusFailed {
			return false
		}
		if p.RetryCount >= maxRetries {
			return true
		}
		return p.ErrorKind != nil && (*p.ErrorKind == entities.ErrorKindTemplate || *p.ErrorKind == entities.ErrorKindData)
	}, func(a, b *entities.Packet) bool { return a.UpdatedAt.After(b.UpdatedAt) }, limit), nil
}

func (s *PacketStore) MarkAdminNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packets[id]
	if !ok || p.Status != entities.PacketStatusFailed {
		return false, nil
	}
	if p.LastNotifiedAt != nil && !p.LastNotifiedAt.Before(p.UpdatedAt) {
		return false, nil
	}
	at := now
	p.LastNotifiedAt = &at
	return true, nil
}

func (s *PacketStore) ResetStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.packets {
		if p.Status == entities.PacketStatusGenerating && p.ClaimedAt != nil && p.ClaimedAt.Before(claimedBefore) {
			p.Status = entities.PacketStatusPending
			p.ClaimedAt = nil
			p.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

var _ repositories.PacketRepository = (*PacketStore)(nil)
