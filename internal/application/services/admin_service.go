package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

const defaultFailedLimit = 50

// AdminService backs the admin packet operations
type AdminService struct {
	packetRepo repositories.PacketRepository
	auditRepo  repositories.AuditRepository
	retry      *RetryService
	eventBus   providers.EventBus
}

// NewAdminService creates a new admin service
func NewAdminService(packetRepo repositories.PacketRepository, auditRepo repositories.AuditRepository, retry *RetryService, eventBus providers.EventBus) *AdminService {
	return &AdminService{
		packetRepo: packetRepo,
		auditRepo:  auditRepo,
		retry:      retry,
		eventBus:   eventBus,
	}
}

// ListFailed returns failed packets that need a human
func (s *AdminService) ListFailed(ctx context.Context, limit int) ([]*entities.Packet, error) {
	if limit <= 0 {
		limit = defaultFailedLimit
	}
	return s.packetRepo.ListFailed(ctx, s.retry.MaxRetries(), limit)
}

// RetryNow makes a packet eligible immediately
func (s *AdminService) RetryNow(ctx context.Context, packetID string, resetCount bool) (*entities.Packet, error) {
	if err := s.retry.RetryNow(ctx, packetID, resetCount); err != nil {
		return nil, err
	}
	packet, err := s.packetRepo.GetByID(ctx, packetID)
	if err != nil {
		return nil, err
	}
	publishPacketEvent(ctx, s.eventBus, packet)
	return packet, nil
}

// EditContent replaces a packet's content by hand
func (s *AdminService) EditContent(ctx context.Context, packetID string, content *entities.Content, editedBy string) (*entities.Packet, error) {
	if err := content.Validate(); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid content: %v", err))
	}
	if editedBy == "" {
		editedBy = "admin"
	}

	packet, err := s.packetRepo.UpdateContent(ctx, packetID, content, editedBy)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("packet_id", packetID).
		Str("edited_by", editedBy).
		Int("version", packet.Version).
		Msg("Packet content edited")

	s.audit(ctx, entities.AuditPacketContentEdited, packetID, map[string]interface{}{
		"edited_by": editedBy,
		"version":   packet.Version,
	})
	publishPacketEvent(ctx, s.eventBus, packet)
	return packet, nil
}

// Regenerate sends a READY or FAILED packet back through the queue as a new version
func (s *AdminService) Regenerate(ctx context.Context, packetID string) (*entities.Packet, error) {
	packet, err := s.packetRepo.RequeueForRegeneration(ctx, packetID)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("packet_id", packetID).
		Int("version", packet.Version).
		Msg("Packet queued for regeneration")

	s.audit(ctx, entities.AuditPacketRegenerate, packetID, map[string]interface{}{
		"version": packet.Version,
	})
	publishPacketEvent(ctx, s.eventBus, packet)
	return packet, nil
}

// History returns a packet's audit trail, newest first
func (s *AdminService) History(ctx context.Context, packetID string, limit int) ([]*entities.AuditEntry, error) {
	if s.auditRepo == nil {
		return []*entities.AuditEntry{}, nil
	}
	if _, err := s.packetRepo.GetByID(ctx, packetID); err != nil {
		return nil, err
	}
	return s.auditRepo.ListByResource(ctx, packetID, limit)
}

func (s *AdminService) audit(ctx context.Context, action entities.AuditAction, packetID string, details map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	entry := &entities.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		ResourceID: packetID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
	if err := s.auditRepo.Record(ctx, entry); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("packet_id", packetID).Msg("Failed to write audit entry")
	}
}
