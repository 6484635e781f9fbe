package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
	"github.com/zatekoja/coachpackets/pkg/retry"
)

// RetryService decides whether failed packets are attempted again and when
type RetryService struct {
	packetRepo repositories.PacketRepository
	auditRepo  repositories.AuditRepository
	policy     retry.Config
	now        func() time.Time
}

// NewRetryService creates a new retry service. policy.MaxAttempts is the
// maximum retry count.
func NewRetryService(packetRepo repositories.PacketRepository, auditRepo repositories.AuditRepository, policy retry.Config) *RetryService {
	return &RetryService{
		packetRepo: packetRepo,
		auditRepo:  auditRepo,
		policy:     policy,
		now:        time.Now,
	}
}

// MaxRetries is the retry budget per packet
func (s *RetryService) MaxRetries() int {
	return s.policy.MaxAttempts
}

// Delay returns the backoff for the given attempt index
func (s *RetryService) Delay(retryCount int) time.Duration {
	return s.policy.Backoff(retryCount)
}

// ShouldRetry reports whether a packet may be attempted again automatically
func (s *RetryService) ShouldRetry(ctx context.Context, packetID string) (bool, error) {
	packet, err := s.packetRepo.GetByID(ctx, packetID)
	if err != nil {
		return false, err
	}
	return s.shouldRetry(packet), nil
}

func (s *RetryService) shouldRetry(packet *entities.Packet) bool {
	if packet.Status == entities.PacketStatusReady {
		return false
	}
	if packet.RetryCount >= s.policy.MaxAttempts {
		return false
	}
	return packet.Retryable()
}

// ScheduleRetry re-arms a FAILED packet after the backoff delay. The first
// retry waits the base delay. It is a no-op when the packet is no longer FAILED.
func (s *RetryService) ScheduleRetry(ctx context.Context, packetID string) error {
	logger := observability.LoggerFromContext(ctx)

	packet, err := s.packetRepo.GetByID(ctx, packetID)
	if err != nil {
		return err
	}

	delay := s.Delay(packet.RetryCount - 1)
	nextRetryAt := s.now().Add(delay)

	scheduled, err := s.packetRepo.ScheduleRetry(ctx, packetID, nextRetryAt)
	if err != nil {
		return err
	}
	if !scheduled {
		logger.Debug().Str("packet_id", packetID).Msg("Retry not scheduled, packet is no longer failed")
		return nil
	}

	logger.Info().
		Str("packet_id", packetID).
		Int("retry_count", packet.RetryCount).
		Dur("delay", delay).
		Time("next_retry_at", nextRetryAt).
		Msg("Packet retry scheduled")

	s.audit(ctx, entities.AuditPacketRetryScheduled, packetID, map[string]interface{}{
		"retry_count":   packet.RetryCount,
		"next_retry_at": nextRetryAt.Format(time.RFC3339),
	})
	return nil
}

// RetryNow makes a packet immediately eligible, skipping the backoff. Unless
// resetCount is set, a packet that exhausted its retries is rejected.
func (s *RetryService) RetryNow(ctx context.Context, packetID string, resetCount bool) error {
	packet, err := s.packetRepo.GetByID(ctx, packetID)
	if err != nil {
		return err
	}

	switch packet.Status {
	case entities.PacketStatusReady:
		return apperrors.NewConflictError(fmt.Sprintf("packet %s is already ready, regenerate it instead", packetID))
	case entities.PacketStatusGenerating:
		return apperrors.NewConflictError(fmt.Sprintf("packet %s is currently generating", packetID))
	}

	if !resetCount && packet.RetryCount >= s.policy.MaxAttempts {
		return apperrors.NewValidationError(fmt.Sprintf("packet %s exhausted its %d retries, use reset to try again", packetID, s.policy.MaxAttempts))
	}

	if err := s.packetRepo.ResetForRetry(ctx, packetID, resetCount); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("packet_id", packetID).
		Bool("reset_count", resetCount).
		Msg("Packet queued for immediate retry")

	s.audit(ctx, entities.AuditPacketRetryManual, packetID, map[string]interface{}{
		"reset_count":    resetCount,
		"previous_count": packet.RetryCount,
	})
	return nil
}

func (s *RetryService) audit(ctx context.Context, action entities.AuditAction, packetID string, details map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	entry := &entities.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		ResourceID: packetID,
		Details:    details,
		CreatedAt:  s.now(),
	}
	if err := s.auditRepo.Record(ctx, entry); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("packet_id", packetID).Msg("Failed to write audit entry")
	}
}
