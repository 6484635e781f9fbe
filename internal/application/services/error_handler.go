package services

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/utils"
)

const (
	maxErrorMessageLength = 500
	maxStackLength        = 4000
)

// ErrorHandler classifies and records generation failures
type ErrorHandler struct {
	packetRepo repositories.PacketRepository
	auditRepo  repositories.AuditRepository
	metrics    *observability.Metrics
}

// NewErrorHandler creates a new error handler. auditRepo and metrics may be nil.
func NewErrorHandler(packetRepo repositories.PacketRepository, auditRepo repositories.AuditRepository, metrics *observability.Metrics) *ErrorHandler {
	return &ErrorHandler{
		packetRepo: packetRepo,
		auditRepo:  auditRepo,
		metrics:    metrics,
	}
}

// Handle marks the packet FAILED with the classified kind and increments its
// retry count. It never fails; storage problems are logged. The boolean
// reports whether this call recorded the failure, which is false when the
// packet had already left GENERATING.
func (h *ErrorHandler) Handle(ctx context.Context, err error, packetID, clientID string, docType entities.DocumentType) (entities.ErrorKind, bool) {
	logger := observability.LoggerFromContext(ctx)
	kind := entities.ClassifyError(err)
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}
	message = utils.Truncate(message, maxErrorMessageLength)

	recorded, dbErr := h.packetRepo.MarkFailed(ctx, packetID, message, kind)
	if dbErr != nil {
		logger.Error().Err(dbErr).Str("packet_id", packetID).Msg("Failed to record packet failure")
	}

	logger.Error().
		Err(err).
		Str("packet_id", packetID).
		Str("client_id", clientID).
		Str("document_type", string(docType)).
		Str("error_kind", string(kind)).
		Bool("retryable", kind.Retryable()).
		Bool("recorded", recorded).
		Msg("Packet generation failed")

	if !recorded {
		return kind, false
	}

	observability.RecordPacketFailure(ctx, h.metrics, string(docType), string(kind))

	if h.auditRepo != nil {
		entry := &entities.AuditEntry{
			ID:         uuid.New().String(),
			Action:     entities.AuditPacketGenerationFailed,
			ResourceID: packetID,
			Details: map[string]interface{}{
				"client_id":     clientID,
				"document_type": string(docType),
				"error_kind":    string(kind),
				"error":         message,
				"stack":         utils.Truncate(string(debug.Stack()), maxStackLength),
			},
			CreatedAt: time.Now(),
		}
		if auditErr := h.auditRepo.Record(ctx, entry); auditErr != nil {
			logger.Warn().Err(auditErr).Str("packet_id", packetID).Msg("Failed to write failure audit entry")
		}
	}

	return kind, true
}
