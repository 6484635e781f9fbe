package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/notifications"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// NotificationService tells clients about ready packets and admins about
// packets that will not be retried. Delivery is best effort.
type NotificationService struct {
	packetRepo      repositories.PacketRepository
	clientRepo      repositories.ClientRepository
	auditRepo       repositories.AuditRepository
	channels        []providers.NotificationChannel
	adminRecipients []string
	metrics         *observability.Metrics
	now             func() time.Time
}

// NewNotificationService creates a new notification service. Without
// channels, notifications are only logged.
func NewNotificationService(
	packetRepo repositories.PacketRepository,
	clientRepo repositories.ClientRepository,
	auditRepo repositories.AuditRepository,
	channels []providers.NotificationChannel,
	adminRecipients []string,
	metrics *observability.Metrics,
) *NotificationService {
	if len(channels) == 0 {
		channels = []providers.NotificationChannel{notifications.NewLogChannel()}
	}
	return &NotificationService{
		packetRepo:      packetRepo,
		clientRepo:      clientRepo,
		auditRepo:       auditRepo,
		channels:        channels,
		adminRecipients: adminRecipients,
		metrics:         metrics,
		now:             time.Now,
	}
}

func documentLabel(docType entities.DocumentType) string {
	s := strings.ToLower(string(docType))
	return strings.ToUpper(s[:1]) + s[1:]
}

// NotifyClientReady tells the client their packet can be viewed
func (n *NotificationService) NotifyClientReady(ctx context.Context, packetID string) error {
	packet, err := n.packetRepo.GetByID(ctx, packetID)
	if err != nil {
		return fmt.Errorf("failed to load packet: %w", err)
	}
	if packet.Status != entities.PacketStatusReady {
		return nil
	}

	client, err := n.clientRepo.GetByID(ctx, packet.ClientID)
	if err != nil {
		return fmt.Errorf("failed to load client: %w", err)
	}

	var recipients []string
	if client.Phone != "" {
		recipients = append(recipients, client.Phone)
	}

	label := documentLabel(packet.DocumentType)
	notification := &entities.Notification{
		ID:         uuid.New().String(),
		Type:       entities.NotificationPacketReady,
		Audience:   entities.AudienceClient,
		PacketID:   packet.ID,
		ClientID:   client.ID,
		Recipients: recipients,
		Subject:    fmt.Sprintf("Your %s plan is ready", label),
		Body:       fmt.Sprintf("Hi %s, your personalized %s plan is ready to view.", firstName(client.Name), strings.ToLower(label)),
		CreatedAt:  n.now(),
	}

	n.dispatch(ctx, notification)
	return nil
}

// NotifyAdminsFailed alerts admins once per failure episode of a packet that
// will not be retried automatically.
func (n *NotificationService) NotifyAdminsFailed(ctx context.Context, packetID string, maxRetries int) error {
	logger := observability.LoggerFromContext(ctx)

	packet, err := n.packetRepo.GetByID(ctx, packetID)
	if err != nil {
		return fmt.Errorf("failed to load packet: %w", err)
	}
	if packet.Status != entities.PacketStatusFailed {
		return nil
	}
	if packet.Retryable() && packet.RetryCount < maxRetries {
		return nil
	}

	first, err := n.packetRepo.MarkAdminNotified(ctx, packetID, n.now())
	if err != nil {
		return fmt.Errorf("failed to record admin notification: %w", err)
	}
	if !first {
		logger.Debug().Str("packet_id", packetID).Msg("Admins already notified for this failure")
		return nil
	}

	clientName := packet.ClientID
	if client, err := n.clientRepo.GetByID(ctx, packet.ClientID); err == nil {
		clientName = client.Name
	}

	lastError := ""
	if packet.LastError != nil {
		lastError = *packet.LastError
	}
	kind := entities.ErrorKindUnknown
	if packet.ErrorKind != nil {
		kind = *packet.ErrorKind
	}

	notification := &entities.Notification{
		ID:         uuid.New().String(),
		Type:       entities.NotificationPacketFailed,
		Audience:   entities.AudienceAdmin,
		PacketID:   packet.ID,
		ClientID:   packet.ClientID,
		Recipients: n.adminRecipients,
		Subject:    fmt.Sprintf("%s packet failed for %s", packet.DocumentType, clientName),
		Body: fmt.Sprintf("Packet %s failed after %d attempts (%s): %s",
			packet.ID, packet.RetryCount, kind, lastError),
		CreatedAt: n.now(),
	}

	n.dispatch(ctx, notification)

	if n.auditRepo != nil {
		entry := &entities.AuditEntry{
			ID:         uuid.New().String(),
			Action:     entities.AuditPacketAdminNotified,
			ResourceID: packet.ID,
			Details: map[string]interface{}{
				"error_kind":  string(kind),
				"retry_count": packet.RetryCount,
			},
			CreatedAt: n.now(),
		}
		if err := n.auditRepo.Record(ctx, entry); err != nil {
			logger.Warn().Err(err).Str("packet_id", packet.ID).Msg("Failed to write audit entry")
		}
	}
	return nil
}

func (n *NotificationService) dispatch(ctx context.Context, notification *entities.Notification) {
	logger := observability.LoggerFromContext(ctx)
	for _, ch := range n.channels {
		if !ch.Supports(notification.Audience) {
			continue
		}
		if err := ch.Send(ctx, notification); err != nil {
			logger.Warn().
				Err(err).
				Str("channel", ch.Name()).
				Str("packet_id", notification.PacketID).
				Str("notification_type", string(notification.Type)).
				Msg("Notification delivery failed")
			continue
		}
		observability.RecordNotificationSent(ctx, n.metrics, ch.Name())
	}
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
