package notifications

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// LogChannel writes notifications to the log. It is the fallback when no
// delivery channel is configured.
type LogChannel struct{}

// NewLogChannel creates a log-only channel
func NewLogChannel() providers.NotificationChannel {
	return LogChannel{}
}

func (LogChannel) Name() string { return "log" }

func (LogChannel) Supports(entities.NotificationAudience) bool { return true }

func (LogChannel) Send(ctx context.Context, n *entities.Notification) error {
	observability.LoggerFromContext(ctx).Info().
		Str("notification_type", string(n.Type)).
		Str("audience", string(n.Audience)).
		Str("packet_id", n.PacketID).
		Str("client_id", n.ClientID).
		Strs("recipients", n.Recipients).
		Str("subject", n.Subject).
		Msg("Notification")
	return nil
}
