package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// WhatsAppChannel delivers notifications to the phone numbers in their
// recipient list. When a template name is configured for a notification type
// the approved template is used, otherwise the rendered body is sent as text.
type WhatsAppChannel struct {
	sender    *WhatsAppCloudSender
	templates map[entities.NotificationType]string
	language  string
}

// NewWhatsAppChannel wraps a sender as a NotificationChannel
func NewWhatsAppChannel(sender *WhatsAppCloudSender, templates map[entities.NotificationType]string) providers.NotificationChannel {
	if templates == nil {
		templates = map[entities.NotificationType]string{}
	}
	return &WhatsAppChannel{sender: sender, templates: templates, language: "en_US"}
}

func (c *WhatsAppChannel) Name() string { return "whatsapp" }

func (c *WhatsAppChannel) Supports(audience entities.NotificationAudience) bool {
	return audience == entities.AudienceAdmin || audience == entities.AudienceClient
}

// Send delivers to every recipient. One failing number does not stop the rest.
func (c *WhatsAppChannel) Send(ctx context.Context, n *entities.Notification) error {
	logger := observability.LoggerFromContext(ctx)
	var errs []error

	for _, to := range n.Recipients {
		var (
			messageID string
			err       error
		)
		if name, ok := c.templates[n.Type]; ok && name != "" {
			messageID, err = c.sender.SendTemplate(ctx, to, name, c.language, []string{n.Subject, n.PacketID})
		} else {
			messageID, err = c.sender.SendText(ctx, to, n.Subject+"\n\n"+n.Body)
		}
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				logger.Warn().Int("status", apiErr.StatusCode).Bool("temporary", apiErr.Temporary()).
					Str("packet_id", n.PacketID).Msg("WhatsApp API rejected notification")
			}
			errs = append(errs, fmt.Errorf("whatsapp to %s: %w", to, err))
			continue
		}
		logger.Debug().Str("message_id", messageID).Str("packet_id", n.PacketID).Msg("WhatsApp notification sent")
	}
	return errors.Join(errs...)
}
