package providers

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// NotificationChannel delivers rendered notifications
type NotificationChannel interface {
	// Name identifies the channel in logs
	Name() string

	// Supports reports whether the channel delivers to the audience
	Supports(audience entities.NotificationAudience) bool

	// Send delivers the notification
	Send(ctx context.Context, notification *entities.Notification) error
}
