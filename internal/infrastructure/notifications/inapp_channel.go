package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	redisclient "github.com/zatekoja/coachpackets/internal/infrastructure/clients/redis"
)

// InAppChannelName returns the pub/sub channel an in-app notification is published on
func InAppChannelName(n *entities.Notification) string {
	if n.Audience == entities.AudienceAdmin {
		return "notifications:admin"
	}
	return "notifications:client:" + n.ClientID
}

// InAppChannel publishes notifications on Redis pub/sub for the web app
type InAppChannel struct {
	client *redisclient.Client
}

// NewInAppChannel creates a Redis-backed in-app channel
func NewInAppChannel(client *redisclient.Client) providers.NotificationChannel {
	return &InAppChannel{client: client}
}

func (c *InAppChannel) Name() string { return "in-app" }

func (c *InAppChannel) Supports(entities.NotificationAudience) bool { return true }

func (c *InAppChannel) Send(ctx context.Context, n *entities.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if _, err := c.client.Publish(ctx, InAppChannelName(n), data); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
