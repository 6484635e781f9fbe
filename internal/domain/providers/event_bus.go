package providers

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to packet events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.PacketEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.PacketEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelPacketUpdates carries every packet status change
	EventChannelPacketUpdates = "packets:updates"

	// EventChannelClientPrefix is the prefix for per-client channels
	EventChannelClientPrefix = "packets:client:"
)

// GetClientChannel returns the channel name for a client's packet events
func GetClientChannel(clientID string) string {
	return EventChannelClientPrefix + clientID
}
