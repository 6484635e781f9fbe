package entities

import "time"

// NotificationAudience is who a notification is for
type NotificationAudience string

const (
	AudienceClient NotificationAudience = "client"
	AudienceAdmin  NotificationAudience = "admin"
)

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationPacketReady  NotificationType = "packet_ready"
	NotificationPacketFailed NotificationType = "packet_failed"
)

// Notification is a rendered message handed to a delivery channel
type Notification struct {
	ID         string               `json:"id"`
	Type       NotificationType     `json:"type"`
	Audience   NotificationAudience `json:"audience"`
	PacketID   string               `json:"packet_id"`
	ClientID   string               `json:"client_id"`
	Recipients []string             `json:"recipients,omitempty"`
	Subject    string               `json:"subject"`
	Body       string               `json:"body"`
	CreatedAt  time.Time            `json:"created_at"`
}
