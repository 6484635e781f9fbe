package entities

import "time"

// AuditAction names an auditable packet lifecycle event
type AuditAction string

const (
	AuditPacketReady            AuditAction = "packet.ready"
	AuditPacketGenerationFailed AuditAction = "packet.generation_failed"
	AuditPacketRetryScheduled   AuditAction = "packet.retry_scheduled"
	AuditPacketRetryManual      AuditAction = "packet.retry_manual"
	AuditPacketRegenerate       AuditAction = "packet.regenerate"
	AuditPacketContentEdited    AuditAction = "packet.content_edited"
	AuditPacketAdminNotified    AuditAction = "packet.admin_notified"
)

// AuditEntry is an append-only diagnostic record
type AuditEntry struct {
	ID         string                 `json:"id" db:"id"`
	Action     AuditAction            `json:"action" db:"action"`
	ResourceID string                 `json:"resource_id" db:"resource_id"`
	Details    map[string]interface{} `json:"details" db:"details"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
