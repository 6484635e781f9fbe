package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// auditRow mirrors the audit_log table for sqlx struct scanning
type auditRow struct {
	ID         string    `db:"id"`
	Action     string    `db:"action"`
	ResourceID string    `db:"resource_id"`
	Details    []byte    `db:"details"`
	CreatedAt  time.Time `db:"created_at"`
}

// AuditAdapter implements the AuditRepository interface with sqlx
type AuditAdapter struct {
	db *sqlx.DB
}

// NewAuditAdapter creates a new audit adapter
func NewAuditAdapter(db *sqlx.DB) repositories.AuditRepository {
	return &AuditAdapter{db: db}
}

// Record appends an audit entry
func (a *AuditAdapter) Record(ctx context.Context, entry *entities.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	details, err := json.Marshal(emptyIfNil(entry.Details))
	if err != nil {
		return apperrors.NewInternalError("failed to encode audit details", err)
	}

	query := `
		INSERT INTO audit_log (id, action, resource_id, details, created_at)
		VALUES (:id, :action, :resource_id, :details, :created_at)
	`
	_, err = a.db.NamedExecContext(ctx, query, auditRow{
		ID:         entry.ID,
		Action:     string(entry.Action),
		ResourceID: entry.ResourceID,
		Details:    details,
		CreatedAt:  entry.CreatedAt,
	})
	if err != nil {
		return apperrors.NewInternalError("failed to record audit entry", err)
	}
	return nil
}

// ListByResource returns a resource's audit trail, newest first
func (a *AuditAdapter) ListByResource(ctx context.Context, resourceID string, limit int) ([]*entities.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []auditRow
	query := `SELECT id, action, resource_id, details, created_at FROM audit_log WHERE resource_id = $1 ORDER BY created_at DESC LIMIT $2`
	if err := a.db.SelectContext(ctx, &rows, query, resourceID, limit); err != nil {
		return nil, apperrors.NewInternalError("failed to list audit entries", err)
	}

	entries := make([]*entities.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := &entities.AuditEntry{
			ID:         row.ID,
			Action:     entities.AuditAction(row.Action),
			ResourceID: row.ResourceID,
			CreatedAt:  row.CreatedAt,
		}
		if len(row.Details) > 0 {
			if err := json.Unmarshal(row.Details, &entry.Details); err != nil {
				return nil, apperrors.NewInternalError("failed to decode audit details", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
