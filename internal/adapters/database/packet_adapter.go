package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

const packetsTable = "packets"

var packetColumns = []interface{}{
	"id", "client_id", "document_type", "status", "content", "pdf_url",
	"version", "last_error", "error_kind", "retry_count", "next_retry_at",
	"claimed_at", "generated_by", "generation_method", "generated_at",
	"last_notified_at", "created_at", "updated_at",
}

// PacketAdapter implements the PacketRepository interface
type PacketAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPacketAdapter creates a new packet adapter
func NewPacketAdapter(client *postgres.Client) repositories.PacketRepository {
	return &PacketAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create inserts a new packet
func (a *PacketAdapter) Create(ctx context.Context, packet *entities.Packet) error {
	content, err := marshalContent(packet.Content)
	if err != nil {
		return apperrors.NewInternalError("failed to encode packet content", err)
	}

	record := goqu.Record{
		"id":                packet.ID,
		"client_id":         packet.ClientID,
		"document_type":     packet.DocumentType,
		"status":            packet.Status,
		"content":           content,
		"pdf_url":           nullString(packet.PDFURL),
		"version":           packet.Version,
		"retry_count":       packet.RetryCount,
		"generated_by":      packet.GeneratedBy,
		"generation_method": packet.GenerationMethod,
		"created_at":        packet.CreatedAt,
		"updated_at":        packet.UpdatedAt,
	}

	query, args, err := a.db.Insert(packetsTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create packet", err)
	}
	return nil
}

// GetByID retrieves a packet by ID
func (a *PacketAdapter) GetByID(ctx context.Context, id string) (*entities.Packet, error) {
	query, args, err := a.db.Select(packetColumns...).
		From(packetsTable).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	packet, err := scanPacket(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("packet with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get packet", err)
	}
	return packet, nil
}

// ListByClient returns a client's packets, oldest first
func (a *PacketAdapter) ListByClient(ctx context.Context, clientID string) ([]*entities.Packet, error) {
	ds := a.db.Select(packetColumns...).
		From(packetsTable).
		Where(goqu.Ex{"client_id": clientID}).
		Order(goqu.C("created_at").Asc())
	return a.list(ctx, "packet.list_by_client", ds, "failed to list packets")
}

// ListDue returns PENDING packets eligible for a generation attempt
func (a *PacketAdapter) ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*entities.Packet, error) {
	ds := a.db.Select(packetColumns...).
		From(packetsTable).
		Where(
			goqu.C("status").Eq(entities.PacketStatusPending),
			goqu.C("retry_count").Lt(maxRetries),
			goqu.Or(
				goqu.C("next_retry_at").IsNull(),
				goqu.C("next_retry_at").Lte(now),
			),
		).
		Order(goqu.C("created_at").Asc()).
		Limit(uint(limit))
	return a.list(ctx, "packet.list_due", ds, "failed to list due packets")
}

// Claim moves a packet from PENDING to GENERATING
func (a *PacketAdapter) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	query, args, err := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":     entities.PacketStatusGenerating,
			"claimed_at": now,
			"updated_at": now,
		}).
		Where(goqu.Ex{"id": id, "status": entities.PacketStatusPending}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build claim query", err)
	}
	return a.execConditional(ctx, "packet.claim", query, args, "failed to claim packet")
}

// MarkReady stores generated content on a GENERATING packet
func (a *PacketAdapter) MarkReady(ctx context.Context, id string, result repositories.ReadyResult) error {
	content, err := marshalContent(result.Content)
	if err != nil {
		return apperrors.NewInternalError("failed to encode packet content", err)
	}

	query, args, err := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":            entities.PacketStatusReady,
			"content":           content,
			"pdf_url":           nullString(result.PDFURL),
			"generated_by":      result.GeneratedBy,
			"generation_method": result.Method,
			"generated_at":      result.GeneratedAt,
			"last_error":        nil,
			"error_kind":        nil,
			"next_retry_at":     nil,
			"claimed_at":        nil,
			"updated_at":        result.GeneratedAt,
		}).
		Where(goqu.Ex{"id": id, "status": entities.PacketStatusGenerating}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	ok, err := a.execConditional(ctx, "packet.mark_ready", query, args, "failed to mark packet ready")
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("packet %s is no longer generating", id))
	}
	return nil
}

// MarkFailed moves a GENERATING packet to FAILED
func (a *PacketAdapter) MarkFailed(ctx context.Context, id string, message string, kind entities.ErrorKind) (bool, error) {
	now := time.Now()
	query, args, err := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":      entities.PacketStatusFailed,
			"last_error":  message,
			"error_kind":  kind,
			"retry_count": goqu.L("retry_count + 1"),
			"claimed_at":  nil,
			"updated_at":  now,
		}).
		Where(goqu.Ex{"id": id, "status": entities.PacketStatusGenerating}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}
	return a.execConditional(ctx, "packet.mark_failed", query, args, "failed to mark packet failed")
}

// ScheduleRetry moves a FAILED packet back to PENDING
func (a *PacketAdapter) ScheduleRetry(ctx context.Context, id string, nextRetryAt time.Time) (bool, error) {
	query, args, err := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":        entities.PacketStatusPending,
			"next_retry_at": nextRetryAt,
			"updated_at":    time.Now(),
		}).
		Where(goqu.Ex{"id": id, "status": entities.PacketStatusFailed}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}
	return a.execConditional(ctx, "packet.schedule_retry", query, args, "failed to schedule packet retry")
}

// ResetForRetry makes a FAILED or PENDING packet immediately eligible
func (a *PacketAdapter) ResetForRetry(ctx context.Context, id string, resetCount bool) error {
	record := goqu.Record{
		"status":        entities.PacketStatusPending,
		"next_retry_at": nil,
		"last_error":    nil,
		"error_kind":    nil,
		"updated_at":    time.Now(),
	}
	if resetCount {
		record["retry_count"] = 0
	}

	query, args, err := a.db.Update(packetsTable).
		Set(record).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").In(entities.PacketStatusFailed, entities.PacketStatusPending),
		).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	ok, err := a.execConditional(ctx, "packet.reset_for_retry", query, args, "failed to reset packet")
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewConflictError(fmt.Sprintf("packet %s cannot be retried in its current state", id))
	}
	return nil
}

// UpdateContent replaces content by hand
func (a *PacketAdapter) UpdateContent(ctx context.Context, id string, content *entities.Content, editedBy string) (*entities.Packet, error) {
	data, err := marshalContent(content)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode packet content", err)
	}

	now := time.Now()
	ds := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":            entities.PacketStatusReady,
			"content":           data,
			"version":           goqu.L("version + 1"),
			"generated_by":      editedBy,
			"generation_method": entities.GenerationMethodManual,
			"generated_at":      now,
			"last_error":        nil,
			"error_kind":        nil,
			"next_retry_at":     nil,
			"updated_at":        now,
		}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").Neq(entities.PacketStatusGenerating),
		).
		Returning(packetColumns...)
	return a.updateReturning(ctx, "packet.update_content", ds, id, "failed to update packet content")
}

// RequeueForRegeneration forces a READY or FAILED packet back to PENDING
func (a *PacketAdapter) RequeueForRegeneration(ctx context.Context, id string) (*entities.Packet, error) {
	ds := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":        entities.PacketStatusPending,
			"version":       goqu.L("version + 1"),
			"retry_count":   0,
			"last_error":    nil,
			"error_kind":    nil,
			"next_retry_at": nil,
			"updated_at":    time.Now(),
		}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").In(entities.PacketStatusReady, entities.PacketStatusFailed),
		).
		Returning(packetColumns...)
	return a.updateReturning(ctx, "packet.requeue", ds, id, "failed to requeue packet")
}

// ListFailed returns FAILED packets that exhausted retries or cannot be retried
func (a *PacketAdapter) ListFailed(ctx context.Context, maxRetries, limit int) ([]*entities.Packet, error) {
	ds := a.db.Select(packetColumns...).
		From(packetsTable).
		Where(
			goqu.C("status").Eq(entities.PacketStatusFailed),
			goqu.Or(
				goqu.C("retry_count").Gte(maxRetries),
				goqu.C("error_kind").In(entities.ErrorKindTemplate, entities.ErrorKindData),
			),
		).
		Order(goqu.C("updated_at").Desc())
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	return a.list(ctx, "packet.list_failed", ds, "failed to list failed packets")
}

// MarkAdminNotified records an alert once per failure episode
func (a *PacketAdapter) MarkAdminNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	query, args, err := a.db.Update(packetsTable).
		Set(goqu.Record{"last_notified_at": now}).
		Where(
			goqu.C("id").Eq(id),
			goqu.C("status").Eq(entities.PacketStatusFailed),
			goqu.Or(
				goqu.C("last_notified_at").IsNull(),
				goqu.C("last_notified_at").Lt(goqu.I("updated_at")),
			),
		).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build update query", err)
	}
	return a.execConditional(ctx, "packet.mark_notified", query, args, "failed to mark admin notified")
}

// ResetStale returns abandoned GENERATING packets to PENDING
func (a *PacketAdapter) ResetStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	query, args, err := a.db.Update(packetsTable).
		Set(goqu.Record{
			"status":     entities.PacketStatusPending,
			"claimed_at": nil,
			"updated_at": time.Now(),
		}).
		Where(
			goqu.C("status").Eq(entities.PacketStatusGenerating),
			goqu.C("claimed_at").Lt(claimedBefore),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewInternalError("failed to reset stale packets", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected, nil
}

func (a *PacketAdapter) list(ctx context.Context, op string, ds *goqu.SelectDataset, failMsg string) ([]*entities.Packet, error) {
	defer a.client.Observe(ctx, op, time.Now())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(failMsg, err)
	}
	defer rows.Close()

	packets := make([]*entities.Packet, 0)
	for rows.Next() {
		packet, err := scanPacket(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan packet", err)
		}
		packets = append(packets, packet)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(failMsg, err)
	}
	return packets, nil
}

func (a *PacketAdapter) updateReturning(ctx context.Context, op string, ds *goqu.UpdateDataset, id, failMsg string) (*entities.Packet, error) {
	defer a.client.Observe(ctx, op, time.Now())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	packet, err := scanPacket(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewConflictError(fmt.Sprintf("packet %s not found or not in an editable state", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError(failMsg, err)
	}
	return packet, nil
}

func (a *PacketAdapter) execConditional(ctx context.Context, op string, query string, args []interface{}, failMsg string) (bool, error) {
	defer a.client.Observe(ctx, op, time.Now())

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError(failMsg, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected == 1, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPacket(row rowScanner) (*entities.Packet, error) {
	packet := &entities.Packet{}
	var (
		content                                           []byte
		pdfURL, lastError, errorKind, generatedBy, method sql.NullString
		nextRetryAt, claimedAt, generatedAt, notifiedAt   sql.NullTime
	)

	err := row.Scan(
		&packet.ID,
		&packet.ClientID,
		&packet.DocumentType,
		&packet.Status,
		&content,
		&pdfURL,
		&packet.Version,
		&lastError,
		&errorKind,
		&packet.RetryCount,
		&nextRetryAt,
		&claimedAt,
		&generatedBy,
		&method,
		&generatedAt,
		&notifiedAt,
		&packet.CreatedAt,
		&packet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(content) > 0 {
		packet.Content = &entities.Content{}
		if err := json.Unmarshal(content, packet.Content); err != nil {
			return nil, fmt.Errorf("failed to decode content of packet %s: %w", packet.ID, err)
		}
	}
	if pdfURL.Valid {
		packet.PDFURL = &pdfURL.String
	}
	if lastError.Valid {
		packet.LastError = &lastError.String
	}
	if errorKind.Valid && errorKind.String != "" {
		kind := entities.ErrorKind(errorKind.String)
		packet.ErrorKind = &kind
	}
	packet.GeneratedBy = generatedBy.String
	packet.GenerationMethod = entities.GenerationMethod(method.String)
	packet.NextRetryAt = nullTime(nextRetryAt)
	packet.ClaimedAt = nullTime(claimedAt)
	packet.GeneratedAt = nullTime(generatedAt)
	packet.LastNotifiedAt = nullTime(notifiedAt)

	return packet, nil
}

func marshalContent(content *entities.Content) (interface{}, error) {
	if content == nil {
		return nil, nil
	}
	data, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
