package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

var clientColumns = []interface{}{
	"id", "owner_id", "name", "email", "phone", "classification",
	"attributes", "answers", "created_at", "updated_at",
}

// ClientAdapter implements the ClientRepository interface
type ClientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewClientAdapter creates a new client adapter
func NewClientAdapter(client *postgres.Client) repositories.ClientRepository {
	return &ClientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a client by ID
func (a *ClientAdapter) GetByID(ctx context.Context, id string) (*entities.Client, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, id)
}

// GetByOwner retrieves the client belonging to a user account
func (a *ClientAdapter) GetByOwner(ctx context.Context, ownerID string) (*entities.Client, error) {
	return a.getOne(ctx, goqu.Ex{"owner_id": ownerID}, ownerID)
}

func (a *ClientAdapter) getOne(ctx context.Context, where goqu.Ex, key string) (*entities.Client, error) {
	query, args, err := a.db.Select(clientColumns...).
		From("clients").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	client, err := scanClient(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, entities.ErrClientNotFound(key)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get client", err)
	}
	return client, nil
}

// UpsertByOwner inserts the owner's client or updates the existing row
func (a *ClientAdapter) UpsertByOwner(ctx context.Context, c *entities.Client) (*entities.Client, error) {
	if c.OwnerID == "" {
		return nil, apperrors.NewValidationError("client owner is required")
	}
	attributes, err := json.Marshal(emptyIfNil(c.Attributes))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode client attributes", err)
	}
	answers, err := json.Marshal(emptyIfNil(c.Answers))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode client answers", err)
	}

	now := time.Now()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	query, args, err := a.db.Insert("clients").
		Rows(goqu.Record{
			"id":             c.ID,
			"owner_id":       c.OwnerID,
			"name":           c.Name,
			"email":          c.Email,
			"phone":          c.Phone,
			"classification": c.Classification,
			"attributes":     string(attributes),
			"answers":        string(answers),
			"created_at":     now,
			"updated_at":     now,
		}).
		OnConflict(goqu.DoUpdate("owner_id", goqu.Record{
			"name":           goqu.L("EXCLUDED.name"),
			"email":          goqu.L("EXCLUDED.email"),
			"phone":          goqu.L("EXCLUDED.phone"),
			"classification": goqu.L("EXCLUDED.classification"),
			"attributes":     goqu.L("EXCLUDED.attributes"),
			"answers":        goqu.L("EXCLUDED.answers"),
			"updated_at":     goqu.L("EXCLUDED.updated_at"),
		})).
		Returning(clientColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build upsert query", err)
	}

	stored, err := scanClient(a.client.DB().QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to upsert client for owner %s", c.OwnerID), err)
	}
	return stored, nil
}

func scanClient(row rowScanner) (*entities.Client, error) {
	c := &entities.Client{}
	var email, phone sql.NullString
	var attributes, answers []byte

	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&email,
		&phone,
		&c.Classification,
		&attributes,
		&answers,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	c.Email = email.String
	c.Phone = phone.String
	c.Attributes = map[string]interface{}{}
	c.Answers = map[string]interface{}{}
	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &c.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode client attributes: %w", err)
		}
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &c.Answers); err != nil {
			return nil, fmt.Errorf("failed to decode client answers: %w", err)
		}
	}
	return c, nil
}

func emptyIfNil(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}
