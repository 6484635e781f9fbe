package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// templateDefinition is the JSONB body of a stored template
type templateDefinition struct {
	Title    string                     `json:"title"`
	Sections []entities.TemplateSection `json:"sections"`
}

// TemplateAdapter implements the TemplateRepository interface over the
// packet_templates table
type TemplateAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewTemplateAdapter creates a new template adapter
func NewTemplateAdapter(client *postgres.Client) repositories.TemplateRepository {
	return &TemplateAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// FindOverride returns the newest active override for the document type
func (a *TemplateAdapter) FindOverride(ctx context.Context, docType entities.DocumentType, classification entities.Classification) (*entities.Template, error) {
	classFilter := goqu.C("classification").IsNull()
	if classification != "" {
		classFilter = goqu.C("classification").Eq(classification)
	}

	query, args, err := a.db.Select(
		"id", "name", "document_type", "classification", "version",
		"definition", "created_at", "updated_at",
	).From("packet_templates").
		Where(
			goqu.C("document_type").Eq(docType),
			classFilter,
			goqu.C("is_active").IsTrue(),
		).
		Order(goqu.C("version").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	tmpl := &entities.Template{}
	var class sql.NullString
	var definition []byte

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&tmpl.ID,
		&tmpl.Name,
		&tmpl.DocumentType,
		&class,
		&tmpl.Version,
		&definition,
		&tmpl.CreatedAt,
		&tmpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no template override for %s/%s", docType, classification))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get template override", err)
	}

	var def templateDefinition
	if err := json.Unmarshal(definition, &def); err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("failed to decode template %s", tmpl.ID), err)
	}
	tmpl.Classification = entities.Classification(class.String)
	tmpl.Title = def.Title
	tmpl.Sections = def.Sections

	return tmpl, nil
}
