package repositories

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// TemplateRepository defines lookup of template overrides
type TemplateRepository interface {
	// FindOverride returns the override for a document type. An empty
	// classification selects the document type's default override.
	// A missing override is a NotFound error.
	FindOverride(ctx context.Context, docType entities.DocumentType, classification entities.Classification) (*entities.Template, error)
}
