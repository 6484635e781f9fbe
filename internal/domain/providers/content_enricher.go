package providers

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// ContentEnricher attaches document-type specific sections to rendered content
type ContentEnricher interface {
	// DocumentType is the type this enricher handles
	DocumentType() entities.DocumentType

	// Enrich returns the content with extra sections added. It must not
	// mutate the input.
	Enrich(ctx context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error)
}
