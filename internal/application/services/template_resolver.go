package services

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// TemplateResolver picks the template for a generation. Lookup order:
// classification-scoped override, type-wide override, built-in default.
// Override sources are consulted in the order given.
type TemplateResolver struct {
	overrides []repositories.TemplateRepository
	builtin   repositories.TemplateRepository
}

// NewTemplateResolver creates a resolver over the built-in store and any override sources
func NewTemplateResolver(builtin repositories.TemplateRepository, overrides ...repositories.TemplateRepository) *TemplateResolver {
	var sources []repositories.TemplateRepository
	for _, o := range overrides {
		if o != nil {
			sources = append(sources, o)
		}
	}
	return &TemplateResolver{overrides: sources, builtin: builtin}
}

// Resolve returns the most specific template available
func (r *TemplateResolver) Resolve(ctx context.Context, docType entities.DocumentType, classification entities.Classification) (*entities.Template, error) {
	scopes := []entities.Classification{""}
	if classification != "" {
		scopes = []entities.Classification{classification, ""}
	}

	for _, scope := range scopes {
		for _, source := range r.overrides {
			tmpl, err := source.FindOverride(ctx, docType, scope)
			if err == nil {
				return tmpl, nil
			}
			if !apperrors.IsNotFound(err) {
				return nil, entities.WithKind(entities.ErrorKindDatabase, err)
			}
		}
	}

	if r.builtin != nil {
		tmpl, err := r.builtin.FindOverride(ctx, docType, "")
		if err == nil {
			return tmpl, nil
		}
		if !apperrors.IsNotFound(err) {
			return nil, entities.WithKind(entities.ErrorKindDatabase, err)
		}
	}

	return nil, entities.ErrTemplateNotFound(docType)
}
