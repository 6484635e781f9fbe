package entities_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    entities.ErrorKind
	}{
		{"template not found", "NOT_FOUND: Template not found: NUTRITION", entities.ErrorKindTemplate},
		{"template render", "failed to render template section", entities.ErrorKindTemplate},
		{"client not found", "NOT_FOUND: Client not found: c-1", entities.ErrorKindData},
		{"missing field", "missing required answer: weight", entities.ErrorKindData},
		{"openai", "OpenAI returned 500", entities.ErrorKindAI},
		{"pdf", "PDF renderer unavailable", entities.ErrorKindExport},
		{"database", "database is shutting down", entities.ErrorKindDatabase},
		{"pq", "INTERNAL: failed to update packet: pq: deadlock detected", entities.ErrorKindDatabase},
		{"unknown", "something odd happened", entities.ErrorKindUnknown},
		{"case sensitive", "TEMPLATE MISSING", entities.ErrorKindUnknown},
		{"database is not data", "Database connection reset", entities.ErrorKindDatabase},
		{"FAILED is not AI", "job FAILED unexpectedly", entities.ErrorKindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entities.ClassifyMessage(tt.message))
		})
	}
}

func TestClassifyMessage_PriorityOrder(t *testing.T) {
	// Template wording outranks every later category.
	assert.Equal(t, entities.ErrorKindTemplate, entities.ClassifyMessage("Template not found while writing PDF to database"))
	// Export outranks database.
	assert.Equal(t, entities.ErrorKindExport, entities.ClassifyMessage("export failed: database timeout"))
}

func TestClassifyError_TemplateNotFoundIsNeverRetried(t *testing.T) {
	err := fmt.Errorf("generate: %w", entities.ErrTemplateNotFound(entities.DocumentTypeWellness))

	kind := entities.ClassifyError(err)
	assert.Equal(t, entities.ErrorKindTemplate, kind)
	assert.False(t, kind.Retryable())
}

func TestClassifyError_ExplicitKindWins(t *testing.T) {
	err := entities.WithKind(entities.ErrorKindDatabase, errors.New("failed to load template override: timeout"))

	assert.Equal(t, entities.ErrorKindDatabase, entities.ClassifyError(err))
	assert.Equal(t, entities.ErrorKindUnknown, entities.ClassifyError(nil))
	assert.Nil(t, entities.WithKind(entities.ErrorKindAI, nil))
}

func TestErrorKind_Retryable(t *testing.T) {
	assert.False(t, entities.ErrorKindTemplate.Retryable())
	assert.False(t, entities.ErrorKindData.Retryable())
	for _, k := range []entities.ErrorKind{entities.ErrorKindAI, entities.ErrorKindExport, entities.ErrorKindDatabase, entities.ErrorKindUnknown} {
		assert.True(t, k.Retryable(), string(k))
	}
}
