package entities

import (
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// ErrorKind is the failure taxonomy used for retry decisions
type ErrorKind string

const (
	ErrorKindTemplate ErrorKind = "TEMPLATE_ERROR"
	ErrorKindData     ErrorKind = "DATA_ERROR"
	ErrorKindAI       ErrorKind = "AI_ERROR"
	ErrorKindExport   ErrorKind = "EXPORT_ERROR"
	ErrorKindDatabase ErrorKind = "DATABASE_ERROR"
	ErrorKindUnknown  ErrorKind = "UNKNOWN_ERROR"
)

// Canonical lookup failure messages. Their wording is part of classification.
const (
	MessageClientNotFound   = "Client not found"
	MessageTemplateNotFound = "Template not found"
)

// Retryable is the single retryability rule: configuration and input problems
// do not heal on their own, everything else is presumed transient.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindTemplate, ErrorKindData:
		return false
	default:
		return true
	}
}

// Checked in order; the first kind with a matching keyword wins. Matching is
// case-sensitive.
var classificationRules = []struct {
	kind     ErrorKind
	keywords []string
}{
	{ErrorKindTemplate, []string{MessageTemplateNotFound, "template", "Template"}},
	{ErrorKindData, []string{MessageClientNotFound, "missing required", "invalid data", "data error", "malformed"}},
	{ErrorKindAI, []string{"OpenAI", "AI service", "AI generation", "API error", "rate limit"}},
	{ErrorKindExport, []string{"PDF", "pdf", "export", "Export"}},
	{ErrorKindDatabase, []string{"database", "Database", "sql", "pq:", "connection refused", "store"}},
}

// ClassifyMessage maps an error message onto the taxonomy
func ClassifyMessage(msg string) ErrorKind {
	for _, rule := range classificationRules {
		for _, kw := range rule.keywords {
			if strings.Contains(msg, kw) {
				return rule.kind
			}
		}
	}
	return ErrorKindUnknown
}

// ClassifyError classifies err. An explicit *KindError anywhere in the chain
// takes precedence over message matching.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	return ClassifyMessage(err.Error())
}

// KindError pins an error to a taxonomy kind regardless of its message
type KindError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindError) Error() string { return e.Err.Error() }

func (e *KindError) Unwrap() error { return e.Err }

// WithKind wraps err so ClassifyError reports kind
func WithKind(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &KindError{Kind: kind, Err: err}
}

// ErrClientNotFound is returned when a packet's client does not exist
func ErrClientNotFound(clientID string) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s: %s", MessageClientNotFound, clientID))
}

// ErrTemplateNotFound is returned when no template exists for a document type
func ErrTemplateNotFound(docType DocumentType) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("%s: %s", MessageTemplateNotFound, docType))
}
