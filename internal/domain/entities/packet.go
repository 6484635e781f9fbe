package entities

import "time"

// PacketStatus represents where a packet is in the generation lifecycle
type PacketStatus string

const (
	PacketStatusPending    PacketStatus = "PENDING"
	PacketStatusGenerating PacketStatus = "GENERATING"
	PacketStatusReady      PacketStatus = "READY"
	PacketStatusFailed     PacketStatus = "FAILED"
)

// DocumentType is the fixed category of a packet
type DocumentType string

const (
	DocumentTypeNutrition   DocumentType = "NUTRITION"
	DocumentTypeWorkout     DocumentType = "WORKOUT"
	DocumentTypePerformance DocumentType = "PERFORMANCE"
	DocumentTypeYouth       DocumentType = "YOUTH"
	DocumentTypeRecovery    DocumentType = "RECOVERY"
	DocumentTypeWellness    DocumentType = "WELLNESS"
	DocumentTypeIntro       DocumentType = "INTRO"
)

// AllDocumentTypes lists every document type in display order
var AllDocumentTypes = []DocumentType{
	DocumentTypeNutrition,
	DocumentTypeWorkout,
	DocumentTypePerformance,
	DocumentTypeYouth,
	DocumentTypeRecovery,
	DocumentTypeWellness,
	DocumentTypeIntro,
}

// Valid reports whether d is one of the known document types
func (d DocumentType) Valid() bool {
	for _, t := range AllDocumentTypes {
		if t == d {
			return true
		}
	}
	return false
}

// GenerationMethod records how a packet's current content was produced
type GenerationMethod string

const (
	GenerationMethodTemplate GenerationMethod = "template"
	GenerationMethodManual   GenerationMethod = "manual"
)

// Packet is one generated document instance for a client. The row doubles as
// the work item of the generation queue.
type Packet struct {
	ID               string           `json:"id" db:"id"`
	ClientID         string           `json:"client_id" db:"client_id"`
	DocumentType     DocumentType     `json:"document_type" db:"document_type"`
	Status           PacketStatus     `json:"status" db:"status"`
	Content          *Content         `json:"content,omitempty" db:"content"`
	PDFURL           *string          `json:"pdf_url,omitempty" db:"pdf_url"`
	Version          int              `json:"version" db:"version"`
	LastError        *string          `json:"last_error,omitempty" db:"last_error"`
	ErrorKind        *ErrorKind       `json:"error_kind,omitempty" db:"error_kind"`
	RetryCount       int              `json:"retry_count" db:"retry_count"`
	NextRetryAt      *time.Time       `json:"next_retry_at,omitempty" db:"next_retry_at"`
	ClaimedAt        *time.Time       `json:"claimed_at,omitempty" db:"claimed_at"`
	GeneratedBy      string           `json:"generated_by,omitempty" db:"generated_by"`
	GenerationMethod GenerationMethod `json:"generation_method,omitempty" db:"generation_method"`
	GeneratedAt      *time.Time       `json:"generated_at,omitempty" db:"generated_at"`
	LastNotifiedAt   *time.Time       `json:"last_notified_at,omitempty" db:"last_notified_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// VisibleToClient reports whether the client may see this packet. Clients see
// READY packets only; everything else is an absence.
func (p *Packet) VisibleToClient() bool {
	return p != nil && p.Status == PacketStatusReady && p.Content != nil
}

// NeedsAttention reports whether the packet exhausted its retries and needs an admin
func (p *Packet) NeedsAttention(maxRetries int) bool {
	return p != nil && p.Status == PacketStatusFailed && p.RetryCount >= maxRetries
}

// Retryable reports whether the packet's recorded failure kind permits another attempt
func (p *Packet) Retryable() bool {
	if p == nil {
		return false
	}
	if p.ErrorKind != nil && *p.ErrorKind != "" {
		return p.ErrorKind.Retryable()
	}
	if p.LastError != nil {
		return ClassifyMessage(*p.LastError).Retryable()
	}
	return true
}
