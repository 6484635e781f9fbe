package providers

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// PDFExporter renders packet content to a stored document
type PDFExporter interface {
	// Export returns a reference (URL) to the exported file
	Export(ctx context.Context, req ExportRequest) (string, error)
}

// ExportRequest describes one export
type ExportRequest struct {
	PacketID     string                `json:"packet_id"`
	ClientName   string                `json:"client_name"`
	DocumentType entities.DocumentType `json:"document_type"`
	Content      *entities.Content     `json:"content"`
	Options      ExportOptions         `json:"options"`
}

// ExportOptions tunes the rendered document
type ExportOptions struct {
	IncludeCover bool   `json:"include_cover"`
	PageSize     string `json:"page_size,omitempty"`
}
