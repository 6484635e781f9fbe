package services

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
)

// PacketService serves packet reads
type PacketService struct {
	packetRepo repositories.PacketRepository
}

// NewPacketService creates a new packet service
func NewPacketService(packetRepo repositories.PacketRepository) *PacketService {
	return &PacketService{packetRepo: packetRepo}
}

// GetPacket returns the full packet
func (s *PacketService) GetPacket(ctx context.Context, id string) (*entities.Packet, error) {
	return s.packetRepo.GetByID(ctx, id)
}

// ListForClient returns the client's packets as the client may see them
func (s *PacketService) ListForClient(ctx context.Context, clientID string) ([]*entities.Packet, error) {
	packets, err := s.packetRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Packet, 0, len(packets))
	for _, p := range packets {
		out = append(out, ClientView(p))
	}
	return out, nil
}

// ClientView hides failure details from clients. A FAILED packet is shown as
// still being prepared, and content is only exposed once READY.
func ClientView(p *entities.Packet) *entities.Packet {
	view := *p
	if view.Status == entities.PacketStatusFailed {
		view.Status = entities.PacketStatusPending
	}
	view.LastError = nil
	view.ErrorKind = nil
	view.RetryCount = 0
	view.NextRetryAt = nil
	view.ClaimedAt = nil
	view.LastNotifiedAt = nil
	if !p.VisibleToClient() {
		view.Content = nil
		view.PDFURL = nil
	}
	return &view
}
