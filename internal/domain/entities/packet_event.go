package entities

import (
	"time"

	"github.com/google/uuid"
)

// PacketEvent announces a packet status change on the event bus
type PacketEvent struct {
	ID           string       `json:"id"`
	PacketID     string       `json:"packet_id"`
	ClientID     string       `json:"client_id"`
	DocumentType DocumentType `json:"document_type"`
	Status       PacketStatus `json:"status"`
	Version      int          `json:"version"`
	Timestamp    time.Time    `json:"timestamp"`
}

// NewPacketEvent creates an event describing the packet's current state
func NewPacketEvent(packet *Packet) *PacketEvent {
	return &PacketEvent{
		ID:           uuid.New().String(),
		PacketID:     packet.ID,
		ClientID:     packet.ClientID,
		DocumentType: packet.DocumentType,
		Status:       packet.Status,
		Version:      packet.Version,
		Timestamp:    time.Now(),
	}
}
