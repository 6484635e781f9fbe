package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
)

// PacketHandler serves client-facing packet endpoints
type PacketHandler struct {
	clientRepo   repositories.ClientRepository
	routing      *services.RoutingService
	orchestrator *services.PacketOrchestrator
	packets      *services.PacketService
}

// NewPacketHandler creates a new packet handler
func NewPacketHandler(
	clientRepo repositories.ClientRepository,
	routing *services.RoutingService,
	orchestrator *services.PacketOrchestrator,
	packets *services.PacketService,
) *PacketHandler {
	return &PacketHandler{
		clientRepo:   clientRepo,
		routing:      routing,
		orchestrator: orchestrator,
		packets:      packets,
	}
}

// RoutePackets handles POST /api/clients/{id}/packets/route
func (h *PacketHandler) RoutePackets(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	if clientID == "" {
		respondWithError(w, http.StatusBadRequest, "client ID is required")
		return
	}

	client, err := h.clientRepo.GetByID(r.Context(), clientID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	result, err := h.routing.RoutePackets(r.Context(), client.ID, client.Classification, client.Answers)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.PacketIDs) > 0 {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, result)
}

// GeneratePacket handles POST /api/clients/{id}/packets/{type}/generate.
// The content is rendered and returned but nothing is stored.
func (h *PacketHandler) GeneratePacket(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	docType := entities.DocumentType(strings.ToUpper(r.PathValue("type")))
	if !docType.Valid() {
		respondWithError(w, http.StatusBadRequest, "unknown document type: "+r.PathValue("type"))
		return
	}

	content, err := h.orchestrator.Generate(r.Context(), clientID, docType)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"client_id":     clientID,
		"document_type": docType,
		"content":       content,
	})
}

// ListClientPackets handles GET /api/clients/{id}/packets
func (h *PacketHandler) ListClientPackets(w http.ResponseWriter, r *http.Request) {
	clientID := r.PathValue("id")
	if clientID == "" {
		respondWithError(w, http.StatusBadRequest, "client ID is required")
		return
	}

	packets, err := h.packets.ListForClient(r.Context(), clientID)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"packets": packets,
		"count":   len(packets),
	})
}

// GetPacket handles GET /api/packets/{id}
func (h *PacketHandler) GetPacket(w http.ResponseWriter, r *http.Request) {
	packet, err := h.packets.GetPacket(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.ClientView(packet))
}
