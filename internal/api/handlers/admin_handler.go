package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// AdminHandler serves the packet operations used by coaches and support
type AdminHandler struct {
	admin   *services.AdminService
	packets *services.PacketService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin *services.AdminService, packets *services.PacketService) *AdminHandler {
	return &AdminHandler{admin: admin, packets: packets}
}

// ListFailed handles GET /api/admin/packets/failed
func (h *AdminHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	packets, err := h.admin.ListFailed(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"packets": packets,
		"count":   len(packets),
	})
}

// GetPacket handles GET /api/admin/packets/{id}, including failure details
func (h *AdminHandler) GetPacket(w http.ResponseWriter, r *http.Request) {
	packet, err := h.packets.GetPacket(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, packet)
}

// RetryPacket handles POST /api/admin/packets/{id}/retry?reset=true
func (h *AdminHandler) RetryPacket(w http.ResponseWriter, r *http.Request) {
	reset := false
	if v := r.URL.Query().Get("reset"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "reset must be true or false")
			return
		}
		reset = parsed
	}

	packet, err := h.admin.RetryNow(r.Context(), r.PathValue("id"), reset)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, packet)
}

type editContentRequest struct {
	Content  *entities.Content `json:"content"`
	EditedBy string            `json:"edited_by"`
}

// EditContent handles PUT /api/admin/packets/{id}/content
func (h *AdminHandler) EditContent(w http.ResponseWriter, r *http.Request) {
	var req editContentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == nil {
		respondWithError(w, http.StatusBadRequest, "content is required")
		return
	}

	packet, err := h.admin.EditContent(r.Context(), r.PathValue("id"), req.Content, req.EditedBy)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, packet)
}

// Regenerate handles POST /api/admin/packets/{id}/regenerate
func (h *AdminHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	packet, err := h.admin.Regenerate(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusAccepted, packet)
}

// History handles GET /api/admin/packets/{id}/audit
func (h *AdminHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.History(r.Context(), r.PathValue("id"), queryInt(r, "limit", 50))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}
