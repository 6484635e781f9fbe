package handlers

import (
	"net/http"

	"github.com/zatekoja/coachpackets/internal/application/services"
)

// IntakeHandler accepts completed intake questionnaires
type IntakeHandler struct {
	intake *services.IntakeService
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(intake *services.IntakeService) *IntakeHandler {
	return &IntakeHandler{intake: intake}
}

// SubmitIntake handles POST /api/intake
func (h *IntakeHandler) SubmitIntake(w http.ResponseWriter, r *http.Request) {
	var sub services.IntakeSubmission
	if err := decodeJSON(r, &sub); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.intake.Submit(r.Context(), &sub)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}
