package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
)

// ReferenceData is the read surface the meta endpoints need from the cache.
type ReferenceData interface {
	GetStates(ctx context.Context) ([]jagriti.State, error)
	GetCommissions(ctx context.Context, stateID string) ([]jagriti.Commission, error)
}

type StateListResponse struct {
	States []jagriti.State `json:"states"`
}

type CommissionListResponse struct {
	Commissions []jagriti.Commission `json:"commissions"`
	StateID     string               `json:"state_id"`
}

// MetaHandler serves the states and commissions reference endpoints.
type MetaHandler struct {
	RefData ReferenceData
}

// GetStates handles GET /states.
func (h *MetaHandler) GetStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.RefData.GetStates(r.Context())
	if err != nil {
		sendError(w, err)
		return
	}
	if states == nil {
		states = []jagriti.State{}
	}
	sendJSON(w, http.StatusOK, StateListResponse{States: states})
}

// GetCommissions handles GET /commissions/{state_id}.
func (h *MetaHandler) GetCommissions(w http.ResponseWriter, r *http.Request) {
	stateID := strings.TrimSpace(chi.URLParam(r, "state_id"))
	if stateID == "" {
		sendJSON(w, http.StatusBadRequest, errorDetail{Detail: "State ID cannot be empty"})
		return
	}

	commissions, err := h.RefData.GetCommissions(r.Context(), stateID)
	if err != nil {
		sendError(w, err)
		return
	}
	if len(commissions) == 0 {
		sendJSON(w, http.StatusNotFound, errorDetail{
			Detail: fmt.Sprintf("No commissions found for state ID: %s", stateID),
		})
		return
	}

	sendJSON(w, http.StatusOK, CommissionListResponse{Commissions: commissions, StateID: stateID})
}
