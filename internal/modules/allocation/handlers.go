package allocation

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for allocation endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new allocation handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("module", "allocation_handlers").Logger(),
	}
}

// RegisterRoutes registers all allocation routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/allocation/{groupID}", h.GetSummary)
}

// GetSummary returns the current/target/difference projection for a group
func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	summary, err := h.service.Summary(groupID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoModel):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Group not found", http.StatusNotFound)
		default:
			h.log.Error().Err(err).Str("group_id", groupID).Msg("Failed to compute allocation")
			http.Error(w, "Failed to compute allocation", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
