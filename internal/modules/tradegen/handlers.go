package tradegen

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/sleeveworks/internal/modules/allocation"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for trade generation endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new trade generation handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("module", "tradegen_handlers").Logger(),
	}
}

// RegisterRoutes registers all trade generation routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/trades/preview", h.Preview)
}

// PreviewRequest is the body for plan previews. AvailableCash omitted or
// negative means "use the group's idle cash".
type PreviewRequest struct {
	GroupID       string   `json:"group_id"`
	Strategy      string   `json:"strategy"`
	AvailableCash *float64 `json:"available_cash,omitempty"`
}

// Preview computes and returns a trade plan without submitting anything
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.GroupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}

	strategy, err := ParseStrategy(req.Strategy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	availableCash := -1.0
	if req.AvailableCash != nil {
		availableCash = *req.AvailableCash
	}

	plan, err := h.service.Preview(req.GroupID, strategy, availableCash, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, allocation.ErrNoModel):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Group not found", http.StatusNotFound)
		case errors.Is(err, ErrOversell), errors.Is(err, ErrBlockedBuy):
			h.log.Error().Err(err).Str("group_id", req.GroupID).Msg("Invariant violation during generation")
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.log.Error().Err(err).Str("group_id", req.GroupID).Msg("Failed to generate plan")
			http.Error(w, "Failed to generate plan", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(plan); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
