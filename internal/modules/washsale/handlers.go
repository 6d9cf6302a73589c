package washsale

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for wash-sale endpoints
type Handlers struct {
	tracker *Tracker
	log     zerolog.Logger
}

// NewHandlers creates a new wash-sale handlers instance
func NewHandlers(tracker *Tracker, log zerolog.Logger) *Handlers {
	return &Handlers{
		tracker: tracker,
		log:     log.With().Str("module", "washsale_handlers").Logger(),
	}
}

// RegisterRoutes registers all wash-sale routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/washsale/blocks", h.ActiveBlocks)
}

// ActiveBlocks returns blocks whose window has not lapsed
func (h *Handlers) ActiveBlocks(w http.ResponseWriter, r *http.Request) {
	records, err := h.tracker.ActiveRecords(time.Now().UTC())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load active blocks")
		http.Error(w, "Failed to load active blocks", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
