package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers provides HTTP handlers for registry endpoints
type Handlers struct {
	service *Service
	log     zerolog.Logger
}

// NewHandlers creates a new registry handlers instance
func NewHandlers(service *Service, log zerolog.Logger) *Handlers {
	return &Handlers{
		service: service,
		log:     log.With().Str("module", "registry_handlers").Logger(),
	}
}

// RegisterRoutes registers all registry routes
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Get("/sleeves", h.ListSleeves)
	r.Get("/models", h.ListModels)
	r.Get("/groups", h.ListGroups)
	r.Post("/groups/{groupID}/model", h.AssignModel)
}

// ListSleeves returns all sleeves
func (h *Handlers) ListSleeves(w http.ResponseWriter, r *http.Request) {
	sleeves, err := h.service.Sleeves()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sleeves")
		http.Error(w, "Failed to list sleeves", http.StatusInternalServerError)
		return
	}
	writeJSON(w, sleeves)
}

// ListModels returns all models
func (h *Handlers) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.service.Models()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list models")
		http.Error(w, "Failed to list models", http.StatusInternalServerError)
		return
	}
	writeJSON(w, models)
}

// ListGroups returns all rebalancing groups
func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.Groups()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list groups")
		http.Error(w, "Failed to list groups", http.StatusInternalServerError)
		return
	}
	writeJSON(w, groups)
}

// AssignModelRequest is the body for model assignment
type AssignModelRequest struct {
	ModelID string `json:"model_id"`
}

// AssignModel assigns a validated model to a group
func (h *Handlers) AssignModel(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req AssignModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ModelID == "" {
		http.Error(w, "model_id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.AssignModel(groupID, req.ModelID); err != nil {
		switch {
		case errors.Is(err, ErrWeightSum):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "Group or model not found", http.StatusNotFound)
		default:
			h.log.Error().Err(err).Str("group_id", groupID).Msg("Failed to assign model")
			http.Error(w, "Failed to assign model", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, map[string]string{"status": "assigned"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
