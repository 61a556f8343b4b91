package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aruanc/sentinela/internal/contracts"
	"github.com/aruanc/sentinela/internal/investigate"
	"github.com/aruanc/sentinela/internal/target"
	"github.com/aruanc/sentinela/pkg/logger"
)

// Runner runs one investigation end to end
type Runner interface {
	Run(ctx context.Context, req investigate.Request) (*contracts.InvestigationResult, error)
}

// InvestigationHandler handles investigation API endpoints
type InvestigationHandler struct {
	pipeline Runner
	logger   *logger.Logger
}

// NewInvestigationHandler creates a new investigation handler
func NewInvestigationHandler(pipeline Runner, log *logger.Logger) *InvestigationHandler {
	return &InvestigationHandler{
		pipeline: pipeline,
		logger:   log,
	}
}

// Investigate runs an investigation for a free-text query
// POST /api/v1/investigate
func (h *InvestigationHandler) Investigate(w http.ResponseWriter, r *http.Request) {
	var req investigate.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.pipeline.Run(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, target.ErrNoTarget):
			respondError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, investigate.ErrUnsupportedMarket):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.WithError(err).WithField("query", req.Query).Error("Investigation failed")
			respondError(w, http.StatusInternalServerError, "investigation failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
