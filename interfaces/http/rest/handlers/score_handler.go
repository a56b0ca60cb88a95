package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"flowboard/application/services"
	"flowboard/pkg/common"
	pkgerrors "flowboard/pkg/errors"
)

// ScoreHandler handles the derived read endpoints: ranked scores and
// downstream subtrees
type ScoreHandler struct {
	scoring *services.ScoringService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewScoreHandler creates a score handler
func NewScoreHandler(scoring *services.ScoringService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *ScoreHandler {
	return &ScoreHandler{scoring: scoring, errors: errors, logger: logger}
}

// ListScores handles GET /sessions/{sessionID}/scores. An optional
// multiplier query parameter overrides the blitz boost factor.
func (h *ScoreHandler) ListScores(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var multiplier *float64
	if raw := r.URL.Query().Get("multiplier"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("multiplier must be a number"))
			return
		}
		multiplier = &v
	}

	scores, err := h.scoring.ListScoredNodes(r.Context(), sessionID, multiplier)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
}

// GetSubtree handles GET /sessions/{sessionID}/nodes/{nodeID}/subtree with
// an optional depth query parameter
func (h *ScoreHandler) GetSubtree(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	nodeID, err := nodeIDParam(r, "nodeID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var maxDepth *int
	if raw := r.URL.Query().Get("depth"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("depth must be an integer"))
			return
		}
		maxDepth = &v
	}

	subtree, err := h.scoring.GetSubtree(r.Context(), sessionID, nodeID, maxDepth)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toSubtreeResponse(subtree))
}
