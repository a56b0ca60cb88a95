package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"flowboard/application/services"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/pkg/common"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

// BlitzHandler handles blitz endpoints
type BlitzHandler struct {
	blitzes *services.BlitzService
	errors  *pkgerrors.ErrorHandler
	logger  *zap.Logger
}

// NewBlitzHandler creates a blitz handler
func NewBlitzHandler(blitzes *services.BlitzService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *BlitzHandler {
	return &BlitzHandler{blitzes: blitzes, errors: errors, logger: logger}
}

type createBlitzRequest struct {
	Title         string   `json:"title" validate:"required,max=200"`
	MemberNodeIDs []string `json:"member_node_ids" validate:"dive,uuid"`
	TimeLimitSecs int64    `json:"time_limit_secs" validate:"omitempty,gt=0"`
}

// CreateBlitz handles POST /sessions/{sessionID}/blitzes
func (h *BlitzHandler) CreateBlitz(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req createBlitzRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	memberIDs := make([]valueobjects.NodeID, 0, len(req.MemberNodeIDs))
	for _, raw := range req.MemberNodeIDs {
		id, err := valueobjects.NewNodeIDFromString(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid member node id"))
			return
		}
		memberIDs = append(memberIDs, id)
	}

	var timeLimit *time.Duration
	if req.TimeLimitSecs > 0 {
		d := time.Duration(req.TimeLimitSecs) * time.Second
		timeLimit = &d
	}

	blitz, err := h.blitzes.Create(r.Context(), sessionID, req.Title, memberIDs, timeLimit)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toBlitzResponse(blitz))
}

// GetBlitz handles GET /sessions/{sessionID}/blitzes/{blitzID}
func (h *BlitzHandler) GetBlitz(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	blitzID, err := blitzIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	blitz, err := h.blitzes.Get(r.Context(), sessionID, blitzID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBlitzResponse(blitz))
}

// ListBlitzes handles GET /sessions/{sessionID}/blitzes
func (h *BlitzHandler) ListBlitzes(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	blitzes, err := h.blitzes.List(r.Context(), sessionID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"blitzes": toBlitzResponses(blitzes)})
}

// ActivateBlitz handles POST /sessions/{sessionID}/blitzes/{blitzID}/activate.
// At most one blitz per session may be active; a conflict response names
// the current holder.
func (h *BlitzHandler) ActivateBlitz(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	blitzID, err := blitzIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	blitz, err := h.blitzes.Activate(r.Context(), sessionID, blitzID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBlitzResponse(blitz))
}

type finishBlitzRequest struct {
	Outcome string                 `json:"outcome" validate:"required,oneof=completed abandoned"`
	Results map[string]interface{} `json:"results"`
}

// FinishBlitz handles POST /sessions/{sessionID}/blitzes/{blitzID}/finish
func (h *BlitzHandler) FinishBlitz(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	blitzID, err := blitzIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req finishBlitzRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	blitz, err := h.blitzes.Finish(r.Context(), sessionID, blitzID, entities.BlitzOutcome(req.Outcome), req.Results)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBlitzResponse(blitz))
}

// DeleteBlitz handles DELETE /sessions/{sessionID}/blitzes/{blitzID}
func (h *BlitzHandler) DeleteBlitz(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	blitzID, err := blitzIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.blitzes.Delete(r.Context(), sessionID, blitzID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"deleted": blitzID.String()})
}

// AddMember handles POST /sessions/{sessionID}/blitzes/{blitzID}/members/{nodeID}
func (h *BlitzHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	blitzID, err := blitzIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	nodeID, err := nodeIDParam(r, "nodeID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	blitz, err := h.blitzes.AddMember(r.Context(), sessionID, blitzID, nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBlitzResponse(blitz))
}

// RemoveMember handles DELETE /sessions/{sessionID}/blitzes/{blitzID}/members/{nodeID}
func (h *BlitzHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	blitzID, err := blitzIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	nodeID, err := nodeIDParam(r, "nodeID")
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	blitz, err := h.blitzes.RemoveMember(r.Context(), sessionID, blitzID, nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toBlitzResponse(blitz))
}
