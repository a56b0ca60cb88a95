package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/application/services"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/pkg/common"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

// EdgeHandler handles edge endpoints
type EdgeHandler struct {
	edges  *services.EdgeService
	errors *pkgerrors.ErrorHandler
	logger *zap.Logger
}

// NewEdgeHandler creates an edge handler
func NewEdgeHandler(edges *services.EdgeService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{edges: edges, errors: errors, logger: logger}
}

type createEdgeRequest struct {
	SourceID string                 `json:"source_id" validate:"required,uuid"`
	TargetID string                 `json:"target_id" validate:"required,uuid"`
	Type     string                 `json:"type" validate:"required"`
	Label    string                 `json:"label"`
	Weight   *float64               `json:"weight"`
	Metadata map[string]interface{} `json:"metadata"`
}

// CreateEdge handles POST /sessions/{sessionID}/edges. Dependency edges
// are admitted only if they keep the dependency subgraph acyclic.
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req createEdgeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	sourceID, err := valueobjects.NewNodeIDFromString(req.SourceID)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid source id"))
		return
	}
	targetID, err := valueobjects.NewNodeIDFromString(req.TargetID)
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid target id"))
		return
	}

	edge, err := h.edges.Create(r.Context(), sessionID, sourceID, targetID, entities.EdgeType(req.Type), services.CreateEdgeInput{
		Label:    req.Label,
		Weight:   req.Weight,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toEdgeResponse(edge))
}

// GetEdge handles GET /sessions/{sessionID}/edges/{edgeID}
func (h *EdgeHandler) GetEdge(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	edgeID, err := edgeIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	edge, err := h.edges.Get(r.Context(), sessionID, edgeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toEdgeResponse(edge))
}

// ListEdges handles GET /sessions/{sessionID}/edges with optional type and
// incident-node query filters
func (h *EdgeHandler) ListEdges(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var filter ports.EdgeFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		edgeType := entities.EdgeType(raw)
		filter.Type = &edgeType
	}
	if raw := r.URL.Query().Get("node"); raw != "" {
		filter.IncidentNodeID = raw
	}

	edges, err := h.edges.List(r.Context(), sessionID, filter)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	page := common.ParsePageRequest(r)
	total := len(edges)
	start, end := page.Slice(total)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"edges":      toEdgeResponses(edges[start:end]),
		"pagination": page.Info(total),
	})
}

// DeleteEdge handles DELETE /sessions/{sessionID}/edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	edgeID, err := edgeIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if err := h.edges.Delete(r.Context(), sessionID, edgeID); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"deleted": edgeID.String()})
}
