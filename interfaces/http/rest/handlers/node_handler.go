package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/application/services"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/pkg/common"
	pkgerrors "flowboard/pkg/errors"
	"flowboard/pkg/utils"
)

// NodeHandler handles node endpoints, including status transitions and
// re-parenting deletion
type NodeHandler struct {
	nodes     *services.NodeService
	lifecycle *services.LifecycleService
	errors    *pkgerrors.ErrorHandler
	logger    *zap.Logger
}

// NewNodeHandler creates a node handler
func NewNodeHandler(nodes *services.NodeService, lifecycle *services.LifecycleService, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{nodes: nodes, lifecycle: lifecycle, errors: errors, logger: logger}
}

type createNodeRequest struct {
	Type        string                 `json:"type" validate:"required"`
	Label       string                 `json:"label" validate:"required"`
	Description string                 `json:"description"`
	Priority    int                    `json:"priority"`
	Position    *positionDTO           `json:"position"`
	Metadata    map[string]interface{} `json:"metadata"`
	DueDate     *time.Time             `json:"due_date"`
}

// CreateNode handles POST /sessions/{sessionID}/nodes
func (h *NodeHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var req createNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	input := services.CreateNodeInput{
		Type:        entities.NodeType(req.Type),
		Label:       req.Label,
		Description: req.Description,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
		DueDate:     req.DueDate,
	}
	if req.Position != nil {
		input.Position = valueobjects.NewPosition(req.Position.X, req.Position.Y)
	}

	node, err := h.nodes.Create(r.Context(), sessionID, input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, toNodeResponse(node))
}

// GetNode handles GET /sessions/{sessionID}/nodes/{nodeID}
func (h *NodeHandler) GetNode(w http.ResponseWriter, r *http.Request) {
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

	node, err := h.nodes.Get(r.Context(), sessionID, nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toNodeResponse(node))
}

// ListNodes handles GET /sessions/{sessionID}/nodes with optional type and
// status query filters
func (h *NodeHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	sessionID, err := sessionIDParam(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var filter ports.NodeFilter
	if raw := r.URL.Query().Get("type"); raw != "" {
		nodeType := entities.NodeType(raw)
		filter.Type = &nodeType
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := entities.NodeStatus(raw)
		filter.Status = &status
	}

	nodes, err := h.nodes.List(r.Context(), sessionID, filter)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	page := common.ParsePageRequest(r)
	total := len(nodes)
	start, end := page.Slice(total)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"nodes":      toNodeResponses(nodes[start:end]),
		"pagination": page.Info(total),
	})
}

type updateNodeRequest struct {
	Label       *string                `json:"label"`
	Description *string                `json:"description"`
	Priority    *int                   `json:"priority"`
	Position    *positionDTO           `json:"position"`
	Metadata    map[string]interface{} `json:"metadata"`
	DueDate     *time.Time             `json:"due_date"`
	ClearDue    bool                   `json:"clear_due"`
}

// UpdateNode handles PATCH /sessions/{sessionID}/nodes/{nodeID}
func (h *NodeHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
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

	var req updateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}

	input := services.UpdateNodeInput{
		Label:       req.Label,
		Description: req.Description,
		Priority:    req.Priority,
		Metadata:    req.Metadata,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
	}
	if req.Position != nil {
		pos := valueobjects.NewPosition(req.Position.X, req.Position.Y)
		input.Position = &pos
	}

	node, err := h.nodes.Update(r.Context(), sessionID, nodeID, input)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toNodeResponse(node))
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// SetNodeStatus handles PUT /sessions/{sessionID}/nodes/{nodeID}/status.
// Completing a node is gated on its dependency predecessors; the error
// response enumerates any that are unmet.
func (h *NodeHandler) SetNodeStatus(w http.ResponseWriter, r *http.Request) {
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

	var req setStatusRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body"))
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	node, err := h.lifecycle.SetNodeStatus(r.Context(), sessionID, nodeID, entities.NodeStatus(req.Status))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, toNodeResponse(node))
}

// DeleteNode handles DELETE /sessions/{sessionID}/nodes/{nodeID}. The
// response reports how many parent-child bridges the deletion created.
func (h *NodeHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
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

	reparented, err := h.lifecycle.DeleteNode(r.Context(), sessionID, nodeID)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted":          nodeID.String(),
		"reparented_edges": reparented,
	})
}
