package validators

import (
	"fmt"
	"strings"

	"flowboard/domain/config"
	"flowboard/domain/core/entities"
	"flowboard/pkg/errors"
)

// NodeValidator validates node-related domain rules
type NodeValidator struct {
	maxLabelLength       int
	maxDescriptionLength int
	maxMetadataKeys      int
	maxCoordinate        float64
}

// NewNodeValidator creates a node validator from the domain limits
func NewNodeValidator(cfg *config.DomainConfig) *NodeValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeValidator{
		maxLabelLength:       cfg.MaxLabelLength,
		maxDescriptionLength: cfg.MaxDescriptionLength,
		maxMetadataKeys:      50,
		maxCoordinate:        100000.0,
	}
}

// ValidateLabel validates a node label
func (v *NodeValidator) ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return errors.ErrNodeLabelRequired
	}
	if len(label) > v.maxLabelLength {
		return errors.NewValidationError("node label exceeds maximum length").
			WithDetail("actual_length", len(label)).
			WithDetail("max_length", v.maxLabelLength)
	}
	return nil
}

// ValidateDescription validates a node description
func (v *NodeValidator) ValidateDescription(desc string) error {
	if len(desc) > v.maxDescriptionLength {
		return errors.NewValidationError("node description exceeds maximum length").
			WithDetail("actual_length", len(desc)).
			WithDetail("max_length", v.maxDescriptionLength)
	}
	return nil
}

// ValidateType validates a node type value
func (v *NodeValidator) ValidateType(t entities.NodeType) error {
	if !entities.ValidNodeType(t) {
		return errors.ErrInvalidNodeType.WithDetail("type", string(t))
	}
	return nil
}

// ValidateStatus validates a node status value
func (v *NodeValidator) ValidateStatus(s entities.NodeStatus) error {
	if !entities.ValidNodeStatus(s) {
		return errors.ErrInvalidNodeStatus.WithDetail("status", string(s))
	}
	return nil
}

// ValidatePosition validates canvas coordinates
func (v *NodeValidator) ValidatePosition(x, y float64) error {
	if x < -v.maxCoordinate || x > v.maxCoordinate ||
		y < -v.maxCoordinate || y > v.maxCoordinate {
		return errors.NewValidationError("position coordinates out of range").
			WithDetail("x", x).
			WithDetail("y", y).
			WithDetail("max", v.maxCoordinate)
	}
	return nil
}

// ValidateMetadata bounds the opaque metadata bag without interpreting it
func (v *NodeValidator) ValidateMetadata(metadata map[string]interface{}) error {
	if len(metadata) > v.maxMetadataKeys {
		return errors.NewValidationError(
			fmt.Sprintf("cannot have more than %d metadata keys", v.maxMetadataKeys)).
			WithDetail("count", len(metadata))
	}
	return nil
}

// GraphValidator validates session-wide structural limits
type GraphValidator struct {
	maxNodesPerSession int
	maxEdgesPerSession int
}

// NewGraphValidator creates a graph validator from the domain limits
func NewGraphValidator(cfg *config.DomainConfig) *GraphValidator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GraphValidator{
		maxNodesPerSession: cfg.MaxNodesPerSession,
		maxEdgesPerSession: cfg.MaxEdgesPerSession,
	}
}

// ValidateNodeCount checks the session node count against its limit
func (v *GraphValidator) ValidateNodeCount(count int) error {
	if count >= v.maxNodesPerSession {
		return errors.New(errors.ErrorTypeBusinessRule, "NODE_LIMIT_EXCEEDED",
			"maximum number of nodes in session reached").
			WithDetail("current", count).
			WithDetail("limit", v.maxNodesPerSession)
	}
	return nil
}

// ValidateEdgeCount checks the session edge count against its limit
func (v *GraphValidator) ValidateEdgeCount(count int) error {
	if count >= v.maxEdgesPerSession {
		return errors.New(errors.ErrorTypeBusinessRule, "EDGE_LIMIT_EXCEEDED",
			"maximum number of edges in session reached").
			WithDetail("current", count).
			WithDetail("limit", v.maxEdgesPerSession)
	}
	return nil
}

// EdgeValidator validates edge-related domain rules
type EdgeValidator struct{}

// NewEdgeValidator creates an edge validator
func NewEdgeValidator() *EdgeValidator {
	return &EdgeValidator{}
}

// ValidateEndpoints checks the endpoints of a proposed edge
func (v *EdgeValidator) ValidateEndpoints(sourceID, targetID string) error {
	if sourceID == "" || targetID == "" {
		return errors.NewValidationError("edge endpoints cannot be empty")
	}
	if sourceID == targetID {
		return errors.ErrSelfReferentialEdge.WithDetail("node_id", sourceID)
	}
	return nil
}

// ValidateType validates an edge type value
func (v *EdgeValidator) ValidateType(t entities.EdgeType) error {
	if !entities.ValidEdgeType(t) {
		return errors.ErrInvalidEdgeType.WithDetail("type", string(t))
	}
	return nil
}

// ValidateWeight validates the edge weight
func (v *EdgeValidator) ValidateWeight(weight float64) error {
	if weight < 0 {
		return errors.NewValidationError("edge weight cannot be negative").
			WithDetail("weight", weight)
	}
	return nil
}
