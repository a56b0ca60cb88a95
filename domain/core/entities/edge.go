package entities

import (
	"time"

	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

// EdgeType defines the kind of relation an edge carries
type EdgeType string

const (
	// EdgeTypeDependency means the source must complete before the target
	// may; only these edges participate in cycle checking
	EdgeTypeDependency EdgeType = "dependency"

	EdgeTypeAssociation EdgeType = "association"
	EdgeTypeHierarchy   EdgeType = "hierarchy"
	EdgeTypeSequence    EdgeType = "sequence"
)

// ValidEdgeType reports whether t is a known edge type
func ValidEdgeType(t EdgeType) bool {
	switch t {
	case EdgeTypeDependency, EdgeTypeAssociation, EdgeTypeHierarchy, EdgeTypeSequence:
		return true
	}
	return false
}

// DefaultEdgeWeight is used when a caller does not supply one
const DefaultEdgeWeight = 1.0

// Edge is a directed, typed relation between two nodes in the same session.
// At most one edge may exist per ordered (session, source, target) pair,
// regardless of type.
type Edge struct {
	id        valueobjects.EdgeID
	sessionID valueobjects.SessionID
	sourceID  valueobjects.NodeID
	targetID  valueobjects.NodeID
	edgeType  EdgeType
	label     string
	weight    float64
	metadata  map[string]interface{}
	createdAt time.Time
	updatedAt time.Time
}

// NewEdge creates an edge with endpoint and type validation. Duplicate and
// cycle checks need graph-wide visibility and live in the edge service.
func NewEdge(sessionID valueobjects.SessionID, sourceID, targetID valueobjects.NodeID, edgeType EdgeType) (*Edge, error) {
	if sessionID.IsZero() {
		return nil, pkgerrors.NewValidationError("session ID cannot be empty")
	}
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints cannot be empty")
	}
	if sourceID.Equals(targetID) {
		return nil, pkgerrors.ErrSelfReferentialEdge
	}
	if !ValidEdgeType(edgeType) {
		return nil, pkgerrors.ErrInvalidEdgeType.WithDetail("type", string(edgeType))
	}

	now := time.Now()
	return &Edge{
		id:        valueobjects.NewEdgeID(),
		sessionID: sessionID,
		sourceID:  sourceID,
		targetID:  targetID,
		edgeType:  edgeType,
		weight:    DefaultEdgeWeight,
		metadata:  make(map[string]interface{}),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructEdge rebuilds an edge from stored data
func ReconstructEdge(
	id valueobjects.EdgeID,
	sessionID valueobjects.SessionID,
	sourceID, targetID valueobjects.NodeID,
	edgeType EdgeType,
	label string,
	weight float64,
	metadata map[string]interface{},
	createdAt, updatedAt time.Time,
) *Edge {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &Edge{
		id:        id,
		sessionID: sessionID,
		sourceID:  sourceID,
		targetID:  targetID,
		edgeType:  edgeType,
		label:     label,
		weight:    weight,
		metadata:  metadata,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the edge's unique identifier
func (e *Edge) ID() valueobjects.EdgeID { return e.id }

// SessionID returns the owning session's identifier
func (e *Edge) SessionID() valueobjects.SessionID { return e.sessionID }

// SourceID returns the source node's identifier
func (e *Edge) SourceID() valueobjects.NodeID { return e.sourceID }

// TargetID returns the target node's identifier
func (e *Edge) TargetID() valueobjects.NodeID { return e.targetID }

// Type returns the edge's relation type
func (e *Edge) Type() EdgeType { return e.edgeType }

// Label returns the edge's optional label
func (e *Edge) Label() string { return e.label }

// Weight returns the edge's numeric weight
func (e *Edge) Weight() float64 { return e.weight }

// CreatedAt returns when the edge was created
func (e *Edge) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns when the edge was last updated
func (e *Edge) UpdatedAt() time.Time { return e.updatedAt }

// IsDependency reports whether this edge participates in cycle checking
// and the completion gate
func (e *Edge) IsDependency() bool { return e.edgeType == EdgeTypeDependency }

// Metadata returns a copy of the free-form metadata map
func (e *Edge) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(e.metadata))
	for k, v := range e.metadata {
		out[k] = v
	}
	return out
}

// SetLabel changes the edge's label
func (e *Edge) SetLabel(label string) {
	e.label = label
	e.updatedAt = time.Now()
}

// SetWeight changes the edge's weight
func (e *Edge) SetWeight(weight float64) {
	e.weight = weight
	e.updatedAt = time.Now()
}

// MergeMetadata merges the given keys into the metadata map
func (e *Edge) MergeMetadata(metadata map[string]interface{}) {
	for k, v := range metadata {
		e.metadata[k] = v
	}
	e.updatedAt = time.Now()
}

// PairKey returns the ordered-pair key that the duplicate-edge invariant
// is enforced on
func (e *Edge) PairKey() string {
	return PairKey(e.sourceID, e.targetID)
}

// PairKey builds the ordered-pair uniqueness key for two node identifiers
func PairKey(source, target valueobjects.NodeID) string {
	return source.String() + "->" + target.String()
}
