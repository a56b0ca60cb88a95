package entities

import (
	"time"

	"flowboard/domain/config"
	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

// NodeType classifies a work item
type NodeType string

const (
	NodeTypeGoal      NodeType = "goal"
	NodeTypeMilestone NodeType = "milestone"
	NodeTypeTask      NodeType = "task"
	NodeTypeIdea      NodeType = "idea"
	NodeTypeNote      NodeType = "note"
	NodeTypeResource  NodeType = "resource"
)

// ValidNodeType reports whether t is a known node type
func ValidNodeType(t NodeType) bool {
	switch t {
	case NodeTypeGoal, NodeTypeMilestone, NodeTypeTask, NodeTypeIdea, NodeTypeNote, NodeTypeResource:
		return true
	}
	return false
}

// NodeStatus represents the state of a work item
type NodeStatus string

const (
	StatusPending    NodeStatus = "pending"
	StatusInProgress NodeStatus = "in_progress"
	StatusCompleted  NodeStatus = "completed"
	StatusBlocked    NodeStatus = "blocked"
	StatusCancelled  NodeStatus = "cancelled"
)

// ValidNodeStatus reports whether s is a known node status
func ValidNodeStatus(s NodeStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked, StatusCancelled:
		return true
	}
	return false
}

// Node is a work item placed on a session's graph. It is a rich domain
// model: the completion timestamp invariant (set iff status is completed)
// lives here, while the dependency gate on entering completed is enforced
// by the lifecycle service, which can see the rest of the graph.
type Node struct {
	id          valueobjects.NodeID
	sessionID   valueobjects.SessionID
	nodeType    NodeType
	label       string
	description string
	status      NodeStatus
	priority    int
	position    valueobjects.Position
	metadata    map[string]interface{}
	dueDate     *time.Time
	completedAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
	version     int
}

// NewNode creates a pending node with full business rule validation
func NewNode(sessionID valueobjects.SessionID, nodeType NodeType, label string) (*Node, error) {
	return NewNodeWithConfig(sessionID, nodeType, label, config.DefaultDomainConfig())
}

// NewNodeWithConfig creates a pending node using the given domain limits
func NewNodeWithConfig(sessionID valueobjects.SessionID, nodeType NodeType, label string, cfg *config.DomainConfig) (*Node, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if sessionID.IsZero() {
		return nil, pkgerrors.NewValidationError("session ID cannot be empty")
	}
	if !ValidNodeType(nodeType) {
		return nil, pkgerrors.ErrInvalidNodeType.WithDetail("type", string(nodeType))
	}
	if label == "" {
		return nil, pkgerrors.ErrNodeLabelRequired
	}
	if len(label) > cfg.MaxLabelLength {
		return nil, pkgerrors.NewValidationError("node label exceeds maximum length")
	}

	now := time.Now()
	return &Node{
		id:        valueobjects.NewNodeID(),
		sessionID: sessionID,
		nodeType:  nodeType,
		label:     label,
		status:    StatusPending,
		metadata:  make(map[string]interface{}),
		createdAt: now,
		updatedAt: now,
		version:   1,
	}, nil
}

// ReconstructNode rebuilds a node from stored data with preserved timestamps
func ReconstructNode(
	id valueobjects.NodeID,
	sessionID valueobjects.SessionID,
	nodeType NodeType,
	label, description string,
	status NodeStatus,
	priority int,
	position valueobjects.Position,
	metadata map[string]interface{},
	dueDate, completedAt *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) *Node {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &Node{
		id:          id,
		sessionID:   sessionID,
		nodeType:    nodeType,
		label:       label,
		description: description,
		status:      status,
		priority:    priority,
		position:    position,
		metadata:    metadata,
		dueDate:     dueDate,
		completedAt: completedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		version:     version,
	}
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID { return n.id }

// SessionID returns the owning session's identifier
func (n *Node) SessionID() valueobjects.SessionID { return n.sessionID }

// Type returns the node's work item type
func (n *Node) Type() NodeType { return n.nodeType }

// Label returns the node's label
func (n *Node) Label() string { return n.label }

// Description returns the node's description
func (n *Node) Description() string { return n.description }

// Status returns the node's current status
func (n *Node) Status() NodeStatus { return n.status }

// Priority returns the node's raw priority
func (n *Node) Priority() int { return n.priority }

// Position returns the node's canvas position
func (n *Node) Position() valueobjects.Position { return n.position }

// DueDate returns the node's due date, if set
func (n *Node) DueDate() *time.Time { return n.dueDate }

// CompletedAt returns when the node entered completed, nil otherwise
func (n *Node) CompletedAt() *time.Time { return n.completedAt }

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time { return n.createdAt }

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time { return n.updatedAt }

// Version returns the node's version for optimistic locking
func (n *Node) Version() int { return n.version }

// IsCompleted reports whether the node's status is completed
func (n *Node) IsCompleted() bool { return n.status == StatusCompleted }

// Metadata returns a copy of the free-form metadata map
func (n *Node) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(n.metadata))
	for k, v := range n.metadata {
		out[k] = v
	}
	return out
}

// UpdateLabel changes the node's label with validation
func (n *Node) UpdateLabel(label string) error {
	if label == "" {
		return pkgerrors.ErrNodeLabelRequired
	}
	if label == n.label {
		return nil
	}
	n.label = label
	n.touch()
	return nil
}

// UpdateDescription changes the node's description
func (n *Node) UpdateDescription(description string) {
	if description == n.description {
		return
	}
	n.description = description
	n.touch()
}

// SetPriority changes the node's raw priority. Priority is an unbounded
// integer; the score derivation gives it meaning.
func (n *Node) SetPriority(priority int) {
	if priority == n.priority {
		return
	}
	n.priority = priority
	n.touch()
}

// MoveTo moves the node to a new canvas position
func (n *Node) MoveTo(position valueobjects.Position) bool {
	if position.Equals(n.position) {
		return false
	}
	n.position = position
	n.touch()
	return true
}

// SetDueDate sets or clears the node's due date
func (n *Node) SetDueDate(due *time.Time) {
	n.dueDate = due
	n.touch()
}

// MergeMetadata merges the given keys into the metadata map. Metadata is
// opaque to the engine; contents are never interpreted.
func (n *Node) MergeMetadata(metadata map[string]interface{}) {
	for k, v := range metadata {
		n.metadata[k] = v
	}
	n.touch()
}

// SetStatus applies a status transition. Entering completed stamps the
// completion timestamp; leaving completed clears it. The dependency gate
// on entering completed is the lifecycle service's responsibility.
func (n *Node) SetStatus(status NodeStatus) error {
	if !ValidNodeStatus(status) {
		return pkgerrors.ErrInvalidNodeStatus.WithDetail("status", string(status))
	}
	if status == n.status {
		return nil
	}

	if status == StatusCompleted {
		now := time.Now()
		n.completedAt = &now
	} else if n.status == StatusCompleted {
		n.completedAt = nil
	}

	n.status = status
	n.touch()
	return nil
}

func (n *Node) touch() {
	n.updatedAt = time.Now()
	n.version++
}
