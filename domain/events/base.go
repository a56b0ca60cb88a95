package events

import (
	"time"

	"flowboard/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetSessionID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// Action identifies what happened to the audit target
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionMove         Action = "move"
	ActionConnect      Action = "connect"
	ActionDisconnect   Action = "disconnect"
	ActionStatusChange Action = "status_change"
	ActionBlitzStart   Action = "blitz_start"
	ActionBlitzEnd     Action = "blitz_end"
)

// TargetType identifies what kind of entity the audit target is
type TargetType string

const (
	TargetSession TargetType = "session"
	TargetNode    TargetType = "node"
	TargetEdge    TargetType = "edge"
	TargetBlitz   TargetType = "blitz"
)

// AuditEvent records one successful mutation for the external audit sink.
// Emission is fire-and-forget; a failed publish never rolls back the
// mutation it describes.
type AuditEvent struct {
	SessionID  string                 `json:"session_id"`
	Actor      string                 `json:"actor"`
	Action     Action                 `json:"action"`
	TargetType TargetType             `json:"target_type"`
	TargetID   string                 `json:"target_id"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// GetSessionID returns the session the event belongs to
func (e AuditEvent) GetSessionID() string { return e.SessionID }

// GetEventType returns the event type string for routing
func (e AuditEvent) GetEventType() string {
	return string(e.TargetType) + "." + string(e.Action)
}

// GetTimestamp returns when the mutation happened
func (e AuditEvent) GetTimestamp() time.Time { return e.Timestamp }

func newAuditEvent(sessionID valueobjects.SessionID, actor string, action Action, targetType TargetType, targetID string, details map[string]interface{}) AuditEvent {
	return AuditEvent{
		SessionID:  sessionID.String(),
		Actor:      actor,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Details:    details,
		Timestamp:  time.Now(),
	}
}

// NewNodeCreated records a node creation
func NewNodeCreated(sessionID valueobjects.SessionID, actor string, nodeID valueobjects.NodeID, label string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionCreate, TargetNode, nodeID.String(),
		map[string]interface{}{"label": label})
}

// NewNodeUpdated records a node attribute update
func NewNodeUpdated(sessionID valueobjects.SessionID, actor string, nodeID valueobjects.NodeID, changed []string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionUpdate, TargetNode, nodeID.String(),
		map[string]interface{}{"changed": changed})
}

// NewNodeMoved records a node position change
func NewNodeMoved(sessionID valueobjects.SessionID, actor string, nodeID valueobjects.NodeID, pos valueobjects.Position) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionMove, TargetNode, nodeID.String(),
		map[string]interface{}{"x": pos.X, "y": pos.Y})
}

// NewNodeStatusChanged records a node status transition
func NewNodeStatusChanged(sessionID valueobjects.SessionID, actor string, nodeID valueobjects.NodeID, from, to string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionStatusChange, TargetNode, nodeID.String(),
		map[string]interface{}{"from": from, "to": to})
}

// NewNodeDeleted records a node deletion, including how many edges were
// re-parented around it
func NewNodeDeleted(sessionID valueobjects.SessionID, actor string, nodeID valueobjects.NodeID, reparented int) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionDelete, TargetNode, nodeID.String(),
		map[string]interface{}{"reparented_count": reparented})
}

// NewEdgeConnected records an edge creation
func NewEdgeConnected(sessionID valueobjects.SessionID, actor string, edgeID valueobjects.EdgeID, sourceID, targetID valueobjects.NodeID, edgeType string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionConnect, TargetEdge, edgeID.String(),
		map[string]interface{}{
			"source_id": sourceID.String(),
			"target_id": targetID.String(),
			"edge_type": edgeType,
		})
}

// NewEdgeDisconnected records an edge deletion
func NewEdgeDisconnected(sessionID valueobjects.SessionID, actor string, edgeID valueobjects.EdgeID, sourceID, targetID valueobjects.NodeID) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionDisconnect, TargetEdge, edgeID.String(),
		map[string]interface{}{
			"source_id": sourceID.String(),
			"target_id": targetID.String(),
		})
}

// NewBlitzStarted records a blitz activation
func NewBlitzStarted(sessionID valueobjects.SessionID, actor string, blitzID valueobjects.BlitzID, title string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionBlitzStart, TargetBlitz, blitzID.String(),
		map[string]interface{}{"title": title})
}

// NewBlitzEnded records a blitz reaching a terminal state. Deleting an
// active blitz is audited as an implicit abandoned outcome.
func NewBlitzEnded(sessionID valueobjects.SessionID, actor string, blitzID valueobjects.BlitzID, outcome string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionBlitzEnd, TargetBlitz, blitzID.String(),
		map[string]interface{}{"outcome": outcome})
}

// NewSessionCreated records a session creation
func NewSessionCreated(sessionID valueobjects.SessionID, actor, name string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionCreate, TargetSession, sessionID.String(),
		map[string]interface{}{"name": name})
}

// NewSessionUpdated records a session lifecycle or settings change
func NewSessionUpdated(sessionID valueobjects.SessionID, actor string, changed []string) AuditEvent {
	return newAuditEvent(sessionID, actor, ActionUpdate, TargetSession, sessionID.String(),
		map[string]interface{}{"changed": changed})
}
