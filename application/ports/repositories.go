package ports

import (
	"context"

	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
)

// SessionRepository defines the interface for session persistence
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation
type SessionRepository interface {
	// Save persists a session (create or update)
	Save(ctx context.Context, session *entities.Session) error

	// GetByID retrieves a session by its ID
	GetByID(ctx context.Context, id valueobjects.SessionID) (*entities.Session, error)

	// GetByOwnerID retrieves all sessions owned by a user
	GetByOwnerID(ctx context.Context, ownerID string) ([]*entities.Session, error)

	// Delete removes a session and everything it contains
	Delete(ctx context.Context, id valueobjects.SessionID) error
}

// NodeFilter narrows node listings
type NodeFilter struct {
	Type   *entities.NodeType
	Status *entities.NodeStatus
}

// NodeRepository defines the interface for node persistence
type NodeRepository interface {
	// Save persists a node (create or update)
	Save(ctx context.Context, node *entities.Node) error

	// GetByID retrieves a node within a session
	GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.NodeID) (*entities.Node, error)

	// ListBySession retrieves all nodes in a session matching the filter
	ListBySession(ctx context.Context, sessionID valueobjects.SessionID, filter NodeFilter) ([]*entities.Node, error)

	// CountBySession returns the number of nodes in a session
	CountBySession(ctx context.Context, sessionID valueobjects.SessionID) (int, error)

	// Delete removes a node; all incident edges are removed as a consequence
	Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.NodeID) error
}

// EdgeFilter narrows edge listings
type EdgeFilter struct {
	Type *entities.EdgeType

	// IncidentNodeID restricts to edges touching this node as either endpoint
	IncidentNodeID string
}

// EdgeRepository defines the interface for edge persistence
type EdgeRepository interface {
	// Save persists an edge. Inserting a second edge for an existing
	// ordered (source, target) pair fails with ErrDuplicateEdge.
	Save(ctx context.Context, edge *entities.Edge) error

	// GetByID retrieves an edge within a session
	GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.EdgeID) (*entities.Edge, error)

	// ListBySession retrieves all edges in a session matching the filter
	ListBySession(ctx context.Context, sessionID valueobjects.SessionID, filter EdgeFilter) ([]*entities.Edge, error)

	// CountBySession returns the number of edges in a session
	CountBySession(ctx context.Context, sessionID valueobjects.SessionID) (int, error)

	// Delete removes an edge
	Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.EdgeID) error
}

// BlitzRepository defines the interface for blitz persistence
type BlitzRepository interface {
	// Save persists a blitz (create or update)
	Save(ctx context.Context, blitz *entities.Blitz) error

	// GetByID retrieves a blitz within a session
	GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.BlitzID) (*entities.Blitz, error)

	// ListBySession retrieves all blitzes in a session
	ListBySession(ctx context.Context, sessionID valueobjects.SessionID) ([]*entities.Blitz, error)

	// GetActive returns the session's active blitz, or nil when none is
	GetActive(ctx context.Context, sessionID valueobjects.SessionID) (*entities.Blitz, error)

	// Delete removes a blitz; member node references are dropped with it
	Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.BlitzID) error
}

// SessionLocker serializes check-then-act mutations per session. Dependency
// edge admission, blitz activation and the completion gate all read graph
// state and write based on it, so each runs inside the session's exclusive
// section.
type SessionLocker interface {
	// WithSessionLock runs fn while holding the session's exclusive lock.
	// It returns ErrSessionLockTimeout if the lock cannot be acquired in
	// bounded time, and fn's error otherwise.
	WithSessionLock(ctx context.Context, sessionID valueobjects.SessionID, fn func(ctx context.Context) error) error
}

// AuditPublisher delivers audit events to the external activity log.
// Delivery is fire-and-forget: services log publish failures and never
// roll back the mutation the event describes.
type AuditPublisher interface {
	// Publish sends a single audit event
	Publish(ctx context.Context, event events.AuditEvent) error

	// PublishBatch sends multiple audit events
	PublishBatch(ctx context.Context, batch []events.AuditEvent) error
}
