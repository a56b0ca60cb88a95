package entities

import (
	"time"

	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

// SessionStatus represents the lifecycle state of a session
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusArchived  SessionStatus = "archived"
	SessionStatusCompleted SessionStatus = "completed"
)

// ValidSessionStatus reports whether s is a known session status
func ValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionStatusActive, SessionStatusArchived, SessionStatusCompleted:
		return true
	}
	return false
}

// Session is the isolation boundary for a planning graph. Every node, edge
// and blitz belongs to exactly one session, and all graph invariants are
// scoped to it.
type Session struct {
	id        valueobjects.SessionID
	ownerID   string
	name      string
	status    SessionStatus
	settings  map[string]interface{}
	createdAt time.Time
	updatedAt time.Time
}

// NewSession creates an active session owned by ownerID
func NewSession(ownerID, name string) (*Session, error) {
	if ownerID == "" {
		return nil, pkgerrors.NewValidationError("owner ID cannot be empty")
	}
	if name == "" {
		return nil, pkgerrors.NewValidationError("session name cannot be empty")
	}

	now := time.Now()
	return &Session{
		id:        valueobjects.NewSessionID(),
		ownerID:   ownerID,
		name:      name,
		status:    SessionStatusActive,
		settings:  make(map[string]interface{}),
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructSession rebuilds a session from stored data
func ReconstructSession(
	id valueobjects.SessionID,
	ownerID, name string,
	status SessionStatus,
	settings map[string]interface{},
	createdAt, updatedAt time.Time,
) *Session {
	if settings == nil {
		settings = make(map[string]interface{})
	}
	return &Session{
		id:        id,
		ownerID:   ownerID,
		name:      name,
		status:    status,
		settings:  settings,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the session's unique identifier
func (s *Session) ID() valueobjects.SessionID { return s.id }

// OwnerID returns the owning user's identifier
func (s *Session) OwnerID() string { return s.ownerID }

// Name returns the session's display name
func (s *Session) Name() string { return s.name }

// Status returns the session's lifecycle status
func (s *Session) Status() SessionStatus { return s.status }

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// UpdatedAt returns when the session was last updated
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }

// IsActive reports whether the session accepts mutations
func (s *Session) IsActive() bool { return s.status == SessionStatusActive }

// Settings returns a copy of the free-form settings map
func (s *Session) Settings() map[string]interface{} {
	out := make(map[string]interface{}, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out
}

// Rename changes the session's display name
func (s *Session) Rename(name string) error {
	if name == "" {
		return pkgerrors.NewValidationError("session name cannot be empty")
	}
	s.name = name
	s.updatedAt = time.Now()
	return nil
}

// UpdateSettings replaces the free-form settings map. Settings are opaque
// to the engine; no schema validation is applied.
func (s *Session) UpdateSettings(settings map[string]interface{}) {
	if settings == nil {
		settings = make(map[string]interface{})
	}
	s.settings = settings
	s.updatedAt = time.Now()
}

// Archive marks the session archived. Children are not cascade-deleted.
func (s *Session) Archive() {
	if s.status == SessionStatusArchived {
		return
	}
	s.status = SessionStatusArchived
	s.updatedAt = time.Now()
}

// Complete marks the session completed. Children are not cascade-deleted.
func (s *Session) Complete() {
	if s.status == SessionStatusCompleted {
		return
	}
	s.status = SessionStatusCompleted
	s.updatedAt = time.Now()
}

// Reactivate returns an archived or completed session to active
func (s *Session) Reactivate() {
	if s.status == SessionStatusActive {
		return
	}
	s.status = SessionStatusActive
	s.updatedAt = time.Now()
}
