package entities

import (
	"time"

	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

// BlitzStatus represents the lifecycle state of a blitz
type BlitzStatus string

const (
	BlitzStatusPlanned   BlitzStatus = "planned"
	BlitzStatusActive    BlitzStatus = "active"
	BlitzStatusCompleted BlitzStatus = "completed"
	BlitzStatusAbandoned BlitzStatus = "abandoned"
)

// BlitzOutcome is the terminal state a finished blitz lands in
type BlitzOutcome string

const (
	BlitzOutcomeCompleted BlitzOutcome = "completed"
	BlitzOutcomeAbandoned BlitzOutcome = "abandoned"
)

// Blitz is a time-boxed focus sprint over a subset of a session's nodes.
// At most one blitz may be active per session; that invariant needs
// session-wide visibility and is enforced by the blitz service.
type Blitz struct {
	id            valueobjects.BlitzID
	sessionID     valueobjects.SessionID
	title         string
	status        BlitzStatus
	memberNodeIDs []valueobjects.NodeID
	startedAt     *time.Time
	completedAt   *time.Time
	timeLimit     *time.Duration
	results       map[string]interface{}
	createdAt     time.Time
	updatedAt     time.Time
}

// NewBlitz creates a planned blitz over the given member nodes
func NewBlitz(sessionID valueobjects.SessionID, title string, memberNodeIDs []valueobjects.NodeID) (*Blitz, error) {
	if sessionID.IsZero() {
		return nil, pkgerrors.NewValidationError("session ID cannot be empty")
	}
	if title == "" {
		return nil, pkgerrors.NewValidationError("blitz title cannot be empty")
	}

	now := time.Now()
	return &Blitz{
		id:            valueobjects.NewBlitzID(),
		sessionID:     sessionID,
		title:         title,
		status:        BlitzStatusPlanned,
		memberNodeIDs: append([]valueobjects.NodeID(nil), memberNodeIDs...),
		results:       make(map[string]interface{}),
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBlitz rebuilds a blitz from stored data
func ReconstructBlitz(
	id valueobjects.BlitzID,
	sessionID valueobjects.SessionID,
	title string,
	status BlitzStatus,
	memberNodeIDs []valueobjects.NodeID,
	startedAt, completedAt *time.Time,
	timeLimit *time.Duration,
	results map[string]interface{},
	createdAt, updatedAt time.Time,
) *Blitz {
	if results == nil {
		results = make(map[string]interface{})
	}
	return &Blitz{
		id:            id,
		sessionID:     sessionID,
		title:         title,
		status:        status,
		memberNodeIDs: memberNodeIDs,
		startedAt:     startedAt,
		completedAt:   completedAt,
		timeLimit:     timeLimit,
		results:       results,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// ID returns the blitz's unique identifier
func (b *Blitz) ID() valueobjects.BlitzID { return b.id }

// SessionID returns the owning session's identifier
func (b *Blitz) SessionID() valueobjects.SessionID { return b.sessionID }

// Title returns the blitz's title
func (b *Blitz) Title() string { return b.title }

// Status returns the blitz's lifecycle status
func (b *Blitz) Status() BlitzStatus { return b.status }

// StartedAt returns when the blitz was activated, nil if never active
func (b *Blitz) StartedAt() *time.Time { return b.startedAt }

// CompletedAt returns when the blitz finished, nil while not terminal
func (b *Blitz) CompletedAt() *time.Time { return b.completedAt }

// TimeLimit returns the optional time box
func (b *Blitz) TimeLimit() *time.Duration { return b.timeLimit }

// CreatedAt returns when the blitz was created
func (b *Blitz) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns when the blitz was last updated
func (b *Blitz) UpdatedAt() time.Time { return b.updatedAt }

// IsActive reports whether the blitz currently holds the session's
// single active slot
func (b *Blitz) IsActive() bool { return b.status == BlitzStatusActive }

// MemberNodeIDs returns a copy of the member node identifiers
func (b *Blitz) MemberNodeIDs() []valueobjects.NodeID {
	return append([]valueobjects.NodeID(nil), b.memberNodeIDs...)
}

// ContainsNode reports whether the node is a member of this blitz
func (b *Blitz) ContainsNode(nodeID valueobjects.NodeID) bool {
	for _, id := range b.memberNodeIDs {
		if id.Equals(nodeID) {
			return true
		}
	}
	return false
}

// AddMember adds a node to the blitz, ignoring duplicates
func (b *Blitz) AddMember(nodeID valueobjects.NodeID) {
	if b.ContainsNode(nodeID) {
		return
	}
	b.memberNodeIDs = append(b.memberNodeIDs, nodeID)
	b.updatedAt = time.Now()
}

// RemoveMember removes a node from the blitz if present
func (b *Blitz) RemoveMember(nodeID valueobjects.NodeID) {
	kept := b.memberNodeIDs[:0]
	for _, id := range b.memberNodeIDs {
		if !id.Equals(nodeID) {
			kept = append(kept, id)
		}
	}
	b.memberNodeIDs = kept
	b.updatedAt = time.Now()
}

// Results returns a copy of the free-form results map
func (b *Blitz) Results() map[string]interface{} {
	out := make(map[string]interface{}, len(b.results))
	for k, v := range b.results {
		out[k] = v
	}
	return out
}

// SetTimeLimit sets or clears the blitz's time box
func (b *Blitz) SetTimeLimit(limit *time.Duration) {
	b.timeLimit = limit
	b.updatedAt = time.Now()
}

// Activate transitions the blitz into active, stamping the start time.
// The single-active-blitz check against sibling blitzes happens in the
// blitz service before this is called.
func (b *Blitz) Activate() error {
	if b.status == BlitzStatusActive {
		return nil
	}
	if b.status != BlitzStatusPlanned {
		return pkgerrors.NewValidationError("only a planned blitz can be activated")
	}

	now := time.Now()
	b.status = BlitzStatusActive
	b.startedAt = &now
	b.updatedAt = now
	return nil
}

// Finish moves an active blitz into its terminal state, stamping the
// completion time and recording the results
func (b *Blitz) Finish(outcome BlitzOutcome, results map[string]interface{}) error {
	if outcome != BlitzOutcomeCompleted && outcome != BlitzOutcomeAbandoned {
		return pkgerrors.ErrInvalidBlitzOutcome.WithDetail("outcome", string(outcome))
	}
	if b.status != BlitzStatusActive {
		return pkgerrors.ErrBlitzNotActive.WithDetail("status", string(b.status))
	}

	now := time.Now()
	b.status = BlitzStatus(outcome)
	b.completedAt = &now
	for k, v := range results {
		b.results[k] = v
	}
	b.updatedAt = now
	return nil
}
