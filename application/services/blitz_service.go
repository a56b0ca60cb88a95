package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
	pkgerrors "flowboard/pkg/errors"
)

// BlitzService manages focus sprints. Activation is a check-then-act
// sequence over the session's blitzes (is any other active?), so it runs
// inside the session's exclusive section; the store's single-active
// uniqueness is the backstop.
type BlitzService struct {
	sessions ports.SessionRepository
	nodes    ports.NodeRepository
	blitzes  ports.BlitzRepository
	locker   ports.SessionLocker
	audit    auditEmitter
	logger   *zap.Logger
}

// NewBlitzService creates a blitz service
func NewBlitzService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	blitzes ports.BlitzRepository,
	locker ports.SessionLocker,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *BlitzService {
	return &BlitzService{
		sessions: sessions,
		nodes:    nodes,
		blitzes:  blitzes,
		locker:   locker,
		audit:    auditEmitter{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// Create adds a planned blitz over the given member nodes
func (s *BlitzService) Create(ctx context.Context, sessionID valueobjects.SessionID, title string, memberNodeIDs []valueobjects.NodeID, timeLimit *time.Duration) (*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	for _, nodeID := range memberNodeIDs {
		node, err := s.nodes.GetByID(ctx, sessionID, nodeID)
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
		}
	}

	blitz, err := entities.NewBlitz(sessionID, title, memberNodeIDs)
	if err != nil {
		return nil, err
	}
	if timeLimit != nil {
		blitz.SetTimeLimit(timeLimit)
	}

	if err := s.blitzes.Save(ctx, blitz); err != nil {
		return nil, err
	}

	s.logger.Info("Blitz created",
		zap.String("session_id", sessionID.String()),
		zap.String("blitz_id", blitz.ID().String()),
		zap.Int("members", len(memberNodeIDs)),
	)
	return blitz, nil
}

// Get fetches a blitz within a session
func (s *BlitzService) Get(ctx context.Context, sessionID valueobjects.SessionID, blitzID valueobjects.BlitzID) (*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}
	blitz, err := s.blitzes.GetByID(ctx, sessionID, blitzID)
	if err != nil {
		return nil, err
	}
	if blitz == nil {
		return nil, pkgerrors.ErrBlitzNotFound.WithDetail("blitz_id", blitzID.String())
	}
	return blitz, nil
}

// List returns the session's blitzes
func (s *BlitzService) List(ctx context.Context, sessionID valueobjects.SessionID) ([]*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}
	return s.blitzes.ListBySession(ctx, sessionID)
}

// Activate transitions a blitz into active, stamping its start time. It
// fails with BlitzAlreadyActive naming the current holder if another blitz
// in the session already holds the active slot.
func (s *BlitzService) Activate(ctx context.Context, sessionID valueobjects.SessionID, blitzID valueobjects.BlitzID) (*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	var blitz *entities.Blitz
	err := s.locker.WithSessionLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		blitz, err = s.Get(ctx, sessionID, blitzID)
		if err != nil {
			return err
		}
		if blitz.IsActive() {
			return nil
		}

		active, err := s.blitzes.GetActive(ctx, sessionID)
		if err != nil {
			return err
		}
		if active != nil {
			return pkgerrors.ErrBlitzAlreadyActive.
				WithDetail("active_blitz_id", active.ID().String()).
				WithDetail("active_blitz_title", active.Title())
		}

		if err := blitz.Activate(); err != nil {
			return err
		}
		if err := s.blitzes.Save(ctx, blitz); err != nil {
			return err
		}

		s.audit.emit(ctx, events.NewBlitzStarted(sessionID, actorFrom(ctx), blitz.ID(), blitz.Title()))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blitz, nil
}

// Finish moves an active blitz into its terminal state. This is the only
// path by which a blitz leaves active, apart from deletion.
func (s *BlitzService) Finish(ctx context.Context, sessionID valueobjects.SessionID, blitzID valueobjects.BlitzID, outcome entities.BlitzOutcome, results map[string]interface{}) (*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	blitz, err := s.Get(ctx, sessionID, blitzID)
	if err != nil {
		return nil, err
	}
	if err := blitz.Finish(outcome, results); err != nil {
		return nil, err
	}
	if err := s.blitzes.Save(ctx, blitz); err != nil {
		return nil, err
	}

	s.audit.emit(ctx, events.NewBlitzEnded(sessionID, actorFrom(ctx), blitz.ID(), string(outcome)))
	return blitz, nil
}

// Delete removes a blitz. Deleting an active blitz is audited as an
// implicit abandoned outcome, but no data repair is performed: member
// node references are dropped with the blitz.
func (s *BlitzService) Delete(ctx context.Context, sessionID valueobjects.SessionID, blitzID valueobjects.BlitzID) error {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return err
	}

	blitz, err := s.Get(ctx, sessionID, blitzID)
	if err != nil {
		return err
	}
	wasActive := blitz.IsActive()

	if err := s.blitzes.Delete(ctx, sessionID, blitzID); err != nil {
		return err
	}

	if wasActive {
		s.audit.emit(ctx, events.NewBlitzEnded(sessionID, actorFrom(ctx), blitzID, string(entities.BlitzOutcomeAbandoned)))
	}
	return nil
}

// AddMember adds a node to a blitz's member set
func (s *BlitzService) AddMember(ctx context.Context, sessionID valueobjects.SessionID, blitzID valueobjects.BlitzID, nodeID valueobjects.NodeID) (*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	node, err := s.nodes.GetByID(ctx, sessionID, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}

	blitz, err := s.Get(ctx, sessionID, blitzID)
	if err != nil {
		return nil, err
	}
	blitz.AddMember(nodeID)
	if err := s.blitzes.Save(ctx, blitz); err != nil {
		return nil, err
	}
	return blitz, nil
}

// RemoveMember removes a node from a blitz's member set
func (s *BlitzService) RemoveMember(ctx context.Context, sessionID valueobjects.SessionID, blitzID valueobjects.BlitzID, nodeID valueobjects.NodeID) (*entities.Blitz, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	blitz, err := s.Get(ctx, sessionID, blitzID)
	if err != nil {
		return nil, err
	}
	blitz.RemoveMember(nodeID)
	if err := s.blitzes.Save(ctx, blitz); err != nil {
		return nil, err
	}
	return blitz, nil
}
