package services

import (
	"context"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
	pkgerrors "flowboard/pkg/errors"
)

// SessionService manages workspace lifecycle
type SessionService struct {
	sessions ports.SessionRepository
	audit    auditEmitter
	logger   *zap.Logger
}

// NewSessionService creates a session service
func NewSessionService(sessions ports.SessionRepository, publisher ports.AuditPublisher, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		audit:    auditEmitter{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// Create creates an active session for the owner
func (s *SessionService) Create(ctx context.Context, ownerID, name string, settings map[string]interface{}) (*entities.Session, error) {
	session, err := entities.NewSession(ownerID, name)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		session.UpdateSettings(settings)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Session created",
		zap.String("session_id", session.ID().String()),
		zap.String("owner_id", ownerID),
	)
	s.audit.emit(ctx, events.NewSessionCreated(session.ID(), actorFrom(ctx), name))

	return session, nil
}

// Get fetches a session by ID
func (s *SessionService) Get(ctx context.Context, sessionID valueobjects.SessionID) (*entities.Session, error) {
	return requireSession(ctx, s.sessions, sessionID, false)
}

// List returns all sessions owned by a user
func (s *SessionService) List(ctx context.Context, ownerID string) ([]*entities.Session, error) {
	return s.sessions.GetByOwnerID(ctx, ownerID)
}

// SessionUpdateInput carries optional session changes; nil fields are untouched
type SessionUpdateInput struct {
	Name     *string
	Status   *entities.SessionStatus
	Settings map[string]interface{}
}

// Update applies a partial update to a session
func (s *SessionService) Update(ctx context.Context, sessionID valueobjects.SessionID, input SessionUpdateInput) (*entities.Session, error) {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var changed []string

	if input.Name != nil {
		if err := session.Rename(*input.Name); err != nil {
			return nil, err
		}
		changed = append(changed, "name")
	}
	if input.Settings != nil {
		session.UpdateSettings(input.Settings)
		changed = append(changed, "settings")
	}
	if input.Status != nil {
		if !entities.ValidSessionStatus(*input.Status) {
			return nil, pkgerrors.NewValidationError("session status must be active, archived or completed")
		}
		switch *input.Status {
		case entities.SessionStatusArchived:
			session.Archive()
		case entities.SessionStatusCompleted:
			session.Complete()
		case entities.SessionStatusActive:
			session.Reactivate()
		}
		changed = append(changed, "status")
	}

	if len(changed) == 0 {
		return session, nil
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.audit.emit(ctx, events.NewSessionUpdated(session.ID(), actorFrom(ctx), changed))
	return session, nil
}

// Delete removes a session and everything it contains
func (s *SessionService) Delete(ctx context.Context, sessionID valueobjects.SessionID) error {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.logger.Info("Session deleted", zap.String("session_id", sessionID.String()))
	return nil
}
