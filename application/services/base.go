// Package services implements the engine's boundary operations. Each
// service is a thin orchestration over the domain graph package: load
// state, run the pure derivation, persist, emit the audit event.
package services

import (
	"context"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
	"flowboard/domain/graph"
	"flowboard/pkg/auth"
	"flowboard/pkg/common"
	pkgerrors "flowboard/pkg/errors"
)

// actorFrom resolves the acting user for audit attribution. Requests
// arriving outside the HTTP surface (Lambda triggers, tests) fall back
// to "system".
func actorFrom(ctx context.Context) string {
	if user, ok := auth.GetUserFromContext(ctx); ok {
		return user.UserID
	}
	if userID, ok := common.GetUserID(ctx); ok {
		return userID
	}
	return "system"
}

// auditEmitter fans successful mutations out to the activity log.
// Publishing is fire-and-forget: a failed publish is logged and never
// fails the mutation.
type auditEmitter struct {
	publisher ports.AuditPublisher
	logger    *zap.Logger
}

func (a auditEmitter) emit(ctx context.Context, event events.AuditEvent) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Publish(ctx, event); err != nil {
		a.logger.Warn("Audit publish failed",
			zap.String("event_type", event.GetEventType()),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}

// snapshotLoader builds consistent graph snapshots for derivations
type snapshotLoader struct {
	nodes ports.NodeRepository
	edges ports.EdgeRepository
}

func (l snapshotLoader) load(ctx context.Context, sessionID valueobjects.SessionID) (*graph.Snapshot, error) {
	nodes, err := l.nodes.ListBySession(ctx, sessionID, ports.NodeFilter{})
	if err != nil {
		return nil, err
	}
	edges, err := l.edges.ListBySession(ctx, sessionID, ports.EdgeFilter{})
	if err != nil {
		return nil, err
	}
	return graph.NewSnapshot(nodes, edges), nil
}

// requireSession fetches a session and verifies it accepts mutations
func requireSession(ctx context.Context, sessions ports.SessionRepository, sessionID valueobjects.SessionID, forWrite bool) (*entities.Session, error) {
	session, err := sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, pkgerrors.ErrSessionNotFound.WithDetail("session_id", sessionID.String())
	}
	if forWrite && session.Status() == entities.SessionStatusArchived {
		return nil, pkgerrors.ErrSessionArchived.WithDetail("session_id", sessionID.String())
	}
	return session, nil
}
