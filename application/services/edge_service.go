package services

import (
	"context"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/config"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/validators"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
	"flowboard/domain/graph"
	pkgerrors "flowboard/pkg/errors"
)

// EdgeService manages typed relations between nodes. Dependency edge
// admission is a check-then-act sequence (reachability check, then
// insert), so creation runs inside the session's exclusive section: two
// concurrent insertions that are each acyclic but jointly cyclic must
// not both succeed.
type EdgeService struct {
	sessions       ports.SessionRepository
	nodes          ports.NodeRepository
	edges          ports.EdgeRepository
	locker         ports.SessionLocker
	guard          *graph.CycleGuard
	validator      *validators.EdgeValidator
	graphValidator *validators.GraphValidator
	loader         snapshotLoader
	audit          auditEmitter
	logger         *zap.Logger
}

// NewEdgeService creates an edge service
func NewEdgeService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	locker ports.SessionLocker,
	cfg *config.DomainConfig,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *EdgeService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &EdgeService{
		sessions:       sessions,
		nodes:          nodes,
		edges:          edges,
		locker:         locker,
		guard:          graph.NewCycleGuard(cfg),
		validator:      validators.NewEdgeValidator(),
		graphValidator: validators.NewGraphValidator(cfg),
		loader:         snapshotLoader{nodes: nodes, edges: edges},
		audit:          auditEmitter{publisher: publisher, logger: logger},
		logger:         logger,
	}
}

// CreateEdgeInput carries optional attributes of a new edge
type CreateEdgeInput struct {
	Label    string
	Weight   *float64
	Metadata map[string]interface{}
}

// Create connects two nodes of the same session with a typed edge
func (s *EdgeService) Create(ctx context.Context, sessionID valueobjects.SessionID, sourceID, targetID valueobjects.NodeID, edgeType entities.EdgeType, input CreateEdgeInput) (*entities.Edge, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateEndpoints(sourceID.String(), targetID.String()); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateType(edgeType); err != nil {
		return nil, err
	}
	if input.Weight != nil {
		if err := s.validator.ValidateWeight(*input.Weight); err != nil {
			return nil, err
		}
	}

	var edge *entities.Edge
	err := s.locker.WithSessionLock(ctx, sessionID, func(ctx context.Context) error {
		snap, err := s.loader.load(ctx, sessionID)
		if err != nil {
			return err
		}

		src := sourceID.String()
		tgt := targetID.String()
		if !snap.HasNode(src) {
			return pkgerrors.ErrNodeNotFound.WithDetail("node_id", src)
		}
		if !snap.HasNode(tgt) {
			return pkgerrors.ErrNodeNotFound.WithDetail("node_id", tgt)
		}
		if err := s.graphValidator.ValidateEdgeCount(snap.EdgeCount()); err != nil {
			return err
		}

		// One edge per ordered pair, regardless of type
		if existing := snap.EdgeByPair(src, tgt); existing != nil {
			return pkgerrors.ErrDuplicateEdge.
				WithDetail("edge_id", existing.ID().String()).
				WithDetail("edge_type", string(existing.Type()))
		}

		if edgeType == entities.EdgeTypeDependency && s.guard.WouldCreateCycle(snap, src, tgt) {
			return pkgerrors.ErrCycleDetected.
				WithDetail("source_id", src).
				WithDetail("target_id", tgt)
		}

		edge, err = entities.NewEdge(sessionID, sourceID, targetID, edgeType)
		if err != nil {
			return err
		}
		if input.Label != "" {
			edge.SetLabel(input.Label)
		}
		if input.Weight != nil {
			edge.SetWeight(*input.Weight)
		}
		if input.Metadata != nil {
			edge.MergeMetadata(input.Metadata)
		}

		// The store's pair uniqueness is the backstop for writers that
		// bypass the lock
		if err := s.edges.Save(ctx, edge); err != nil {
			return err
		}

		s.logger.Info("Edge created",
			zap.String("session_id", sessionID.String()),
			zap.String("edge_id", edge.ID().String()),
			zap.String("source", src),
			zap.String("target", tgt),
			zap.String("type", string(edgeType)),
		)
		s.audit.emit(ctx, events.NewEdgeConnected(sessionID, actorFrom(ctx), edge.ID(), sourceID, targetID, string(edgeType)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edge, nil
}

// Get fetches an edge within a session
func (s *EdgeService) Get(ctx context.Context, sessionID valueobjects.SessionID, edgeID valueobjects.EdgeID) (*entities.Edge, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}
	edge, err := s.edges.GetByID(ctx, sessionID, edgeID)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return nil, pkgerrors.ErrEdgeNotFound.WithDetail("edge_id", edgeID.String())
	}
	return edge, nil
}

// List returns the session's edges matching the filter
func (s *EdgeService) List(ctx context.Context, sessionID valueobjects.SessionID, filter ports.EdgeFilter) ([]*entities.Edge, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}
	if filter.Type != nil && !entities.ValidEdgeType(*filter.Type) {
		return nil, pkgerrors.ErrInvalidEdgeType.WithDetail("type", string(*filter.Type))
	}
	return s.edges.ListBySession(ctx, sessionID, filter)
}

// Delete removes an edge
func (s *EdgeService) Delete(ctx context.Context, sessionID valueobjects.SessionID, edgeID valueobjects.EdgeID) error {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return err
	}
	edge, err := s.Get(ctx, sessionID, edgeID)
	if err != nil {
		return err
	}
	if err := s.edges.Delete(ctx, sessionID, edgeID); err != nil {
		return err
	}

	s.audit.emit(ctx, events.NewEdgeDisconnected(sessionID, actorFrom(ctx), edge.ID(), edge.SourceID(), edge.TargetID()))
	return nil
}
