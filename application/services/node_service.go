package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/config"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/validators"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
	pkgerrors "flowboard/pkg/errors"
)

// NodeService manages work item CRUD. Status transitions and deletion go
// through the LifecycleService, which owns the gate and the re-parenting
// protocol.
type NodeService struct {
	sessions       ports.SessionRepository
	nodes          ports.NodeRepository
	validator      *validators.NodeValidator
	graphValidator *validators.GraphValidator
	cfg            *config.DomainConfig
	audit          auditEmitter
	logger         *zap.Logger
}

// NewNodeService creates a node service
func NewNodeService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	cfg *config.DomainConfig,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *NodeService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &NodeService{
		sessions:       sessions,
		nodes:          nodes,
		validator:      validators.NewNodeValidator(cfg),
		graphValidator: validators.NewGraphValidator(cfg),
		cfg:            cfg,
		audit:          auditEmitter{publisher: publisher, logger: logger},
		logger:         logger,
	}
}

// CreateNodeInput carries the attributes of a new node
type CreateNodeInput struct {
	Type        entities.NodeType
	Label       string
	Description string
	Priority    int
	Position    valueobjects.Position
	Metadata    map[string]interface{}
	DueDate     *time.Time
}

// Create adds a node to a session
func (s *NodeService) Create(ctx context.Context, sessionID valueobjects.SessionID, input CreateNodeInput) (*entities.Node, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateLabel(input.Label); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateDescription(input.Description); err != nil {
		return nil, err
	}
	if err := s.validator.ValidatePosition(input.Position.X, input.Position.Y); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateMetadata(input.Metadata); err != nil {
		return nil, err
	}

	count, err := s.nodes.CountBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.graphValidator.ValidateNodeCount(count); err != nil {
		return nil, err
	}

	node, err := entities.NewNodeWithConfig(sessionID, input.Type, input.Label, s.cfg)
	if err != nil {
		return nil, err
	}
	node.UpdateDescription(input.Description)
	node.SetPriority(input.Priority)
	node.MoveTo(input.Position)
	if input.Metadata != nil {
		node.MergeMetadata(input.Metadata)
	}
	if input.DueDate != nil {
		node.SetDueDate(input.DueDate)
	}

	if err := s.nodes.Save(ctx, node); err != nil {
		return nil, err
	}

	s.logger.Info("Node created",
		zap.String("session_id", sessionID.String()),
		zap.String("node_id", node.ID().String()),
		zap.String("type", string(node.Type())),
	)
	s.audit.emit(ctx, events.NewNodeCreated(sessionID, actorFrom(ctx), node.ID(), node.Label()))

	return node, nil
}

// Get fetches a node within a session
func (s *NodeService) Get(ctx context.Context, sessionID valueobjects.SessionID, nodeID valueobjects.NodeID) (*entities.Node, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}
	node, err := s.nodes.GetByID(ctx, sessionID, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}
	return node, nil
}

// List returns the session's nodes matching the filter
func (s *NodeService) List(ctx context.Context, sessionID valueobjects.SessionID, filter ports.NodeFilter) ([]*entities.Node, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}
	if filter.Type != nil && !entities.ValidNodeType(*filter.Type) {
		return nil, pkgerrors.ErrInvalidNodeType.WithDetail("type", string(*filter.Type))
	}
	if filter.Status != nil && !entities.ValidNodeStatus(*filter.Status) {
		return nil, pkgerrors.ErrInvalidNodeStatus.WithDetail("status", string(*filter.Status))
	}
	return s.nodes.ListBySession(ctx, sessionID, filter)
}

// UpdateNodeInput carries optional node changes; nil fields are untouched.
// Status is deliberately absent: transitions go through the lifecycle
// service so the completion gate cannot be bypassed.
type UpdateNodeInput struct {
	Label       *string
	Description *string
	Priority    *int
	Position    *valueobjects.Position
	Metadata    map[string]interface{}
	DueDate     *time.Time
	ClearDue    bool
}

// Update applies a partial update to a node
func (s *NodeService) Update(ctx context.Context, sessionID valueobjects.SessionID, nodeID valueobjects.NodeID, input UpdateNodeInput) (*entities.Node, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}
	node, err := s.Get(ctx, sessionID, nodeID)
	if err != nil {
		return nil, err
	}

	var changed []string
	moved := false

	if input.Label != nil {
		if err := s.validator.ValidateLabel(*input.Label); err != nil {
			return nil, err
		}
		if err := node.UpdateLabel(*input.Label); err != nil {
			return nil, err
		}
		changed = append(changed, "label")
	}
	if input.Description != nil {
		if err := s.validator.ValidateDescription(*input.Description); err != nil {
			return nil, err
		}
		node.UpdateDescription(*input.Description)
		changed = append(changed, "description")
	}
	if input.Priority != nil {
		node.SetPriority(*input.Priority)
		changed = append(changed, "priority")
	}
	if input.Position != nil {
		if err := s.validator.ValidatePosition(input.Position.X, input.Position.Y); err != nil {
			return nil, err
		}
		moved = node.MoveTo(*input.Position)
	}
	if input.Metadata != nil {
		if err := s.validator.ValidateMetadata(input.Metadata); err != nil {
			return nil, err
		}
		node.MergeMetadata(input.Metadata)
		changed = append(changed, "metadata")
	}
	if input.DueDate != nil {
		node.SetDueDate(input.DueDate)
		changed = append(changed, "due_date")
	} else if input.ClearDue {
		node.SetDueDate(nil)
		changed = append(changed, "due_date")
	}

	if len(changed) == 0 && !moved {
		return node, nil
	}

	if err := s.nodes.Save(ctx, node); err != nil {
		return nil, err
	}

	actor := actorFrom(ctx)
	if len(changed) > 0 {
		s.audit.emit(ctx, events.NewNodeUpdated(sessionID, actor, node.ID(), changed))
	}
	if moved {
		s.audit.emit(ctx, events.NewNodeMoved(sessionID, actor, node.ID(), node.Position()))
	}

	return node, nil
}
