package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/events"
	"flowboard/domain/graph"
	pkgerrors "flowboard/pkg/errors"
)

// LifecycleService governs node status transitions and node deletion.
// Both read graph state before writing, so the completion gate and the
// re-parenting protocol run inside the session's exclusive section.
type LifecycleService struct {
	sessions ports.SessionRepository
	nodes    ports.NodeRepository
	edges    ports.EdgeRepository
	locker   ports.SessionLocker
	loader   snapshotLoader
	audit    auditEmitter
	logger   *zap.Logger
}

// NewLifecycleService creates a lifecycle service
func NewLifecycleService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	locker ports.SessionLocker,
	publisher ports.AuditPublisher,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		sessions: sessions,
		nodes:    nodes,
		edges:    edges,
		locker:   locker,
		loader:   snapshotLoader{nodes: nodes, edges: edges},
		audit:    auditEmitter{publisher: publisher, logger: logger},
		logger:   logger,
	}
}

// SetNodeStatus applies a status transition. A transition into completed is
// rejected with UnmetDependencies while any dependency-predecessor of the
// node is not itself completed; the rejection enumerates the offenders so
// the caller can present them. A predecessor completing concurrently may
// legitimately race the gate; the loser fails and retries rather than ever
// completing prematurely.
func (s *LifecycleService) SetNodeStatus(ctx context.Context, sessionID valueobjects.SessionID, nodeID valueobjects.NodeID, status entities.NodeStatus) (*entities.Node, error) {
	if !entities.ValidNodeStatus(status) {
		return nil, pkgerrors.ErrInvalidNodeStatus.WithDetail("status", string(status))
	}
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return nil, err
	}

	var node *entities.Node
	err := s.locker.WithSessionLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		node, err = s.getNode(ctx, sessionID, nodeID)
		if err != nil {
			return err
		}

		from := node.Status()

		if status == entities.StatusCompleted && from != entities.StatusCompleted {
			snap, err := s.loader.load(ctx, sessionID)
			if err != nil {
				return err
			}
			if unmet := collectUnmet(snap, nodeID.String()); len(unmet) > 0 {
				return pkgerrors.NewUnmetDependenciesError(unmet)
			}
		}

		if err := node.SetStatus(status); err != nil {
			return err
		}
		if from == node.Status() {
			return nil
		}
		if err := s.nodes.Save(ctx, node); err != nil {
			return err
		}

		s.audit.emit(ctx, events.NewNodeStatusChanged(sessionID, actorFrom(ctx), nodeID, string(from), string(status)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// collectUnmet enumerates dependency-predecessors of the node that are not
// completed, in deterministic snapshot order
func collectUnmet(snap *graph.Snapshot, nodeID string) []pkgerrors.UnmetDependency {
	var unmet []pkgerrors.UnmetDependency
	for _, predID := range snap.DependencyPredecessors(nodeID) {
		pred := snap.Node(predID)
		if pred == nil || pred.IsCompleted() {
			continue
		}
		unmet = append(unmet, pkgerrors.UnmetDependency{
			NodeID: predID,
			Label:  pred.Label(),
			Status: string(pred.Status()),
		})
	}
	return unmet
}

// DeleteNode removes a node after re-parenting around it: for every parent
// edge p->N and child edge N->c of the same type, an edge p->c of that type
// is created unless the ordered pair already exists. This keeps transitive
// structure (a chain A->N->B becomes A->B) without wiring mismatched types
// together. Returns how many edges were created.
func (s *LifecycleService) DeleteNode(ctx context.Context, sessionID valueobjects.SessionID, nodeID valueobjects.NodeID) (int, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, true); err != nil {
		return 0, err
	}

	reparented := 0
	err := s.locker.WithSessionLock(ctx, sessionID, func(ctx context.Context) error {
		node, err := s.getNode(ctx, sessionID, nodeID)
		if err != nil {
			return err
		}

		snap, err := s.loader.load(ctx, sessionID)
		if err != nil {
			return err
		}

		id := node.ID().String()
		for _, parentEdge := range snap.InEdges(id) {
			for _, childEdge := range snap.OutEdges(id) {
				if parentEdge.Type() != childEdge.Type() {
					continue
				}
				p := parentEdge.SourceID()
				c := childEdge.TargetID()
				if p.Equals(c) {
					continue
				}
				if snap.EdgeByPair(p.String(), c.String()) != nil {
					continue
				}

				bridge, err := entities.NewEdge(sessionID, p, c, parentEdge.Type())
				if err != nil {
					return err
				}
				if err := s.edges.Save(ctx, bridge); err != nil {
					// A pre-existing pair is left untouched, not overwritten
					if errors.Is(err, pkgerrors.ErrDuplicateEdge) {
						continue
					}
					return err
				}
				reparented++
			}
		}

		if err := s.nodes.Delete(ctx, sessionID, nodeID); err != nil {
			return err
		}

		s.logger.Info("Node deleted",
			zap.String("session_id", sessionID.String()),
			zap.String("node_id", id),
			zap.Int("reparented", reparented),
		)
		s.audit.emit(ctx, events.NewNodeDeleted(sessionID, actorFrom(ctx), nodeID, reparented))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reparented, nil
}

func (s *LifecycleService) getNode(ctx context.Context, sessionID valueobjects.SessionID, nodeID valueobjects.NodeID) (*entities.Node, error) {
	node, err := s.nodes.GetByID(ctx, sessionID, nodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", nodeID.String())
	}
	return node, nil
}
