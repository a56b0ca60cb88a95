package services

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/domain/config"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/graph"
	pkgerrors "flowboard/pkg/errors"
)

// ScoringService exposes the derived read queries: ranked scores and
// downstream subtrees. Both are pure reads over one snapshot and take no
// locks; the snapshot's own consistency is enough.
type ScoringService struct {
	sessions ports.SessionRepository
	blitzes  ports.BlitzRepository
	loader   snapshotLoader
	analyzer *graph.Analyzer
	engine   *graph.ScoringEngine
	cfg      *config.DomainConfig
	logger   *zap.Logger
}

// NewScoringService creates a scoring service
func NewScoringService(
	sessions ports.SessionRepository,
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	blitzes ports.BlitzRepository,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *ScoringService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	analyzer := graph.NewAnalyzer(cfg)
	return &ScoringService{
		sessions: sessions,
		blitzes:  blitzes,
		loader:   snapshotLoader{nodes: nodes, edges: edges},
		analyzer: analyzer,
		engine:   graph.NewScoringEngine(cfg, analyzer),
		cfg:      cfg,
		logger:   logger,
	}
}

// ListScoredNodes scores every node in the session and returns them ranked
// by final score descending. A nil multiplier uses the default.
func (s *ScoringService) ListScoredNodes(ctx context.Context, sessionID valueobjects.SessionID, multiplier *float64) ([]graph.ScoreResult, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}

	m := s.engine.DefaultMultiplier()
	if multiplier != nil {
		m = *multiplier
	}
	if err := s.engine.ValidateMultiplier(m); err != nil {
		return nil, err
	}

	snap, err := s.loader.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	activeBlitz, err := s.blitzes.GetActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return s.engine.ScoreAll(snap, activeBlitz, m)
}

// SubtreeNode is one downstream node with its discovery depth
type SubtreeNode struct {
	Node  *entities.Node
	Depth int
}

// Subtree is the downstream closure of a root node: every reachable node
// with its minimum depth, plus the edges connecting members of the closure
type Subtree struct {
	Root        *entities.Node
	Descendants []SubtreeNode
	Edges       []*entities.Edge
}

// GetSubtree returns the downstream closure of rootID, following all edge
// types. maxDepth (nil for the domain limit) truncates the traversal.
func (s *ScoringService) GetSubtree(ctx context.Context, sessionID valueobjects.SessionID, rootID valueobjects.NodeID, maxDepth *int) (*Subtree, error) {
	if _, err := requireSession(ctx, s.sessions, sessionID, false); err != nil {
		return nil, err
	}

	snap, err := s.loader.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	root := snap.Node(rootID.String())
	if root == nil {
		return nil, pkgerrors.ErrNodeNotFound.WithDetail("node_id", rootID.String())
	}

	limit := s.cfg.MaxTraversalDepth
	if maxDepth != nil {
		if *maxDepth < 1 {
			return nil, pkgerrors.NewValidationError("max depth must be at least 1")
		}
		if *maxDepth < limit {
			limit = *maxDepth
		}
	}

	member := map[string]bool{rootID.String(): true}
	subtree := &Subtree{Root: root}
	for _, reach := range s.analyzer.Downstream(snap, rootID.String()) {
		if reach.Depth > limit {
			continue
		}
		member[reach.NodeID] = true
		subtree.Descendants = append(subtree.Descendants, SubtreeNode{
			Node:  snap.Node(reach.NodeID),
			Depth: reach.Depth,
		})
	}

	// Keep only edges whose both endpoints are inside the closure
	seen := map[string]bool{}
	for id := range member {
		for _, e := range snap.OutEdges(id) {
			if member[e.TargetID().String()] && !seen[e.ID().String()] {
				seen[e.ID().String()] = true
				subtree.Edges = append(subtree.Edges, e)
			}
		}
	}
	// member is a map, so collection order varies run to run
	sort.Slice(subtree.Edges, func(i, j int) bool {
		if !subtree.Edges[i].CreatedAt().Equal(subtree.Edges[j].CreatedAt()) {
			return subtree.Edges[i].CreatedAt().Before(subtree.Edges[j].CreatedAt())
		}
		return subtree.Edges[i].ID().String() < subtree.Edges[j].ID().String()
	})

	return subtree, nil
}
