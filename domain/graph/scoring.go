package graph

import (
	"math"
	"sort"

	"flowboard/domain/config"
	"flowboard/domain/core/entities"
	pkgerrors "flowboard/pkg/errors"
)

// ScoreResult is the derived planning score for one node
type ScoreResult struct {
	NodeID  string  `json:"node_id"`
	Label   string  `json:"label"`
	Base    float64 `json:"base"`
	Final   float64 `json:"final"`
	InBlitz bool    `json:"in_blitz"`
}

// ScoringEngine derives planning scores from raw priority, downstream
// fan-out and dependency depth, with a multiplicative boost for nodes in
// the session's active blitz
type ScoringEngine struct {
	analyzer          *Analyzer
	downstreamWeight  int
	defaultMultiplier float64
}

// NewScoringEngine creates a scoring engine
func NewScoringEngine(cfg *config.DomainConfig, analyzer *Analyzer) *ScoringEngine {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer(cfg)
	}
	return &ScoringEngine{
		analyzer:          analyzer,
		downstreamWeight:  cfg.DownstreamWeight,
		defaultMultiplier: cfg.DefaultBlitzMultiplier,
	}
}

// DefaultMultiplier returns the blitz multiplier used when the caller
// does not supply one
func (e *ScoringEngine) DefaultMultiplier() float64 {
	return e.defaultMultiplier
}

// ValidateMultiplier rejects multipliers that are not positive finite
func (e *ScoringEngine) ValidateMultiplier(multiplier float64) error {
	if multiplier <= 0 || math.IsInf(multiplier, 0) || math.IsNaN(multiplier) {
		return pkgerrors.ErrInvalidMultiplier.WithDetail("multiplier", multiplier)
	}
	return nil
}

// Score computes the score for one node. A node is boosted when an active
// blitz exists and the node is among its members.
func (e *ScoringEngine) Score(snap *Snapshot, node *entities.Node, activeBlitz *entities.Blitz, multiplier float64) (ScoreResult, error) {
	if err := e.ValidateMultiplier(multiplier); err != nil {
		return ScoreResult{}, err
	}

	id := node.ID().String()
	base := float64(node.Priority() +
		e.analyzer.DownstreamCount(snap, id)*e.downstreamWeight +
		e.analyzer.DependencyDepth(snap, id))

	inBlitz := activeBlitz != nil && activeBlitz.IsActive() && activeBlitz.ContainsNode(node.ID())

	final := base
	if inBlitz {
		final = base * multiplier
	}

	return ScoreResult{
		NodeID:  id,
		Label:   node.Label(),
		Base:    base,
		Final:   final,
		InBlitz: inBlitz,
	}, nil
}

// ScoreAll scores every node in the snapshot, ordered by final score
// descending with node ID as tiebreaker so equal scores rank reproducibly
func (e *ScoringEngine) ScoreAll(snap *Snapshot, activeBlitz *entities.Blitz, multiplier float64) ([]ScoreResult, error) {
	if err := e.ValidateMultiplier(multiplier); err != nil {
		return nil, err
	}

	nodes := snap.Nodes()
	results := make([]ScoreResult, 0, len(nodes))
	for _, n := range nodes {
		r, err := e.Score(snap, n, activeBlitz, multiplier)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Final != results[j].Final {
			return results[i].Final > results[j].Final
		}
		return results[i].NodeID < results[j].NodeID
	})

	return results, nil
}
