package graph

import (
	"flowboard/domain/config"
)

// Reach is one node discovered by a downstream traversal, reported at its
// minimum distance from the origin
type Reach struct {
	NodeID string
	Depth  int
}

// Analyzer computes reachability-derived signals over a snapshot. All
// traversals are bounded by the domain traversal limit as a defensive
// measure against pathological graphs; the bound is not a domain rule.
type Analyzer struct {
	maxDepth int
}

// NewAnalyzer creates a reachability analyzer
func NewAnalyzer(cfg *config.DomainConfig) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Analyzer{maxDepth: cfg.MaxTraversalDepth}
}

// Downstream returns every node reachable from the origin by following
// edges of any type in source-to-target direction. Each node appears once
// at its minimum discovered depth; ties keep first-seen order, which is
// deterministic because the snapshot orders neighbors by edge creation.
func (a *Analyzer) Downstream(snap *Snapshot, nodeID string) []Reach {
	if !snap.HasNode(nodeID) {
		return nil
	}

	visited := map[string]bool{nodeID: true}
	frontier := []string{nodeID}
	var result []Reach

	for depth := 1; len(frontier) > 0 && depth <= a.maxDepth; depth++ {
		next := frontier[:0:0]
		for _, cur := range frontier {
			for _, e := range snap.OutEdges(cur) {
				tgt := e.TargetID().String()
				if visited[tgt] {
					continue
				}
				visited[tgt] = true
				result = append(result, Reach{NodeID: tgt, Depth: depth})
				next = append(next, tgt)
			}
		}
		frontier = next
	}

	return result
}

// DependencyDepth returns the length of the longest chain of dependency
// edges ending at the node, walking backwards along dependency edges only.
// The dependency subgraph is kept acyclic by the cycle guard, so this is a
// longest-path computation on a DAG; the depth cutoff is defense in depth.
func (a *Analyzer) DependencyDepth(snap *Snapshot, nodeID string) int {
	if !snap.HasNode(nodeID) {
		return 0
	}
	memo := make(map[string]int)
	return a.depthFrom(snap, nodeID, memo, 0)
}

func (a *Analyzer) depthFrom(snap *Snapshot, nodeID string, memo map[string]int, hops int) int {
	if hops >= a.maxDepth {
		return 0
	}
	if d, ok := memo[nodeID]; ok {
		return d
	}

	best := 0
	for _, pred := range snap.DependencyPredecessors(nodeID) {
		if d := 1 + a.depthFrom(snap, pred, memo, hops+1); d > best {
			best = d
		}
	}

	memo[nodeID] = best
	return best
}

// DownstreamCount returns the node's immediate outgoing edge count,
// independent of edge type
func (a *Analyzer) DownstreamCount(snap *Snapshot, nodeID string) int {
	return len(snap.OutEdges(nodeID))
}

// UpstreamCount returns the node's immediate incoming edge count,
// independent of edge type
func (a *Analyzer) UpstreamCount(snap *Snapshot, nodeID string) int {
	return len(snap.InEdges(nodeID))
}
