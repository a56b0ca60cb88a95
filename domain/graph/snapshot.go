// Package graph holds the derivation engine: pure computations over an
// immutable snapshot of one session's nodes and edges. Cycle admission,
// reachability, dependency depth and scoring all live here; persistence
// and locking stay outside.
package graph

import (
	"sort"

	"flowboard/domain/core/entities"
)

// Snapshot is an immutable adjacency view over one session's graph.
// Neighbor lists are ordered by edge creation time (edge ID as tiebreak)
// so every traversal over the same state is deterministic.
type Snapshot struct {
	nodes map[string]*entities.Node
	edges map[string]*entities.Edge
	pairs map[string]*entities.Edge

	outEdges map[string][]*entities.Edge
	inEdges  map[string][]*entities.Edge

	// dependency-only adjacency, used by cycle checking and depth
	depOut map[string][]string
	depIn  map[string][]string
}

// NewSnapshot builds a snapshot from a session's nodes and edges
func NewSnapshot(nodes []*entities.Node, edges []*entities.Edge) *Snapshot {
	s := &Snapshot{
		nodes:    make(map[string]*entities.Node, len(nodes)),
		edges:    make(map[string]*entities.Edge, len(edges)),
		pairs:    make(map[string]*entities.Edge, len(edges)),
		outEdges: make(map[string][]*entities.Edge),
		inEdges:  make(map[string][]*entities.Edge),
		depOut:   make(map[string][]string),
		depIn:    make(map[string][]string),
	}

	for _, n := range nodes {
		s.nodes[n.ID().String()] = n
	}

	ordered := make([]*entities.Edge, len(edges))
	copy(ordered, edges)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt().Equal(ordered[j].CreatedAt()) {
			return ordered[i].CreatedAt().Before(ordered[j].CreatedAt())
		}
		return ordered[i].ID().String() < ordered[j].ID().String()
	})

	for _, e := range ordered {
		src := e.SourceID().String()
		tgt := e.TargetID().String()

		s.edges[e.ID().String()] = e
		s.pairs[e.PairKey()] = e
		s.outEdges[src] = append(s.outEdges[src], e)
		s.inEdges[tgt] = append(s.inEdges[tgt], e)

		if e.IsDependency() {
			s.depOut[src] = append(s.depOut[src], tgt)
			s.depIn[tgt] = append(s.depIn[tgt], src)
		}
	}

	return s
}

// Node returns the node with the given ID, or nil if absent
func (s *Snapshot) Node(id string) *entities.Node {
	return s.nodes[id]
}

// HasNode reports whether the node exists in the snapshot
func (s *Snapshot) HasNode(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Nodes returns all nodes sorted by ID for deterministic iteration
func (s *Snapshot) Nodes() []*entities.Node {
	out := make([]*entities.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID().String() < out[j].ID().String()
	})
	return out
}

// NodeCount returns the number of nodes in the snapshot
func (s *Snapshot) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges in the snapshot
func (s *Snapshot) EdgeCount() int { return len(s.edges) }

// Edge returns the edge with the given ID, or nil if absent
func (s *Snapshot) Edge(id string) *entities.Edge {
	return s.edges[id]
}

// EdgeByPair returns the edge for an ordered (source, target) pair, or nil.
// The duplicate-edge invariant makes this unique regardless of type.
func (s *Snapshot) EdgeByPair(sourceID, targetID string) *entities.Edge {
	return s.pairs[sourceID+"->"+targetID]
}

// OutEdges returns the outgoing edges of a node in creation order
func (s *Snapshot) OutEdges(id string) []*entities.Edge {
	return s.outEdges[id]
}

// InEdges returns the incoming edges of a node in creation order
func (s *Snapshot) InEdges(id string) []*entities.Edge {
	return s.inEdges[id]
}

// DependencySuccessors returns targets of the node's outgoing dependency
// edges in creation order
func (s *Snapshot) DependencySuccessors(id string) []string {
	return s.depOut[id]
}

// DependencyPredecessors returns sources of the node's incoming dependency
// edges in creation order
func (s *Snapshot) DependencyPredecessors(id string) []string {
	return s.depIn[id]
}
