package graph

import (
	"flowboard/domain/config"
)

// CycleGuard decides whether a proposed dependency edge is admissible.
// Only dependency edges participate; other edge types may form cycles.
type CycleGuard struct {
	maxDepth int
}

// NewCycleGuard creates a cycle guard bounded by the domain traversal limit
func NewCycleGuard(cfg *config.DomainConfig) *CycleGuard {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &CycleGuard{maxDepth: cfg.MaxTraversalDepth}
}

// WouldCreateCycle reports whether adding a dependency edge from
// proposedSource to proposedTarget would close a cycle. The new edge means
// the source must complete before the target; a cycle exists exactly when
// the target can already reach the source through existing dependency
// edges, so the check is a forward BFS from the target.
func (g *CycleGuard) WouldCreateCycle(snap *Snapshot, proposedSource, proposedTarget string) bool {
	if proposedSource == proposedTarget {
		return true
	}

	visited := map[string]bool{proposedTarget: true}
	queue := []string{proposedTarget}

	for depth := 0; len(queue) > 0 && depth < g.maxDepth; depth++ {
		next := queue[:0:0]
		for _, cur := range queue {
			for _, succ := range snap.DependencySuccessors(cur) {
				if succ == proposedSource {
					return true
				}
				if !visited[succ] {
					visited[succ] = true
					next = append(next, succ)
				}
			}
		}
		queue = next
	}

	return false
}
