package memory

import (
	"flowboard/domain/core/entities"
)

// The store isolates callers from each other by deep-copying entities at
// the storage boundary. Reconstruct* preserves timestamps and versions.

func cloneSession(s *entities.Session) *entities.Session {
	return entities.ReconstructSession(
		s.ID(), s.OwnerID(), s.Name(), s.Status(), s.Settings(),
		s.CreatedAt(), s.UpdatedAt(),
	)
}

func cloneNode(n *entities.Node) *entities.Node {
	return entities.ReconstructNode(
		n.ID(), n.SessionID(), n.Type(), n.Label(), n.Description(),
		n.Status(), n.Priority(), n.Position(), n.Metadata(),
		n.DueDate(), n.CompletedAt(), n.CreatedAt(), n.UpdatedAt(), n.Version(),
	)
}

func cloneEdge(e *entities.Edge) *entities.Edge {
	return entities.ReconstructEdge(
		e.ID(), e.SessionID(), e.SourceID(), e.TargetID(), e.Type(),
		e.Label(), e.Weight(), e.Metadata(), e.CreatedAt(), e.UpdatedAt(),
	)
}

func cloneBlitz(b *entities.Blitz) *entities.Blitz {
	return entities.ReconstructBlitz(
		b.ID(), b.SessionID(), b.Title(), b.Status(), b.MemberNodeIDs(),
		b.StartedAt(), b.CompletedAt(), b.TimeLimit(), b.Results(),
		b.CreatedAt(), b.UpdatedAt(),
	)
}
