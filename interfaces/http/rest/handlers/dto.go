package handlers

import (
	"time"

	"flowboard/application/services"
	"flowboard/domain/core/entities"
)

// Response DTOs. Entities keep their fields private, so the handlers map
// them into plain structs at the boundary.

type sessionResponse struct {
	ID        string                 `json:"id"`
	OwnerID   string                 `json:"owner_id"`
	Name      string                 `json:"name"`
	Status    string                 `json:"status"`
	Settings  map[string]interface{} `json:"settings,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func toSessionResponse(s *entities.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID().String(),
		OwnerID:   s.OwnerID(),
		Name:      s.Name(),
		Status:    string(s.Status()),
		Settings:  s.Settings(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

type positionDTO struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type nodeResponse struct {
	ID          string                 `json:"id"`
	SessionID   string                 `json:"session_id"`
	Type        string                 `json:"type"`
	Label       string                 `json:"label"`
	Description string                 `json:"description,omitempty"`
	Status      string                 `json:"status"`
	Priority    int                    `json:"priority"`
	Position    positionDTO            `json:"position"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	DueDate     *time.Time             `json:"due_date,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Version     int                    `json:"version"`
}

func toNodeResponse(n *entities.Node) nodeResponse {
	return nodeResponse{
		ID:          n.ID().String(),
		SessionID:   n.SessionID().String(),
		Type:        string(n.Type()),
		Label:       n.Label(),
		Description: n.Description(),
		Status:      string(n.Status()),
		Priority:    n.Priority(),
		Position:    positionDTO{X: n.Position().X, Y: n.Position().Y},
		Metadata:    n.Metadata(),
		DueDate:     n.DueDate(),
		CompletedAt: n.CompletedAt(),
		CreatedAt:   n.CreatedAt(),
		UpdatedAt:   n.UpdatedAt(),
		Version:     n.Version(),
	}
}

func toNodeResponses(nodes []*entities.Node) []nodeResponse {
	out := make([]nodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, toNodeResponse(n))
	}
	return out
}

type edgeResponse struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	SourceID  string                 `json:"source_id"`
	TargetID  string                 `json:"target_id"`
	Type      string                 `json:"type"`
	Label     string                 `json:"label,omitempty"`
	Weight    float64                `json:"weight"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

func toEdgeResponse(e *entities.Edge) edgeResponse {
	return edgeResponse{
		ID:        e.ID().String(),
		SessionID: e.SessionID().String(),
		SourceID:  e.SourceID().String(),
		TargetID:  e.TargetID().String(),
		Type:      string(e.Type()),
		Label:     e.Label(),
		Weight:    e.Weight(),
		Metadata:  e.Metadata(),
		CreatedAt: e.CreatedAt(),
		UpdatedAt: e.UpdatedAt(),
	}
}

func toEdgeResponses(edges []*entities.Edge) []edgeResponse {
	out := make([]edgeResponse, 0, len(edges))
	for _, e := range edges {
		out = append(out, toEdgeResponse(e))
	}
	return out
}

type blitzResponse struct {
	ID            string                 `json:"id"`
	SessionID     string                 `json:"session_id"`
	Title         string                 `json:"title"`
	Status        string                 `json:"status"`
	MemberNodeIDs []string               `json:"member_node_ids"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	TimeLimitSecs int64                  `json:"time_limit_secs,omitempty"`
	Results       map[string]interface{} `json:"results,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

func toBlitzResponse(b *entities.Blitz) blitzResponse {
	memberIDs := make([]string, 0, len(b.MemberNodeIDs()))
	for _, id := range b.MemberNodeIDs() {
		memberIDs = append(memberIDs, id.String())
	}
	var timeLimitSecs int64
	if b.TimeLimit() != nil {
		timeLimitSecs = int64(b.TimeLimit().Seconds())
	}
	return blitzResponse{
		ID:            b.ID().String(),
		SessionID:     b.SessionID().String(),
		Title:         b.Title(),
		Status:        string(b.Status()),
		MemberNodeIDs: memberIDs,
		StartedAt:     b.StartedAt(),
		CompletedAt:   b.CompletedAt(),
		TimeLimitSecs: timeLimitSecs,
		Results:       b.Results(),
		CreatedAt:     b.CreatedAt(),
		UpdatedAt:     b.UpdatedAt(),
	}
}

func toBlitzResponses(blitzes []*entities.Blitz) []blitzResponse {
	out := make([]blitzResponse, 0, len(blitzes))
	for _, b := range blitzes {
		out = append(out, toBlitzResponse(b))
	}
	return out
}

type subtreeNodeResponse struct {
	Node  nodeResponse `json:"node"`
	Depth int          `json:"depth"`
}

type subtreeResponse struct {
	Root        nodeResponse          `json:"root"`
	Descendants []subtreeNodeResponse `json:"descendants"`
	Edges       []edgeResponse        `json:"edges"`
}

func toSubtreeResponse(s *services.Subtree) subtreeResponse {
	descendants := make([]subtreeNodeResponse, 0, len(s.Descendants))
	for _, d := range s.Descendants {
		descendants = append(descendants, subtreeNodeResponse{
			Node:  toNodeResponse(d.Node),
			Depth: d.Depth,
		})
	}
	return subtreeResponse{
		Root:        toNodeResponse(s.Root),
		Descendants: descendants,
		Edges:       toEdgeResponses(s.Edges),
	}
}
