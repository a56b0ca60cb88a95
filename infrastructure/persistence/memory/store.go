// Package memory provides an in-process GraphStore driver. It backs local
// development and the test suite; the DynamoDB driver is the production
// counterpart.
package memory

import (
	"context"
	"sync"
	"time"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

// Store keeps one session's graph consistent under concurrent callers.
// Writes copy on the way in and reads copy on the way out, so an entity a
// caller is still mutating never leaks into another request's snapshot.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entities.Session
	nodes    map[string]map[string]*entities.Node
	edges    map[string]map[string]*entities.Edge
	pairs    map[string]map[string]string
	blitzes  map[string]map[string]*entities.Blitz

	lockMu      sync.Mutex
	locks       map[string]chan struct{}
	lockTimeout time.Duration
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]*entities.Session),
		nodes:       make(map[string]map[string]*entities.Node),
		edges:       make(map[string]map[string]*entities.Edge),
		pairs:       make(map[string]map[string]string),
		blitzes:     make(map[string]map[string]*entities.Blitz),
		locks:       make(map[string]chan struct{}),
		lockTimeout: 5 * time.Second,
	}
}

// Session repository

// Save persists a session
func (s *Store) Save(ctx context.Context, session *entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := session.ID().String()
	s.sessions[id] = cloneSession(session)
	if s.nodes[id] == nil {
		s.nodes[id] = make(map[string]*entities.Node)
		s.edges[id] = make(map[string]*entities.Edge)
		s.pairs[id] = make(map[string]string)
		s.blitzes[id] = make(map[string]*entities.Blitz)
	}
	return nil
}

// GetByID retrieves a session, nil when absent
func (s *Store) GetByID(ctx context.Context, id valueobjects.SessionID) (*entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id.String()]
	if !ok {
		return nil, nil
	}
	return cloneSession(session), nil
}

// GetByOwnerID retrieves all sessions owned by a user
func (s *Store) GetByOwnerID(ctx context.Context, ownerID string) ([]*entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Session
	for _, session := range s.sessions {
		if session.OwnerID() == ownerID {
			out = append(out, cloneSession(session))
		}
	}
	return out, nil
}

// Delete removes a session and everything it contains
func (s *Store) Delete(ctx context.Context, id valueobjects.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := id.String()
	if _, ok := s.sessions[sid]; !ok {
		return pkgerrors.ErrSessionNotFound.WithDetail("session_id", sid)
	}
	delete(s.sessions, sid)
	delete(s.nodes, sid)
	delete(s.edges, sid)
	delete(s.pairs, sid)
	delete(s.blitzes, sid)
	return nil
}

// NodeStore returns the node repository view of the store
func (s *Store) NodeStore() ports.NodeRepository { return (*nodeStore)(s) }

// EdgeStore returns the edge repository view of the store
func (s *Store) EdgeStore() ports.EdgeRepository { return (*edgeStore)(s) }

// BlitzStore returns the blitz repository view of the store
func (s *Store) BlitzStore() ports.BlitzRepository { return (*blitzStore)(s) }

// Node repository

type nodeStore Store

func (s *nodeStore) Save(ctx context.Context, node *entities.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := node.SessionID().String()
	bucket := s.nodes[sid]
	if bucket == nil {
		return pkgerrors.ErrSessionNotFound.WithDetail("session_id", sid)
	}

	// Optimistic guard: a writer holding a stale copy lost a race and must
	// re-read before retrying
	nid := node.ID().String()
	if stored, ok := bucket[nid]; ok && node.Version() <= stored.Version() {
		return pkgerrors.ErrConcurrentModification.
			WithDetail("node_id", nid).
			WithDetail("stored_version", stored.Version())
	}

	bucket[nid] = cloneNode(node)
	return nil
}

func (s *nodeStore) GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.NodeID) (*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[sessionID.String()][id.String()]
	if !ok {
		return nil, nil
	}
	return cloneNode(node), nil
}

func (s *nodeStore) ListBySession(ctx context.Context, sessionID valueobjects.SessionID, filter ports.NodeFilter) ([]*entities.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Node
	for _, node := range s.nodes[sessionID.String()] {
		if filter.Type != nil && node.Type() != *filter.Type {
			continue
		}
		if filter.Status != nil && node.Status() != *filter.Status {
			continue
		}
		out = append(out, cloneNode(node))
	}
	return out, nil
}

func (s *nodeStore) CountBySession(ctx context.Context, sessionID valueobjects.SessionID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes[sessionID.String()]), nil
}

func (s *nodeStore) Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := sessionID.String()
	nid := id.String()
	if _, ok := s.nodes[sid][nid]; !ok {
		return pkgerrors.ErrNodeNotFound.WithDetail("node_id", nid)
	}
	delete(s.nodes[sid], nid)

	// Cascade: edges incident to the node go with it
	for eid, edge := range s.edges[sid] {
		if edge.SourceID().String() == nid || edge.TargetID().String() == nid {
			delete(s.pairs[sid], edge.PairKey())
			delete(s.edges[sid], eid)
		}
	}
	return nil
}

// Edge repository

type edgeStore Store

func (s *edgeStore) Save(ctx context.Context, edge *entities.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := edge.SessionID().String()
	bucket := s.edges[sid]
	if bucket == nil {
		return pkgerrors.ErrSessionNotFound.WithDetail("session_id", sid)
	}

	for _, endpoint := range []string{edge.SourceID().String(), edge.TargetID().String()} {
		if _, ok := s.nodes[sid][endpoint]; ok {
			continue
		}
		if s.nodeInOtherSession(sid, endpoint) {
			return pkgerrors.ErrCrossSessionReference.WithDetail("node_id", endpoint)
		}
		return pkgerrors.ErrNodeNotFound.WithDetail("node_id", endpoint)
	}

	eid := edge.ID().String()
	if existing, ok := s.pairs[sid][edge.PairKey()]; ok && existing != eid {
		return pkgerrors.ErrDuplicateEdge.WithDetail("edge_id", existing)
	}

	bucket[eid] = cloneEdge(edge)
	s.pairs[sid][edge.PairKey()] = eid
	return nil
}

// nodeInOtherSession reports whether a node id exists under any session
// other than sid. Caller holds mu.
func (s *edgeStore) nodeInOtherSession(sid, nodeID string) bool {
	for otherSID, bucket := range s.nodes {
		if otherSID == sid {
			continue
		}
		if _, ok := bucket[nodeID]; ok {
			return true
		}
	}
	return false
}

func (s *edgeStore) GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.EdgeID) (*entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edges[sessionID.String()][id.String()]
	if !ok {
		return nil, nil
	}
	return cloneEdge(edge), nil
}

func (s *edgeStore) ListBySession(ctx context.Context, sessionID valueobjects.SessionID, filter ports.EdgeFilter) ([]*entities.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Edge
	for _, edge := range s.edges[sessionID.String()] {
		if filter.Type != nil && edge.Type() != *filter.Type {
			continue
		}
		if filter.IncidentNodeID != "" &&
			edge.SourceID().String() != filter.IncidentNodeID &&
			edge.TargetID().String() != filter.IncidentNodeID {
			continue
		}
		out = append(out, cloneEdge(edge))
	}
	return out, nil
}

func (s *edgeStore) CountBySession(ctx context.Context, sessionID valueobjects.SessionID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges[sessionID.String()]), nil
}

func (s *edgeStore) Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.EdgeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := sessionID.String()
	eid := id.String()
	edge, ok := s.edges[sid][eid]
	if !ok {
		return pkgerrors.ErrEdgeNotFound.WithDetail("edge_id", eid)
	}
	delete(s.pairs[sid], edge.PairKey())
	delete(s.edges[sid], eid)
	return nil
}

// Blitz repository

type blitzStore Store

func (s *blitzStore) Save(ctx context.Context, blitz *entities.Blitz) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := blitz.SessionID().String()
	bucket := s.blitzes[sid]
	if bucket == nil {
		return pkgerrors.ErrSessionNotFound.WithDetail("session_id", sid)
	}

	// Storage-level backstop for the single-active invariant
	if blitz.IsActive() {
		for _, other := range bucket {
			if other.IsActive() && !other.ID().Equals(blitz.ID()) {
				return pkgerrors.ErrBlitzAlreadyActive.
					WithDetail("active_blitz_id", other.ID().String())
			}
		}
	}

	bucket[blitz.ID().String()] = cloneBlitz(blitz)
	return nil
}

func (s *blitzStore) GetByID(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.BlitzID) (*entities.Blitz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blitz, ok := s.blitzes[sessionID.String()][id.String()]
	if !ok {
		return nil, nil
	}
	return cloneBlitz(blitz), nil
}

func (s *blitzStore) ListBySession(ctx context.Context, sessionID valueobjects.SessionID) ([]*entities.Blitz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Blitz
	for _, blitz := range s.blitzes[sessionID.String()] {
		out = append(out, cloneBlitz(blitz))
	}
	return out, nil
}

func (s *blitzStore) GetActive(ctx context.Context, sessionID valueobjects.SessionID) (*entities.Blitz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, blitz := range s.blitzes[sessionID.String()] {
		if blitz.IsActive() {
			return cloneBlitz(blitz), nil
		}
	}
	return nil, nil
}

func (s *blitzStore) Delete(ctx context.Context, sessionID valueobjects.SessionID, id valueobjects.BlitzID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sid := sessionID.String()
	bid := id.String()
	if _, ok := s.blitzes[sid][bid]; !ok {
		return pkgerrors.ErrBlitzNotFound.WithDetail("blitz_id", bid)
	}
	delete(s.blitzes[sid], bid)
	return nil
}

// Session locker

// WithSessionLock serializes check-then-act mutations for one session.
// Distinct sessions never contend.
func (s *Store) WithSessionLock(ctx context.Context, sessionID valueobjects.SessionID, fn func(ctx context.Context) error) error {
	lock := s.sessionLock(sessionID.String())

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return pkgerrors.ErrSessionLockTimeout.WithCause(ctx.Err())
	case <-time.After(s.lockTimeout):
		return pkgerrors.ErrSessionLockTimeout.WithDetail("session_id", sessionID.String())
	}
	defer func() { <-lock }()

	return fn(ctx)
}

func (s *Store) sessionLock(sessionID string) chan struct{} {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.locks[sessionID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[sessionID] = lock
	}
	return lock
}
