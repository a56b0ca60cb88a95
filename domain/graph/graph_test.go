package graph

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowboard/domain/config"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	pkgerrors "flowboard/pkg/errors"
)

const testSessionID = "11111111-1111-1111-1111-111111111111"

func testUUID(n int) string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
}

type fixture struct {
	t         *testing.T
	sessionID valueobjects.SessionID
	nodes     []*entities.Node
	edges     []*entities.Edge
	clock     time.Time
}

func newFixture(t *testing.T) *fixture {
	sid, err := valueobjects.NewSessionIDFromString(testSessionID)
	require.NoError(t, err)
	return &fixture{
		t:         t,
		sessionID: sid,
		clock:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) node(n int, priority int) string {
	id, err := valueobjects.NewNodeIDFromString(testUUID(n))
	require.NoError(f.t, err)

	node := entities.ReconstructNode(
		id, f.sessionID, entities.NodeTypeTask,
		fmt.Sprintf("node-%d", n), "",
		entities.StatusPending, priority,
		valueobjects.Position{}, nil, nil, nil,
		f.clock, f.clock, 1,
	)
	f.nodes = append(f.nodes, node)
	return id.String()
}

func (f *fixture) edge(source, target string, edgeType entities.EdgeType) {
	sid, err := valueobjects.NewNodeIDFromString(source)
	require.NoError(f.t, err)
	tid, err := valueobjects.NewNodeIDFromString(target)
	require.NoError(f.t, err)

	// Each edge gets a later creation time so snapshot ordering is stable
	f.clock = f.clock.Add(time.Second)
	e := entities.ReconstructEdge(
		valueobjects.NewEdgeID(), f.sessionID, sid, tid,
		edgeType, "", 1.0, nil, f.clock, f.clock,
	)
	f.edges = append(f.edges, e)
}

func (f *fixture) snapshot() *Snapshot {
	return NewSnapshot(f.nodes, f.edges)
}

func TestCycleGuard(t *testing.T) {
	guard := NewCycleGuard(nil)

	t.Run("rejects closing a dependency cycle", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		c := f.node(3, 0)
		f.edge(a, b, entities.EdgeTypeDependency)
		f.edge(b, c, entities.EdgeTypeDependency)

		assert.True(t, guard.WouldCreateCycle(f.snapshot(), c, a))
	})

	t.Run("allows forward chains", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		c := f.node(3, 0)
		f.edge(a, b, entities.EdgeTypeDependency)

		assert.False(t, guard.WouldCreateCycle(f.snapshot(), b, c))
		assert.False(t, guard.WouldCreateCycle(f.snapshot(), a, c))
	})

	t.Run("ignores non-dependency edges", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		f.edge(a, b, entities.EdgeTypeAssociation)

		// b -> a would be a cycle only if the a -> b association counted
		assert.False(t, guard.WouldCreateCycle(f.snapshot(), b, a))
	})

	t.Run("rejects trivial self cycle", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)

		assert.True(t, guard.WouldCreateCycle(f.snapshot(), a, a))
	})

	t.Run("detects transitive cycles across long chains", func(t *testing.T) {
		f := newFixture(t)
		ids := make([]string, 10)
		for i := range ids {
			ids[i] = f.node(i+1, 0)
		}
		for i := 0; i < len(ids)-1; i++ {
			f.edge(ids[i], ids[i+1], entities.EdgeTypeDependency)
		}

		assert.True(t, guard.WouldCreateCycle(f.snapshot(), ids[len(ids)-1], ids[0]))
	})
}

func TestDownstream(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	t.Run("reports minimum depth across edge types", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		c := f.node(3, 0)
		f.edge(a, b, entities.EdgeTypeDependency)
		f.edge(b, c, entities.EdgeTypeHierarchy)
		f.edge(a, c, entities.EdgeTypeAssociation)

		reaches := analyzer.Downstream(f.snapshot(), a)
		require.Len(t, reaches, 2)

		depths := map[string]int{}
		for _, r := range reaches {
			depths[r.NodeID] = r.Depth
		}
		assert.Equal(t, 1, depths[b])
		// c is reachable at depth 2 via b, but the direct edge wins
		assert.Equal(t, 1, depths[c])
	})

	t.Run("is deterministic across runs", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		for i := 2; i <= 6; i++ {
			f.edge(a, f.node(i, 0), entities.EdgeTypeAssociation)
		}
		snap := f.snapshot()

		first := analyzer.Downstream(snap, a)
		second := analyzer.Downstream(snap, a)
		assert.Equal(t, first, second)
	})

	t.Run("unknown node yields nothing", func(t *testing.T) {
		f := newFixture(t)
		f.node(1, 0)

		assert.Nil(t, analyzer.Downstream(f.snapshot(), testUUID(99)))
	})

	t.Run("does not revisit nodes through diamonds", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		c := f.node(3, 0)
		d := f.node(4, 0)
		f.edge(a, b, entities.EdgeTypeDependency)
		f.edge(a, c, entities.EdgeTypeDependency)
		f.edge(b, d, entities.EdgeTypeDependency)
		f.edge(c, d, entities.EdgeTypeDependency)

		reaches := analyzer.Downstream(f.snapshot(), a)
		assert.Len(t, reaches, 3)
	})
}

func TestDependencyDepth(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	t.Run("zero without incoming dependency edges", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		// an association does not contribute to dependency depth
		f.edge(a, b, entities.EdgeTypeAssociation)

		snap := f.snapshot()
		assert.Equal(t, 0, analyzer.DependencyDepth(snap, a))
		assert.Equal(t, 0, analyzer.DependencyDepth(snap, b))
	})

	t.Run("counts the longest backwards chain", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		c := f.node(3, 0)
		d := f.node(4, 0)
		f.edge(a, b, entities.EdgeTypeDependency)
		f.edge(b, c, entities.EdgeTypeDependency)
		// short path directly into c should not win
		f.edge(d, c, entities.EdgeTypeDependency)

		snap := f.snapshot()
		assert.Equal(t, 0, analyzer.DependencyDepth(snap, a))
		assert.Equal(t, 1, analyzer.DependencyDepth(snap, b))
		assert.Equal(t, 2, analyzer.DependencyDepth(snap, c))
	})

	t.Run("satisfies the recurrence over predecessors", func(t *testing.T) {
		f := newFixture(t)
		a := f.node(1, 0)
		b := f.node(2, 0)
		c := f.node(3, 0)
		d := f.node(4, 0)
		f.edge(a, b, entities.EdgeTypeDependency)
		f.edge(a, c, entities.EdgeTypeDependency)
		f.edge(b, d, entities.EdgeTypeDependency)
		f.edge(c, d, entities.EdgeTypeDependency)

		snap := f.snapshot()
		// depth(d) = 1 + max(depth(b), depth(c))
		assert.Equal(t, 2, analyzer.DependencyDepth(snap, d))
	})
}

func TestCounts(t *testing.T) {
	analyzer := NewAnalyzer(nil)

	f := newFixture(t)
	a := f.node(1, 0)
	b := f.node(2, 0)
	c := f.node(3, 0)
	f.edge(a, b, entities.EdgeTypeDependency)
	f.edge(a, c, entities.EdgeTypeAssociation)
	f.edge(b, c, entities.EdgeTypeSequence)

	snap := f.snapshot()
	assert.Equal(t, 2, analyzer.DownstreamCount(snap, a))
	assert.Equal(t, 0, analyzer.UpstreamCount(snap, a))
	assert.Equal(t, 2, analyzer.UpstreamCount(snap, c))
}

func TestScoring(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	analyzer := NewAnalyzer(cfg)
	engine := NewScoringEngine(cfg, analyzer)

	buildScoringFixture := func(t *testing.T) (*fixture, string) {
		// node a: priority 1, two outgoing edges, one incoming dependency
		f := newFixture(t)
		a := f.node(1, 1)
		b := f.node(2, 0)
		c := f.node(3, 0)
		p := f.node(4, 0)
		f.edge(a, b, entities.EdgeTypeDependency)
		f.edge(a, c, entities.EdgeTypeAssociation)
		f.edge(p, a, entities.EdgeTypeDependency)
		return f, a
	}

	t.Run("base formula", func(t *testing.T) {
		f, a := buildScoringFixture(t)
		snap := f.snapshot()

		r, err := engine.Score(snap, snap.Node(a), nil, engine.DefaultMultiplier())
		require.NoError(t, err)
		// 1 + 2*2 + 1
		assert.Equal(t, 6.0, r.Base)
		assert.Equal(t, 6.0, r.Final)
		assert.False(t, r.InBlitz)
	})

	t.Run("active blitz multiplies the score", func(t *testing.T) {
		f, a := buildScoringFixture(t)
		snap := f.snapshot()

		nodeID, err := valueobjects.NewNodeIDFromString(a)
		require.NoError(t, err)
		blitz, err := entities.NewBlitz(f.sessionID, "focus", []valueobjects.NodeID{nodeID})
		require.NoError(t, err)
		require.NoError(t, blitz.Activate())

		r, err := engine.Score(snap, snap.Node(a), blitz, 2.0)
		require.NoError(t, err)
		assert.Equal(t, 6.0, r.Base)
		assert.Equal(t, 12.0, r.Final)
		assert.True(t, r.InBlitz)
	})

	t.Run("planned blitz does not boost", func(t *testing.T) {
		f, a := buildScoringFixture(t)
		snap := f.snapshot()

		nodeID, err := valueobjects.NewNodeIDFromString(a)
		require.NoError(t, err)
		blitz, err := entities.NewBlitz(f.sessionID, "focus", []valueobjects.NodeID{nodeID})
		require.NoError(t, err)

		r, err := engine.Score(snap, snap.Node(a), blitz, 2.0)
		require.NoError(t, err)
		assert.False(t, r.InBlitz)
		assert.Equal(t, r.Base, r.Final)
	})

	t.Run("rejects bad multipliers", func(t *testing.T) {
		f, a := buildScoringFixture(t)
		snap := f.snapshot()

		for _, m := range []float64{0, -1} {
			_, err := engine.Score(snap, snap.Node(a), nil, m)
			assert.ErrorIs(t, err, pkgerrors.ErrInvalidMultiplier)
		}
	})

	t.Run("ranking is reproducible with stable tiebreak", func(t *testing.T) {
		f := newFixture(t)
		for i := 1; i <= 5; i++ {
			f.node(i, 3) // identical priority, identical score
		}
		snap := f.snapshot()

		first, err := engine.ScoreAll(snap, nil, 2.0)
		require.NoError(t, err)
		second, err := engine.ScoreAll(snap, nil, 2.0)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		for i := 1; i < len(first); i++ {
			assert.LessOrEqual(t, first[i].Final, first[i-1].Final)
			if first[i].Final == first[i-1].Final {
				assert.Less(t, first[i-1].NodeID, first[i].NodeID)
			}
		}
	})

	t.Run("higher fan-out ranks first", func(t *testing.T) {
		f := newFixture(t)
		hub := f.node(1, 0)
		leafA := f.node(2, 0)
		leafB := f.node(3, 0)
		f.edge(hub, leafA, entities.EdgeTypeDependency)
		f.edge(hub, leafB, entities.EdgeTypeDependency)

		results, err := engine.ScoreAll(f.snapshot(), nil, 2.0)
		require.NoError(t, err)
		assert.Equal(t, hub, results[0].NodeID)
	})
}
