package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flowboard/application/ports"
	"flowboard/application/services"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/domain/graph"
	"flowboard/infrastructure/persistence/memory"
	pkgerrors "flowboard/pkg/errors"
)

type env struct {
	store     *memory.Store
	session   *entities.Session
	sessions  *services.SessionService
	nodes     *services.NodeService
	edges     *services.EdgeService
	lifecycle *services.LifecycleService
	scoring   *services.ScoringService
	blitzes   *services.BlitzService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()

	e := &env{
		store:     store,
		sessions:  services.NewSessionService(store, nil, logger),
		nodes:     services.NewNodeService(store, store.NodeStore(), nil, nil, logger),
		edges:     services.NewEdgeService(store, store.NodeStore(), store.EdgeStore(), store, nil, nil, logger),
		lifecycle: services.NewLifecycleService(store, store.NodeStore(), store.EdgeStore(), store, nil, logger),
		scoring:   services.NewScoringService(store, store.NodeStore(), store.EdgeStore(), store.BlitzStore(), nil, logger),
		blitzes:   services.NewBlitzService(store, store.NodeStore(), store.BlitzStore(), store, nil, logger),
	}

	session, err := e.sessions.Create(context.Background(), "owner-1", "Planning", nil)
	require.NoError(t, err)
	e.session = session
	return e
}

func (e *env) task(t *testing.T, label string, priority int) *entities.Node {
	t.Helper()
	node, err := e.nodes.Create(context.Background(), e.session.ID(), services.CreateNodeInput{
		Type:     entities.NodeTypeTask,
		Label:    label,
		Priority: priority,
	})
	require.NoError(t, err)
	return node
}

func (e *env) connect(t *testing.T, source, target *entities.Node, edgeType entities.EdgeType) *entities.Edge {
	t.Helper()
	edge, err := e.edges.Create(context.Background(), e.session.ID(), source.ID(), target.ID(), edgeType, services.CreateEdgeInput{})
	require.NoError(t, err)
	return edge
}

func TestCompletionGate(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks while prerequisites are incomplete", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "prerequisite", 0)
		b := e.task(t, "dependent", 0)
		e.connect(t, a, b, entities.EdgeTypeDependency)

		_, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), b.ID(), entities.StatusCompleted)
		require.ErrorIs(t, err, pkgerrors.ErrUnmetDependencies)

		de := pkgerrors.AsDomainError(err)
		require.NotNil(t, de)
		unmet, ok := de.Details["dependencies"].([]pkgerrors.UnmetDependency)
		require.True(t, ok)
		require.Len(t, unmet, 1)
		assert.Equal(t, a.ID().String(), unmet[0].NodeID)
		assert.Equal(t, "prerequisite", unmet[0].Label)
		assert.Equal(t, string(entities.StatusPending), unmet[0].Status)
	})

	t.Run("opens once prerequisites complete", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "prerequisite", 0)
		b := e.task(t, "dependent", 0)
		e.connect(t, a, b, entities.EdgeTypeDependency)

		_, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), a.ID(), entities.StatusCompleted)
		require.NoError(t, err)

		done, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), b.ID(), entities.StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, entities.StatusCompleted, done.Status())
		assert.NotNil(t, done.CompletedAt())
	})

	t.Run("only dependency edges gate", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "related", 0)
		b := e.task(t, "independent", 0)
		e.connect(t, a, b, entities.EdgeTypeAssociation)

		_, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), b.ID(), entities.StatusCompleted)
		require.NoError(t, err)
	})

	t.Run("no gate on other transitions", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "prerequisite", 0)
		b := e.task(t, "dependent", 0)
		e.connect(t, a, b, entities.EdgeTypeDependency)

		_, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), b.ID(), entities.StatusBlocked)
		require.NoError(t, err)
	})

	t.Run("uncompleting clears the completion timestamp", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "solo", 0)

		completed, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), a.ID(), entities.StatusCompleted)
		require.NoError(t, err)
		require.NotNil(t, completed.CompletedAt())

		reopened, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), a.ID(), entities.StatusInProgress)
		require.NoError(t, err)
		assert.Nil(t, reopened.CompletedAt())
	})

	t.Run("unknown node", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.lifecycle.SetNodeStatus(ctx, e.session.ID(), valueobjects.NewNodeID(), entities.StatusCompleted)
		assert.ErrorIs(t, err, pkgerrors.ErrNodeNotFound)
	})
}

func TestEdgeAdmission(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects self loops", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)

		_, err := e.edges.Create(ctx, e.session.ID(), a.ID(), a.ID(), entities.EdgeTypeAssociation, services.CreateEdgeInput{})
		assert.ErrorIs(t, err, pkgerrors.ErrSelfReferentialEdge)
	})

	t.Run("rejects duplicate ordered pairs regardless of type", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)
		b := e.task(t, "b", 0)
		e.connect(t, a, b, entities.EdgeTypeDependency)

		_, err := e.edges.Create(ctx, e.session.ID(), a.ID(), b.ID(), entities.EdgeTypeAssociation, services.CreateEdgeInput{})
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateEdge)

		// reverse direction is a different ordered pair
		_, err = e.edges.Create(ctx, e.session.ID(), b.ID(), a.ID(), entities.EdgeTypeAssociation, services.CreateEdgeInput{})
		require.NoError(t, err)
	})

	t.Run("rejects dependency cycles and leaves the graph unchanged", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)
		b := e.task(t, "b", 0)
		c := e.task(t, "c", 0)
		e.connect(t, a, b, entities.EdgeTypeDependency)
		e.connect(t, b, c, entities.EdgeTypeDependency)

		_, err := e.edges.Create(ctx, e.session.ID(), c.ID(), a.ID(), entities.EdgeTypeDependency, services.CreateEdgeInput{})
		require.ErrorIs(t, err, pkgerrors.ErrCycleDetected)

		edges, err := e.edges.List(ctx, e.session.ID(), ports.EdgeFilter{})
		require.NoError(t, err)
		assert.Len(t, edges, 2)
	})

	t.Run("association cycles are permitted", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)
		b := e.task(t, "b", 0)
		e.connect(t, a, b, entities.EdgeTypeAssociation)
		e.connect(t, b, a, entities.EdgeTypeAssociation)
	})

	t.Run("rejects unknown endpoints", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)

		_, err := e.edges.Create(ctx, e.session.ID(), a.ID(), valueobjects.NewNodeID(), entities.EdgeTypeDependency, services.CreateEdgeInput{})
		assert.ErrorIs(t, err, pkgerrors.ErrNodeNotFound)
	})

	t.Run("concurrent jointly-cyclic inserts cannot both land", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			e := newEnv(t)
			a := e.task(t, "a", 0)
			b := e.task(t, "b", 0)

			var wg sync.WaitGroup
			errs := make([]error, 2)
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, errs[0] = e.edges.Create(ctx, e.session.ID(), a.ID(), b.ID(), entities.EdgeTypeDependency, services.CreateEdgeInput{})
			}()
			go func() {
				defer wg.Done()
				_, errs[1] = e.edges.Create(ctx, e.session.ID(), b.ID(), a.ID(), entities.EdgeTypeDependency, services.CreateEdgeInput{})
			}()
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
				} else {
					require.ErrorIs(t, err, pkgerrors.ErrCycleDetected)
				}
			}
			assert.Equal(t, 1, succeeded)
		}
	})
}

func TestDeletionReparenting(t *testing.T) {
	ctx := context.Background()

	t.Run("bridges matching-type chains", func(t *testing.T) {
		e := newEnv(t)
		p := e.task(t, "parent", 0)
		n := e.task(t, "middle", 0)
		c := e.task(t, "child", 0)
		e.connect(t, p, n, entities.EdgeTypeHierarchy)
		e.connect(t, n, c, entities.EdgeTypeHierarchy)

		reparented, err := e.lifecycle.DeleteNode(ctx, e.session.ID(), n.ID())
		require.NoError(t, err)
		assert.Equal(t, 1, reparented)

		edges, err := e.edges.List(ctx, e.session.ID(), ports.EdgeFilter{})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, p.ID().String(), edges[0].SourceID().String())
		assert.Equal(t, c.ID().String(), edges[0].TargetID().String())
		assert.Equal(t, entities.EdgeTypeHierarchy, edges[0].Type())

		_, err = e.nodes.Get(ctx, e.session.ID(), n.ID())
		assert.ErrorIs(t, err, pkgerrors.ErrNodeNotFound)
	})

	t.Run("pre-existing bridge is left untouched", func(t *testing.T) {
		e := newEnv(t)
		p := e.task(t, "parent", 0)
		n := e.task(t, "middle", 0)
		c := e.task(t, "child", 0)
		e.connect(t, p, n, entities.EdgeTypeHierarchy)
		e.connect(t, n, c, entities.EdgeTypeHierarchy)
		existing := e.connect(t, p, c, entities.EdgeTypeHierarchy)

		reparented, err := e.lifecycle.DeleteNode(ctx, e.session.ID(), n.ID())
		require.NoError(t, err)
		assert.Equal(t, 0, reparented)

		edges, err := e.edges.List(ctx, e.session.ID(), ports.EdgeFilter{})
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, existing.ID().String(), edges[0].ID().String())
	})

	t.Run("never bridges mismatched types", func(t *testing.T) {
		e := newEnv(t)
		p := e.task(t, "parent", 0)
		n := e.task(t, "middle", 0)
		c := e.task(t, "child", 0)
		e.connect(t, p, n, entities.EdgeTypeHierarchy)
		e.connect(t, n, c, entities.EdgeTypeDependency)

		reparented, err := e.lifecycle.DeleteNode(ctx, e.session.ID(), n.ID())
		require.NoError(t, err)
		assert.Equal(t, 0, reparented)

		edges, err := e.edges.List(ctx, e.session.ID(), ports.EdgeFilter{})
		require.NoError(t, err)
		assert.Empty(t, edges)
	})

	t.Run("dependency chains stay connected", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)
		n := e.task(t, "n", 0)
		b := e.task(t, "b", 0)
		e.connect(t, a, n, entities.EdgeTypeDependency)
		e.connect(t, n, b, entities.EdgeTypeDependency)

		reparented, err := e.lifecycle.DeleteNode(ctx, e.session.ID(), n.ID())
		require.NoError(t, err)
		assert.Equal(t, 1, reparented)

		// completing b still requires a
		_, err = e.lifecycle.SetNodeStatus(ctx, e.session.ID(), b.ID(), entities.StatusCompleted)
		assert.ErrorIs(t, err, pkgerrors.ErrUnmetDependencies)
	})
}

func TestBlitzCoordination(t *testing.T) {
	ctx := context.Background()

	t.Run("single active blitz per session", func(t *testing.T) {
		e := newEnv(t)
		a := e.task(t, "a", 0)

		first, err := e.blitzes.Create(ctx, e.session.ID(), "sprint one", []valueobjects.NodeID{a.ID()}, nil)
		require.NoError(t, err)
		second, err := e.blitzes.Create(ctx, e.session.ID(), "sprint two", nil, nil)
		require.NoError(t, err)

		activated, err := e.blitzes.Activate(ctx, e.session.ID(), first.ID())
		require.NoError(t, err)
		assert.NotNil(t, activated.StartedAt())

		_, err = e.blitzes.Activate(ctx, e.session.ID(), second.ID())
		require.ErrorIs(t, err, pkgerrors.ErrBlitzAlreadyActive)

		de := pkgerrors.AsDomainError(err)
		require.NotNil(t, de)
		assert.Equal(t, first.ID().String(), de.Details["active_blitz_id"])
	})

	t.Run("sessions are independent", func(t *testing.T) {
		e := newEnv(t)
		other, err := e.sessions.Create(ctx, "owner-2", "Other", nil)
		require.NoError(t, err)

		b1, err := e.blitzes.Create(ctx, e.session.ID(), "here", nil, nil)
		require.NoError(t, err)
		b2, err := e.blitzes.Create(ctx, other.ID(), "there", nil, nil)
		require.NoError(t, err)

		_, err = e.blitzes.Activate(ctx, e.session.ID(), b1.ID())
		require.NoError(t, err)
		_, err = e.blitzes.Activate(ctx, other.ID(), b2.ID())
		require.NoError(t, err)
	})

	t.Run("finish stamps completion and frees the slot", func(t *testing.T) {
		e := newEnv(t)
		b1, err := e.blitzes.Create(ctx, e.session.ID(), "first", nil, nil)
		require.NoError(t, err)
		b2, err := e.blitzes.Create(ctx, e.session.ID(), "second", nil, nil)
		require.NoError(t, err)

		_, err = e.blitzes.Activate(ctx, e.session.ID(), b1.ID())
		require.NoError(t, err)

		finished, err := e.blitzes.Finish(ctx, e.session.ID(), b1.ID(), entities.BlitzOutcomeCompleted, map[string]interface{}{"notes": "done"})
		require.NoError(t, err)
		assert.Equal(t, entities.BlitzStatusCompleted, finished.Status())
		assert.NotNil(t, finished.CompletedAt())

		_, err = e.blitzes.Activate(ctx, e.session.ID(), b2.ID())
		require.NoError(t, err)
	})

	t.Run("finishing an inactive blitz fails", func(t *testing.T) {
		e := newEnv(t)
		b, err := e.blitzes.Create(ctx, e.session.ID(), "planned", nil, nil)
		require.NoError(t, err)

		_, err = e.blitzes.Finish(ctx, e.session.ID(), b.ID(), entities.BlitzOutcomeAbandoned, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrBlitzNotActive)
	})

	t.Run("concurrent activations elect exactly one winner", func(t *testing.T) {
		e := newEnv(t)

		const contenders = 8
		ids := make([]valueobjects.BlitzID, contenders)
		for i := range ids {
			b, err := e.blitzes.Create(ctx, e.session.ID(), "contender", nil, nil)
			require.NoError(t, err)
			ids[i] = b.ID()
		}

		var wg sync.WaitGroup
		errs := make([]error, contenders)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = e.blitzes.Activate(ctx, e.session.ID(), ids[i])
			}(i)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			if err == nil {
				winners++
			} else {
				require.ErrorIs(t, err, pkgerrors.ErrBlitzAlreadyActive)
			}
		}
		assert.Equal(t, 1, winners)
	})
}

func TestScoredListing(t *testing.T) {
	ctx := context.Background()

	t.Run("boosts active blitz members", func(t *testing.T) {
		e := newEnv(t)
		// priority 1, two outgoing edges, one incoming dependency: base 6
		a := e.task(t, "hub", 1)
		b := e.task(t, "b", 0)
		c := e.task(t, "c", 0)
		p := e.task(t, "p", 0)
		e.connect(t, a, b, entities.EdgeTypeDependency)
		e.connect(t, a, c, entities.EdgeTypeAssociation)
		e.connect(t, p, a, entities.EdgeTypeDependency)

		blitz, err := e.blitzes.Create(ctx, e.session.ID(), "focus", []valueobjects.NodeID{a.ID()}, nil)
		require.NoError(t, err)

		results, err := e.scoring.ListScoredNodes(ctx, e.session.ID(), nil)
		require.NoError(t, err)
		base := findScore(t, results, a.ID().String())
		assert.Equal(t, 6.0, base.Final)
		assert.False(t, base.InBlitz)

		_, err = e.blitzes.Activate(ctx, e.session.ID(), blitz.ID())
		require.NoError(t, err)

		results, err = e.scoring.ListScoredNodes(ctx, e.session.ID(), nil)
		require.NoError(t, err)
		boosted := findScore(t, results, a.ID().String())
		assert.Equal(t, 12.0, boosted.Final)
		assert.True(t, boosted.InBlitz)
	})

	t.Run("ranking is reproducible", func(t *testing.T) {
		e := newEnv(t)
		for i := 0; i < 6; i++ {
			e.task(t, "same", 2)
		}

		first, err := e.scoring.ListScoredNodes(ctx, e.session.ID(), nil)
		require.NoError(t, err)
		second, err := e.scoring.ListScoredNodes(ctx, e.session.ID(), nil)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("rejects bad multipliers", func(t *testing.T) {
		e := newEnv(t)
		bad := -1.0
		_, err := e.scoring.ListScoredNodes(ctx, e.session.ID(), &bad)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidMultiplier)
	})
}

func TestSubtree(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the downstream closure with its edges", func(t *testing.T) {
		e := newEnv(t)
		root := e.task(t, "root", 0)
		mid := e.task(t, "mid", 0)
		leaf := e.task(t, "leaf", 0)
		outside := e.task(t, "outside", 0)
		e.connect(t, root, mid, entities.EdgeTypeHierarchy)
		e.connect(t, mid, leaf, entities.EdgeTypeDependency)
		e.connect(t, outside, root, entities.EdgeTypeAssociation)

		subtree, err := e.scoring.GetSubtree(ctx, e.session.ID(), root.ID(), nil)
		require.NoError(t, err)
		assert.Equal(t, root.ID().String(), subtree.Root.ID().String())
		require.Len(t, subtree.Descendants, 2)
		assert.Len(t, subtree.Edges, 2)
	})

	t.Run("edge order is creation order on every call", func(t *testing.T) {
		e := newEnv(t)
		root := e.task(t, "root", 0)
		var wantIDs []string
		for _, label := range []string{"a", "b", "c", "d", "e"} {
			child := e.task(t, label, 0)
			edge := e.connect(t, root, child, entities.EdgeTypeDependency)
			wantIDs = append(wantIDs, edge.ID().String())
		}

		for i := 0; i < 3; i++ {
			subtree, err := e.scoring.GetSubtree(ctx, e.session.ID(), root.ID(), nil)
			require.NoError(t, err)
			gotIDs := make([]string, 0, len(subtree.Edges))
			for _, edge := range subtree.Edges {
				gotIDs = append(gotIDs, edge.ID().String())
			}
			assert.Equal(t, wantIDs, gotIDs)
		}
	})

	t.Run("honors the depth limit", func(t *testing.T) {
		e := newEnv(t)
		root := e.task(t, "root", 0)
		mid := e.task(t, "mid", 0)
		leaf := e.task(t, "leaf", 0)
		e.connect(t, root, mid, entities.EdgeTypeHierarchy)
		e.connect(t, mid, leaf, entities.EdgeTypeHierarchy)

		depth := 1
		subtree, err := e.scoring.GetSubtree(ctx, e.session.ID(), root.ID(), &depth)
		require.NoError(t, err)
		require.Len(t, subtree.Descendants, 1)
		assert.Equal(t, mid.ID().String(), subtree.Descendants[0].Node.ID().String())
	})

	t.Run("unknown root", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.scoring.GetSubtree(ctx, e.session.ID(), valueobjects.NewNodeID(), nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNodeNotFound)
	})
}

func TestSessionGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("archived sessions reject mutations", func(t *testing.T) {
		e := newEnv(t)
		archived := entities.SessionStatusArchived
		_, err := e.sessions.Update(ctx, e.session.ID(), services.SessionUpdateInput{Status: &archived})
		require.NoError(t, err)

		_, err = e.nodes.Create(ctx, e.session.ID(), services.CreateNodeInput{
			Type:  entities.NodeTypeTask,
			Label: "late",
		})
		assert.ErrorIs(t, err, pkgerrors.ErrSessionArchived)
	})

	t.Run("unknown session", func(t *testing.T) {
		e := newEnv(t)
		_, err := e.nodes.Create(ctx, valueobjects.NewSessionID(), services.CreateNodeInput{
			Type:  entities.NodeTypeTask,
			Label: "orphan",
		})
		assert.ErrorIs(t, err, pkgerrors.ErrSessionNotFound)
	})
}

func findScore(t *testing.T, results []graph.ScoreResult, id string) graph.ScoreResult {
	t.Helper()
	for _, r := range results {
		if r.NodeID == id {
			return r
		}
	}
	t.Fatalf("node %s not found in results", id)
	return graph.ScoreResult{}
}
