package memory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowboard/application/ports"
	"flowboard/domain/core/entities"
	"flowboard/domain/core/valueobjects"
	"flowboard/infrastructure/persistence/memory"
	pkgerrors "flowboard/pkg/errors"
)

func seedSession(t *testing.T, store *memory.Store) *entities.Session {
	t.Helper()
	session, err := entities.NewSession("owner-1", "Planning")
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), session))
	return session
}

func seedNode(t *testing.T, store *memory.Store, sessionID valueobjects.SessionID, label string) *entities.Node {
	t.Helper()
	node, err := entities.NewNode(sessionID, entities.NodeTypeTask, label)
	require.NoError(t, err)
	require.NoError(t, store.NodeStore().Save(context.Background(), node))
	return node
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)

	got, err := store.GetByID(ctx, session.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.ID(), got.ID())
	assert.Equal(t, "owner-1", got.OwnerID())

	missing, err := store.GetByID(ctx, valueobjects.NewSessionID())
	require.NoError(t, err)
	assert.Nil(t, missing)

	owned, err := store.GetByOwnerID(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestSessionDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)
	node := seedNode(t, store, session.ID(), "only")

	require.NoError(t, store.Delete(ctx, session.ID()))

	got, err := store.NodeStore().GetByID(ctx, session.ID(), node.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReadsAreIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)
	node := seedNode(t, store, session.ID(), "original")

	// Mutating what Save received must not leak into the store
	node.MergeMetadata(map[string]interface{}{"leaked": true})

	first, err := store.NodeStore().GetByID(ctx, session.ID(), node.ID())
	require.NoError(t, err)
	assert.Empty(t, first.Metadata())

	// Mutating what a read returned must not leak either
	first.MergeMetadata(map[string]interface{}{"leaked": true})

	second, err := store.NodeStore().GetByID(ctx, session.ID(), node.ID())
	require.NoError(t, err)
	assert.Empty(t, second.Metadata())
}

func TestNodeSaveRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)
	node := seedNode(t, store, session.ID(), "shared")

	// Two writers read the same version; the first to bump and save wins
	stale, err := store.NodeStore().GetByID(ctx, session.ID(), node.ID())
	require.NoError(t, err)

	winner, err := store.NodeStore().GetByID(ctx, session.ID(), node.ID())
	require.NoError(t, err)
	require.NoError(t, winner.UpdateLabel("renamed by winner"))
	require.NoError(t, store.NodeStore().Save(ctx, winner))

	require.NoError(t, stale.UpdateLabel("renamed by loser"))
	err = store.NodeStore().Save(ctx, stale)
	require.ErrorIs(t, err, pkgerrors.ErrConcurrentModification)

	// The loser re-reads and retries at the fresh version
	fresh, err := store.NodeStore().GetByID(ctx, session.ID(), node.ID())
	require.NoError(t, err)
	assert.Equal(t, "renamed by winner", fresh.Label())
	require.NoError(t, fresh.UpdateLabel("renamed by loser"))
	require.NoError(t, store.NodeStore().Save(ctx, fresh))
}

func TestEdgeSaveRejectsForeignEndpoints(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	home := seedSession(t, store)
	away := seedSession(t, store)
	local := seedNode(t, store, home.ID(), "local")
	foreign := seedNode(t, store, away.ID(), "foreign")

	crossing, err := entities.NewEdge(home.ID(), local.ID(), foreign.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	err = store.EdgeStore().Save(ctx, crossing)
	require.ErrorIs(t, err, pkgerrors.ErrCrossSessionReference)

	// An endpoint that exists nowhere is plain not-found
	ghost, err := entities.NewNode(home.ID(), entities.NodeTypeTask, "never saved")
	require.NoError(t, err)
	dangling, err := entities.NewEdge(home.ID(), local.ID(), ghost.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	err = store.EdgeStore().Save(ctx, dangling)
	require.ErrorIs(t, err, pkgerrors.ErrNodeNotFound)
}

func TestEdgePairUniqueness(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)
	a := seedNode(t, store, session.ID(), "a")
	b := seedNode(t, store, session.ID(), "b")

	first, err := entities.NewEdge(session.ID(), a.ID(), b.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	require.NoError(t, store.EdgeStore().Save(ctx, first))

	// Re-saving the same edge is an update, not a duplicate
	first.SetWeight(2.5)
	require.NoError(t, store.EdgeStore().Save(ctx, first))

	// A second edge over the same ordered pair is rejected even with a
	// different type
	dup, err := entities.NewEdge(session.ID(), a.ID(), b.ID(), entities.EdgeTypeAssociation)
	require.NoError(t, err)
	err = store.EdgeStore().Save(ctx, dup)
	require.ErrorIs(t, err, pkgerrors.ErrDuplicateEdge)

	// The reverse direction is a distinct pair
	reverse, err := entities.NewEdge(session.ID(), b.ID(), a.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	require.NoError(t, store.EdgeStore().Save(ctx, reverse))

	// Deleting frees the pair slot
	require.NoError(t, store.EdgeStore().Delete(ctx, session.ID(), first.ID()))
	require.NoError(t, store.EdgeStore().Save(ctx, dup))
}

func TestNodeDeleteCascadesIncidentEdges(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)
	a := seedNode(t, store, session.ID(), "a")
	b := seedNode(t, store, session.ID(), "b")
	c := seedNode(t, store, session.ID(), "c")

	ab, err := entities.NewEdge(session.ID(), a.ID(), b.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	require.NoError(t, store.EdgeStore().Save(ctx, ab))
	bc, err := entities.NewEdge(session.ID(), b.ID(), c.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	require.NoError(t, store.EdgeStore().Save(ctx, bc))

	require.NoError(t, store.NodeStore().Delete(ctx, session.ID(), b.ID()))

	remaining, err := store.EdgeStore().ListBySession(ctx, session.ID(), ports.EdgeFilter{})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// The pair slots were released with the edges
	again, err := entities.NewEdge(session.ID(), a.ID(), c.ID(), entities.EdgeTypeDependency)
	require.NoError(t, err)
	require.NoError(t, store.EdgeStore().Save(ctx, again))
}

func TestActiveBlitzBackstop(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)

	first, err := entities.NewBlitz(session.ID(), "sprint one", nil)
	require.NoError(t, err)
	require.NoError(t, first.Activate())
	require.NoError(t, store.BlitzStore().Save(ctx, first))

	second, err := entities.NewBlitz(session.ID(), "sprint two", nil)
	require.NoError(t, err)
	require.NoError(t, second.Activate())
	err = store.BlitzStore().Save(ctx, second)
	require.ErrorIs(t, err, pkgerrors.ErrBlitzAlreadyActive)

	active, err := store.BlitzStore().GetActive(ctx, session.ID())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.ID(), active.ID())

	// Finishing the holder frees the slot
	require.NoError(t, first.Finish(entities.BlitzOutcomeCompleted, nil))
	require.NoError(t, store.BlitzStore().Save(ctx, first))
	require.NoError(t, store.BlitzStore().Save(ctx, second))
}

func TestSessionLockSerializes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	session := seedSession(t, store)

	var inside, maxInside int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithSessionLock(ctx, session.ID(), func(ctx context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
}

func TestSessionLockHonorsContext(t *testing.T) {
	store := memory.NewStore()
	session := seedSession(t, store)

	release := make(chan struct{})
	held := make(chan struct{})
	go func() {
		_ = store.WithSessionLock(context.Background(), session.ID(), func(ctx context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := store.WithSessionLock(ctx, session.ID(), func(ctx context.Context) error { return nil })
	require.ErrorIs(t, err, pkgerrors.ErrSessionLockTimeout)
}
