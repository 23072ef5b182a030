package persist

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/mocks"
	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/messaging"
)

// stubGuard is a switchable current-project guard.
type stubGuard struct {
	mu      sync.Mutex
	current string
}

func (g *stubGuard) CurrentID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current
}

func (g *stubGuard) IsStale(capturedID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return capturedID != g.current
}

func (g *stubGuard) switchTo(projectID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = projectID
}

func newTestEngine(t *testing.T, guard *stubGuard, repo *mocks.MockProjectRepository) (*Engine, *messaging.MemoryBus) {
	t.Helper()
	bus := messaging.NewMemoryBus(zap.NewNop())
	return NewEngine(guard, repo, bus, 15*time.Millisecond, zap.NewNop()), bus
}

func TestEngine_ScheduleSources(t *testing.T) {
	t.Run("a burst of mutations produces exactly one write with the final state", func(t *testing.T) {
		guard := &stubGuard{current: "p1"}
		repo := mocks.NewMockProjectRepository()
		engine, _ := newTestEngine(t, guard, repo)

		for i := 1; i <= 5; i++ {
			snapshot := make([]research.SourceRecord, i)
			for j := range snapshot {
				snapshot[j] = research.SourceRecord{ID: "s", Title: "T"}
			}
			engine.ScheduleSources("p1", snapshot)
		}

		require.Eventually(t, func() bool {
			return len(repo.SourceWrites()) > 0
		}, time.Second, time.Millisecond)

		time.Sleep(40 * time.Millisecond)
		writes := repo.SourceWrites()
		require.Len(t, writes, 1)
		assert.Equal(t, "p1", writes[0].ProjectID)
		assert.Len(t, writes[0].Sources, 5, "only the last scheduled snapshot lands")
	})

	t.Run("write scheduled under a stale project is discarded", func(t *testing.T) {
		guard := &stubGuard{current: "p1"}
		repo := mocks.NewMockProjectRepository()
		engine, _ := newTestEngine(t, guard, repo)

		engine.ScheduleSources("p1", []research.SourceRecord{{ID: "s1", Title: "A"}})
		guard.switchTo("p2")

		time.Sleep(60 * time.Millisecond)
		assert.Empty(t, repo.SourceWrites(), "stale write must never land")
	})

	t.Run("a stale discard does not disturb the next project's saves", func(t *testing.T) {
		guard := &stubGuard{current: "p1"}
		repo := mocks.NewMockProjectRepository()
		engine, _ := newTestEngine(t, guard, repo)

		engine.ScheduleSources("p1", []research.SourceRecord{{ID: "old", Title: "Old"}})
		guard.switchTo("p2")
		engine.ScheduleSources("p2", []research.SourceRecord{{ID: "new", Title: "New"}})

		require.Eventually(t, func() bool {
			return len(repo.SourceWritesFor("p2")) == 1
		}, time.Second, time.Millisecond)
		assert.Empty(t, repo.SourceWritesFor("p1"))
	})

	t.Run("empty project id schedules nothing", func(t *testing.T) {
		guard := &stubGuard{current: research.ProjectNone}
		repo := mocks.NewMockProjectRepository()
		engine, _ := newTestEngine(t, guard, repo)

		engine.ScheduleSources(research.ProjectNone, []research.SourceRecord{{ID: "s1", Title: "A"}})
		assert.False(t, engine.PendingSources())
	})
}

func TestEngine_ScheduleOutline(t *testing.T) {
	guard := &stubGuard{current: "p1"}
	repo := mocks.NewMockProjectRepository()
	engine, _ := newTestEngine(t, guard, repo)

	engine.ScheduleOutline("p1", []research.OutlineSection{{Title: "Background"}})

	require.Eventually(t, func() bool {
		return len(repo.OutlineWrites()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, "Background", repo.OutlineWrites()[0].Sections[0].Title)
}

func TestEngine_SourcesAndOutlineDebounceIndependently(t *testing.T) {
	guard := &stubGuard{current: "p1"}
	repo := mocks.NewMockProjectRepository()
	engine, _ := newTestEngine(t, guard, repo)

	engine.ScheduleSources("p1", []research.SourceRecord{{ID: "s1", Title: "A"}})
	engine.ScheduleOutline("p1", []research.OutlineSection{{Title: "Background"}})

	require.Eventually(t, func() bool {
		return len(repo.SourceWrites()) == 1 && len(repo.OutlineWrites()) == 1
	}, time.Second, time.Millisecond)
}

func TestEngine_CancelAll(t *testing.T) {
	guard := &stubGuard{current: "p1"}
	repo := mocks.NewMockProjectRepository()
	engine, _ := newTestEngine(t, guard, repo)

	engine.ScheduleSources("p1", []research.SourceRecord{{ID: "s1", Title: "A"}})
	engine.ScheduleOutline("p1", []research.OutlineSection{{Title: "Background"}})
	engine.CancelAll()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, repo.SourceWrites())
	assert.Empty(t, repo.OutlineWrites())
}

func TestEngine_WriteFailurePublishesSaveFailed(t *testing.T) {
	guard := &stubGuard{current: "p1"}
	repo := mocks.NewMockProjectRepository()
	repo.SetError("PutSources", errors.New("backend down"))
	engine, bus := newTestEngine(t, guard, repo)

	var (
		mu     sync.Mutex
		failed []events.SaveFailed
	)
	bus.Subscribe(events.KindSaveFailed, func(event events.Event) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, event.(events.SaveFailed))
	})

	engine.ScheduleSources("p1", []research.SourceRecord{{ID: "s1", Title: "A"}})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(failed) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, events.StoreSources, failed[0].Store)
	assert.Equal(t, "p1", failed[0].ProjectID())
	assert.Contains(t, failed[0].Reason, "backend down")

	// No retry: nothing further lands without a fresh mutation.
	assert.Empty(t, repo.SourceWrites())
}
