// Package integration exercises the full session stack end to end: switching
// projects while debounced writes and slow loads are in flight must never let
// one project's state land under another.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/mocks"
	"github.com/relight14/micropaymentcrawler-sub002/application/persist"
	"github.com/relight14/micropaymentcrawler-sub002/application/session"
	"github.com/relight14/micropaymentcrawler-sub002/application/store"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"

	"github.com/relight14/micropaymentcrawler-sub002/infrastructure/messaging"
)

const debounceWindow = 20 * time.Millisecond

func setupWorkspace(t *testing.T) (*session.Controller, *mocks.MockProjectRepository) {
	t.Helper()
	logger := zap.NewNop()
	repo := mocks.NewMockProjectRepository()
	bus := messaging.NewMemoryBus(logger)

	controller := session.NewController(repo, bus,
		store.NewSourceStore(logger),
		store.NewOutlineStore(logger),
		logger,
	)
	controller.SetEngine(persist.NewEngine(controller, repo, bus, debounceWindow, logger))

	repo.SeedProject(research.ProjectDocument{
		Project: research.Project{ID: "alpha", Title: "Alpha"},
		Sources: []research.SourceRecord{
			{ID: "alpha-s1", URL: "https://x.com/alpha", Title: "Alpha Source"},
		},
		Sections: []research.OutlineSection{{Title: "Background"}},
	})
	repo.SeedProject(research.ProjectDocument{
		Project:  research.Project{ID: "beta", Title: "Beta"},
		Sections: []research.OutlineSection{{Title: "Intro"}},
	})
	return controller, repo
}

func TestProjectSwitchRace_PendingWriteNeverLandsUnderNewProject(t *testing.T) {
	controller, repo := setupWorkspace(t)
	ctx := context.Background()

	_, err := controller.SwitchTo(ctx, "alpha")
	require.NoError(t, err)

	// Mutate alpha, then switch away before the debounce window elapses.
	added := controller.MergeSources(ctx, []research.SourceRecord{
		{URL: "https://x.com/fresh", Title: "Fresh Find"},
	})
	require.Len(t, added, 1)

	_, err = controller.SwitchTo(ctx, "beta")
	require.NoError(t, err)

	// Mutate beta too; its save must go through untouched.
	controller.MergeSources(ctx, []research.SourceRecord{
		{URL: "https://x.com/beta-only", Title: "Beta Find"},
	})

	require.Eventually(t, func() bool {
		return len(repo.SourceWritesFor("beta")) == 1
	}, time.Second, time.Millisecond)

	time.Sleep(3 * debounceWindow)
	assert.Empty(t, repo.SourceWritesFor("alpha"),
		"write scheduled under alpha must be cancelled by the switch")

	betaWrites := repo.SourceWritesFor("beta")
	require.Len(t, betaWrites, 1)
	for _, record := range betaWrites[0].Sources {
		assert.NotEqual(t, "Fresh Find", record.Title, "alpha's mutation must not leak into beta")
	}
}

func TestProjectSwitchRace_SlowLoadCannotOvertakeNewerSwitch(t *testing.T) {
	controller, repo := setupWorkspace(t)
	ctx := context.Background()

	release := repo.GateGet("alpha")
	errCh := make(chan error, 1)
	go func() {
		_, err := controller.SwitchTo(ctx, "alpha")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return controller.CurrentID() == "alpha"
	}, time.Second, time.Millisecond)

	_, err := controller.SwitchTo(ctx, "beta")
	require.NoError(t, err)

	release()
	assert.True(t, pkgerrors.IsStale(<-errCh))

	assert.Equal(t, "beta", controller.CurrentID())
	assert.Equal(t, []string{"Intro"}, controller.SectionTitles(),
		"the late alpha load must not replace beta's outline")
}

func TestProjectSwitchRace_MutationDuringLoadIsNeverPersisted(t *testing.T) {
	controller, repo := setupWorkspace(t)
	ctx := context.Background()

	_, err := controller.SwitchTo(ctx, "alpha")
	require.NoError(t, err)

	release := repo.GateGet("beta")
	done := make(chan error, 1)
	go func() {
		_, err := controller.SwitchTo(ctx, "beta")
		done <- err
	}()
	require.Eventually(t, func() bool {
		return controller.CurrentID() == "beta"
	}, time.Second, time.Millisecond)

	// The id points at beta while beta's fetch is still in flight. Anything
	// merged now has no settled project to belong to and must vanish.
	controller.MergeSources(ctx, []research.SourceRecord{
		{URL: "https://x.com/driveby", Title: "Drive-by Find"},
	})

	release()
	require.NoError(t, <-done)

	time.Sleep(3 * debounceWindow)
	for _, write := range repo.SourceWritesFor("beta") {
		for _, record := range write.Sources {
			assert.NotEqual(t, "Alpha Source", record.Title,
				"alpha's source persisted under beta: cross-project contamination")
			assert.NotEqual(t, "Drive-by Find", record.Title,
				"mid-load merge persisted under beta")
		}
	}
	assert.Empty(t, repo.SourceWritesFor("alpha"))
}

func TestProjectSwitchRace_BurstCoalescesToOneWrite(t *testing.T) {
	controller, repo := setupWorkspace(t)
	ctx := context.Background()

	_, err := controller.SwitchTo(ctx, "alpha")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		controller.SetSourceSelected(ctx, "alpha-s1", i%2 == 0)
	}

	require.Eventually(t, func() bool {
		return len(repo.SourceWritesFor("alpha")) > 0
	}, time.Second, time.Millisecond)
	time.Sleep(3 * debounceWindow)

	writes := repo.SourceWritesFor("alpha")
	require.Len(t, writes, 1, "five rapid mutations coalesce into one write")
	require.Len(t, writes[0].Sources, 1)
	assert.True(t, writes[0].Sources[0].Selected, "the final state is what persists")
}
