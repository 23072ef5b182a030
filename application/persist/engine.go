package persist

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// Scheduler keys: one pending write per store, regardless of project. The
// captured project id travels inside the closure.
const (
	keySources = "sources"
	keyOutline = "outline"
)

// Guard answers whether a project id captured earlier is still current.
// Every deferred write re-validates through it at fire time; the session
// controller is the single arbiter behind it.
type Guard interface {
	CurrentID() string
	IsStale(capturedID string) bool
}

// Engine batches store mutations into debounced backend writes. Both the
// snapshot and the project id are captured at schedule time; staleness is
// validated at fire time. That closes the race where a save scheduled under
// project A fires after the user switched to project B, without any
// coordination beyond the guard.
type Engine struct {
	scheduler    *Scheduler
	repo         ports.ProjectRepository
	bus          ports.EventBus
	guard        Guard
	logger       *zap.Logger
	writeTimeout time.Duration
}

// NewEngine creates a persistence engine with the given debounce window.
func NewEngine(guard Guard, repo ports.ProjectRepository, bus ports.EventBus, delay time.Duration, logger *zap.Logger) *Engine {
	return &Engine{
		scheduler:    NewScheduler(delay),
		repo:         repo,
		bus:          bus,
		guard:        guard,
		logger:       logger,
		writeTimeout: 15 * time.Second,
	}
}

// ScheduleSources captures the source snapshot under projectID and arms the
// debounced write. A later call within the window supersedes this one.
func (e *Engine) ScheduleSources(projectID string, snapshot []research.SourceRecord) {
	if projectID == research.ProjectNone {
		return
	}
	e.scheduler.Schedule(keySources, func() {
		e.flushSources(projectID, snapshot)
	})
}

// ScheduleOutline captures the outline snapshot under projectID and arms the
// debounced write.
func (e *Engine) ScheduleOutline(projectID string, snapshot []research.OutlineSection) {
	if projectID == research.ProjectNone {
		return
	}
	e.scheduler.Schedule(keyOutline, func() {
		e.flushOutline(projectID, snapshot)
	})
}

// CancelAll drops every pending write. Called on project switch so nothing
// scheduled under the previous project can fire afterwards; the fire-time
// staleness check backstops the inherent cancel race.
func (e *Engine) CancelAll() {
	e.scheduler.CancelAll()
}

// PendingSources reports whether a sources write is armed. Test hook.
func (e *Engine) PendingSources() bool { return e.scheduler.Pending(keySources) }

// PendingOutline reports whether an outline write is armed. Test hook.
func (e *Engine) PendingOutline() bool { return e.scheduler.Pending(keyOutline) }

func (e *Engine) flushSources(projectID string, snapshot []research.SourceRecord) {
	if e.guard.IsStale(projectID) {
		e.logger.Debug("discarding stale sources write",
			zap.String("capturedProjectID", projectID),
			zap.String("currentProjectID", e.guard.CurrentID()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()

	if err := e.repo.PutSources(ctx, projectID, snapshot); err != nil {
		e.logger.Warn("sources write failed",
			zap.String("projectID", projectID),
			zap.Int("count", len(snapshot)),
			zap.Error(err),
		)
		// Surface as a dismissible notification. No automatic retry: the
		// next mutation reschedules a fresh attempt with fresher state.
		e.bus.Publish(ctx, events.NewSaveFailed(projectID, events.StoreSources, err.Error()))
		return
	}

	e.logger.Debug("sources write flushed",
		zap.String("projectID", projectID),
		zap.Int("count", len(snapshot)),
	)
}

func (e *Engine) flushOutline(projectID string, snapshot []research.OutlineSection) {
	if e.guard.IsStale(projectID) {
		e.logger.Debug("discarding stale outline write",
			zap.String("capturedProjectID", projectID),
			zap.String("currentProjectID", e.guard.CurrentID()),
		)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
	defer cancel()

	if err := e.repo.PutOutline(ctx, projectID, snapshot); err != nil {
		e.logger.Warn("outline write failed",
			zap.String("projectID", projectID),
			zap.Int("sections", len(snapshot)),
			zap.Error(err),
		)
		e.bus.Publish(ctx, events.NewSaveFailed(projectID, events.StoreOutline, err.Error()))
		return
	}

	e.logger.Debug("outline write flushed",
		zap.String("projectID", projectID),
		zap.Int("sections", len(snapshot)),
	)
}
