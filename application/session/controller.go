// Package session owns the notion of "active project". The controller is
// the single source of truth other components query before trusting their
// own captured identifiers, and the coordinator that turns store mutations
// into notifications and debounced writes.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/application/persist"
	"github.com/relight14/micropaymentcrawler-sub002/application/ports"
	"github.com/relight14/micropaymentcrawler-sub002/application/store"
	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

// State is the session lifecycle state.
type State string

const (
	StateNone    State = "NONE"
	StateLoading State = "LOADING"
	StateActive  State = "ACTIVE"
)

// Controller tracks the active project and mediates switching. SwitchTo is
// legal from every state; NONE is only reachable on logout or initial load.
// The controller implements persist.Guard, so every deferred write and AI
// completion validates against it before touching shared state.
type Controller struct {
	mu        sync.Mutex
	currentID string
	state     State
	project   research.Project

	sources *store.SourceStore
	outline *store.OutlineStore
	engine  *persist.Engine
	repo    ports.ProjectRepository
	bus     ports.EventBus
	logger  *zap.Logger
}

// NewController creates a session controller in the NONE state. The
// persistence engine is attached afterwards via SetEngine because the
// engine itself guards through the controller.
func NewController(
	repo ports.ProjectRepository,
	bus ports.EventBus,
	sources *store.SourceStore,
	outline *store.OutlineStore,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		currentID: research.ProjectNone,
		state:     StateNone,
		sources:   sources,
		outline:   outline,
		repo:      repo,
		bus:       bus,
		logger:    logger,
	}
}

// SetEngine attaches the debounced persistence engine.
func (c *Controller) SetEngine(engine *persist.Engine) {
	c.engine = engine
}

// CurrentID returns the active project id, or research.ProjectNone.
func (c *Controller) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// IsStale reports whether a previously captured project id no longer matches
// the active one. Every asynchronous continuation that spans a possible
// project switch must call this before applying its result.
func (c *Controller) IsStale(capturedID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return capturedID != c.currentID
}

// State returns the session lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Project returns the active project's metadata.
func (c *Controller) Project() research.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.project
}

// SwitchTo makes projectID the active project: pending writes for the
// previous project are cancelled, the stores are cleared immediately and
// reloaded from the backend, and a project-switched notification carries the
// previous and new ids.
//
// Claiming the id and clearing the stores happen under one lock acquisition:
// the previous project's records must never be readable under the new id,
// even for the duration of the fetch. Mutations arriving while the load is
// in flight are rejected (see activeProject).
//
// A fetch failure leaves the new id current (optimistic), so retries and
// subsequent local edits are not silently discarded; the caller decides
// whether to show an empty or degraded state.
func (c *Controller) SwitchTo(ctx context.Context, projectID string) (*research.ProjectDocument, error) {
	if projectID == research.ProjectNone {
		return nil, pkgerrors.NewValidationError("project id cannot be empty")
	}

	c.mu.Lock()
	previousID := c.currentID
	c.currentID = projectID
	c.state = StateLoading
	c.sources.ReplaceAll(nil)
	c.outline.SetSections(nil)
	c.mu.Unlock()

	c.engine.CancelAll()

	// Suspension point: anything may happen while the fetch is in flight,
	// including another SwitchTo.
	doc, err := c.repo.GetProject(ctx, projectID)

	if c.IsStale(projectID) {
		c.logger.Debug("discarding stale project load",
			zap.String("capturedProjectID", projectID),
			zap.String("currentProjectID", c.CurrentID()),
		)
		return nil, pkgerrors.NewStaleError(projectID, c.CurrentID())
	}

	if err != nil {
		c.logger.Warn("project load failed, staying on new project with empty state",
			zap.String("projectID", projectID),
			zap.Error(err),
		)
		c.adopt(research.Project{ID: projectID}, nil, nil)
		c.bus.Publish(ctx, events.NewProjectSwitched(previousID, projectID))
		return nil, err
	}

	c.adopt(doc.Project, doc.Sources, doc.Sections)
	c.bus.Publish(ctx, events.NewProjectSwitched(previousID, projectID))

	c.logger.Info("switched project",
		zap.String("previousProjectID", previousID),
		zap.String("projectID", projectID),
		zap.Int("sources", c.sources.Len()),
		zap.Int("sections", c.outline.Len()),
	)
	return doc, nil
}

// CreateProject persists a new project and makes it active with empty
// stores. No backend fetch is needed for a project that was just created.
func (c *Controller) CreateProject(ctx context.Context, title string) (research.Project, error) {
	project := research.NewProject(title)
	if err := c.repo.CreateProject(ctx, project); err != nil {
		return research.Project{}, err
	}

	c.mu.Lock()
	previousID := c.currentID
	c.currentID = project.ID
	c.state = StateLoading
	c.sources.ReplaceAll(nil)
	c.outline.SetSections(nil)
	c.mu.Unlock()

	c.engine.CancelAll()
	c.adopt(project, nil, nil)
	c.bus.Publish(ctx, events.NewProjectSwitched(previousID, project.ID))
	return project, nil
}

// DeleteProject removes a project from the backend. Deleting the active
// project resets the session to NONE.
func (c *Controller) DeleteProject(ctx context.Context, projectID string) error {
	if err := c.repo.DeleteProject(ctx, projectID); err != nil {
		return err
	}

	c.mu.Lock()
	wasActive := c.currentID == projectID
	previousID := c.currentID
	c.mu.Unlock()

	if wasActive {
		c.engine.CancelAll()
		c.mu.Lock()
		c.currentID = research.ProjectNone
		c.state = StateNone
		c.project = research.Project{}
		c.mu.Unlock()
		c.sources.ReplaceAll(nil)
		c.outline.SetSections(nil)
		c.bus.Publish(ctx, events.NewProjectSwitched(previousID, research.ProjectNone))
	}
	return nil
}

// Reset clears the session on logout.
func (c *Controller) Reset(ctx context.Context) {
	c.engine.CancelAll()

	c.mu.Lock()
	previousID := c.currentID
	c.currentID = research.ProjectNone
	c.state = StateNone
	c.project = research.Project{}
	c.mu.Unlock()

	c.sources.ReplaceAll(nil)
	c.outline.SetSections(nil)
	c.bus.Publish(ctx, events.NewProjectSwitched(previousID, research.ProjectNone))
}

// activeProject returns the project id mutations should be attributed to,
// or false when no settled project is active. Mutations during a load are
// rejected outright: the stores are mid-replacement, and attributing the
// mutation to the incoming id would persist one project's records under
// another's. The id is captured here, BEFORE the mutation, so a switch
// racing the mutation leaves the scheduled write stale rather than
// mislabeled.
func (c *Controller) activeProject() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return research.ProjectNone, false
	}
	return c.currentID, true
}

// MergeSources folds discovered sources into the pool and returns the
// genuinely new records. New records trigger a notification and a debounced
// save; a merge that adds nothing schedules nothing. Merges arriving while
// a project load is in flight are dropped.
func (c *Controller) MergeSources(ctx context.Context, incoming []research.SourceRecord) []research.SourceRecord {
	capturedID, ok := c.activeProject()
	if !ok {
		c.logger.Debug("dropping source merge without a settled project",
			zap.Int("count", len(incoming)),
		)
		return nil
	}

	added := c.sources.Merge(incoming)
	if len(added) > 0 {
		c.notifySources(ctx, capturedID)
	}
	return added
}

// RemoveSource drops a source from the pool and reconciles every outline
// section that still referenced it.
func (c *Controller) RemoveSource(ctx context.Context, sourceID string) bool {
	capturedID, ok := c.activeProject()
	if !ok {
		return false
	}

	if !c.sources.Remove(sourceID) {
		return false
	}
	c.notifySources(ctx, capturedID)

	if c.outline.RemoveSource(sourceID) > 0 {
		c.notifyOutline(ctx, capturedID)
	}
	return true
}

// SetSourceSelected toggles a source's selection state.
func (c *Controller) SetSourceSelected(ctx context.Context, sourceID string, selected bool) bool {
	capturedID, ok := c.activeProject()
	if !ok {
		return false
	}
	if !c.sources.SetSelected(sourceID, selected) {
		return false
	}
	c.notifySources(ctx, capturedID)
	return true
}

// MarkSourceUnlocked records a purchased source.
func (c *Controller) MarkSourceUnlocked(ctx context.Context, sourceID string) bool {
	capturedID, ok := c.activeProject()
	if !ok {
		return false
	}
	if !c.sources.MarkUnlocked(sourceID) {
		return false
	}
	c.notifySources(ctx, capturedID)
	return true
}

// SetSections replaces the outline wholesale. A replacement arriving while
// a project load is in flight is dropped.
func (c *Controller) SetSections(ctx context.Context, sections []research.OutlineSection) {
	capturedID, ok := c.activeProject()
	if !ok {
		return
	}
	c.outline.SetSections(sections)
	c.notifyOutline(ctx, capturedID)
}

// AddSourceToSection places a pooled source into a section. Placing a source
// that is already there is a no-op and reports false.
func (c *Controller) AddSourceToSection(ctx context.Context, sectionIndex int, sourceID string, origin research.OriginTag) (bool, error) {
	capturedID, ok := c.activeProject()
	if !ok {
		return false, pkgerrors.NewConflictError("no settled project to modify")
	}

	source, found := c.sources.Get(sourceID)
	if !found {
		return false, pkgerrors.NewNotFoundError("source")
	}
	if !c.outline.AddSource(sectionIndex, source, origin) {
		return false, nil
	}
	c.notifyOutline(ctx, capturedID)
	return true, nil
}

// MoveSection swaps a section with its neighbor. Out-of-bounds moves are
// no-ops, not errors.
func (c *Controller) MoveSection(ctx context.Context, index int, direction store.MoveDirection) bool {
	capturedID, ok := c.activeProject()
	if !ok {
		return false
	}
	if !c.outline.MoveSection(index, direction) {
		return false
	}
	c.notifyOutline(ctx, capturedID)
	return true
}

// ApplySuggestions regenerates the outline from AI suggestions without
// losing already-placed sources, then notifies and schedules persistence.
func (c *Controller) ApplySuggestions(ctx context.Context, suggestions []research.OutlineSuggestion) {
	capturedID, ok := c.activeProject()
	if !ok {
		return
	}
	held := c.outline.Regenerate(suggestions)
	// Sources extracted from the old outline stay in the pool too, in case
	// the pool was rebuilt from a sparser persisted set.
	c.sources.Merge(held)
	c.notifyOutline(ctx, capturedID)
}

// SourcesSnapshot returns a deep copy of the source pool for pull-based rendering.
func (c *Controller) SourcesSnapshot() []research.SourceRecord {
	return c.sources.Snapshot()
}

// OutlineSnapshot returns a deep copy of the outline for pull-based rendering.
func (c *Controller) OutlineSnapshot() []research.OutlineSection {
	return c.outline.Snapshot()
}

// SectionTitles returns the ordered outline section titles.
func (c *Controller) SectionTitles() []string {
	return c.outline.SectionTitles()
}

// ListProjects returns the workspace's projects from the backend.
func (c *Controller) ListProjects(ctx context.Context) ([]research.Project, error) {
	return c.repo.ListProjects(ctx)
}

// adopt installs a project and its artifacts as the active state. The pool
// is rebuilt from the persisted set plus everything the outline still
// references, so an outline-only document cannot lose sources on load.
func (c *Controller) adopt(project research.Project, sources []research.SourceRecord, sections []research.OutlineSection) {
	c.sources.ReplaceAll(sources)
	c.outline.SetSections(sections)
	c.sources.Merge(c.outline.ExtractAllSources())

	c.mu.Lock()
	c.project = project
	c.state = StateActive
	c.mu.Unlock()
}

// notifySources publishes the changed snapshot and schedules a debounced
// save. capturedID was taken before the mutation: if a switch lands between
// the mutation and the snapshot, capturedID is stale and the engine discards
// the write at fire time instead of persisting it under the wrong project.
func (c *Controller) notifySources(ctx context.Context, capturedID string) {
	snapshot := c.sources.Snapshot()
	c.bus.Publish(ctx, events.NewSourcesChanged(capturedID, snapshot))
	c.engine.ScheduleSources(capturedID, snapshot)
}

func (c *Controller) notifyOutline(ctx context.Context, capturedID string) {
	snapshot := c.outline.Snapshot()
	c.bus.Publish(ctx, events.NewOutlineChanged(capturedID, snapshot))
	c.engine.ScheduleOutline(capturedID, snapshot)
}
