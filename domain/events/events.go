// Package events defines the closed set of notification events that flow
// over the workspace bus. Rendering collaborators subscribe by kind and
// must stay idempotent against redundant delivery; no ordering is
// guaranteed between independently subscribed listeners.
package events

import (
	"time"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// Kind names one logical change channel.
type Kind string

const (
	KindProjectSwitched Kind = "project.switched"
	KindSourcesChanged  Kind = "sources.changed"
	KindOutlineChanged  Kind = "outline.changed"
	KindSaveFailed      Kind = "save.failed"
)

// StoreName identifies which store a persistence event concerns.
type StoreName string

const (
	StoreSources StoreName = "sources"
	StoreOutline StoreName = "outline"
)

// Event is the base interface for all workspace events.
type Event interface {
	EventKind() Kind
	ProjectID() string
	OccurredAt() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	Project   string    `json:"project_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) ProjectID() string     { return e.Project }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// ProjectSwitched is raised when the active project changes.
type ProjectSwitched struct {
	BaseEvent
	PreviousID string `json:"previous_id"`
	CurrentID  string `json:"current_id"`
}

func (ProjectSwitched) EventKind() Kind { return KindProjectSwitched }

// NewProjectSwitched creates a ProjectSwitched event.
func NewProjectSwitched(previousID, currentID string) ProjectSwitched {
	return ProjectSwitched{
		BaseEvent:  BaseEvent{Project: currentID, Timestamp: time.Now()},
		PreviousID: previousID,
		CurrentID:  currentID,
	}
}

// SourcesChanged is raised after any mutation of the source pool. It carries
// the current snapshot so pull-averse listeners can render directly.
type SourcesChanged struct {
	BaseEvent
	Sources []research.SourceRecord `json:"sources"`
}

func (SourcesChanged) EventKind() Kind { return KindSourcesChanged }

// NewSourcesChanged creates a SourcesChanged event.
func NewSourcesChanged(projectID string, sources []research.SourceRecord) SourcesChanged {
	return SourcesChanged{
		BaseEvent: BaseEvent{Project: projectID, Timestamp: time.Now()},
		Sources:   sources,
	}
}

// OutlineChanged is raised after any mutation of the outline sections.
type OutlineChanged struct {
	BaseEvent
	Sections []research.OutlineSection `json:"sections"`
}

func (OutlineChanged) EventKind() Kind { return KindOutlineChanged }

// NewOutlineChanged creates an OutlineChanged event.
func NewOutlineChanged(projectID string, sections []research.OutlineSection) OutlineChanged {
	return OutlineChanged{
		BaseEvent: BaseEvent{Project: projectID, Timestamp: time.Now()},
		Sections:  sections,
	}
}

// SaveFailed is raised when a non-stale persistence write fails. It is a
// transient, dismissible notification; the engine never retries on its own.
type SaveFailed struct {
	BaseEvent
	Store  StoreName `json:"store"`
	Reason string    `json:"reason"`
}

func (SaveFailed) EventKind() Kind { return KindSaveFailed }

// NewSaveFailed creates a SaveFailed event.
func NewSaveFailed(projectID string, store StoreName, reason string) SaveFailed {
	return SaveFailed{
		BaseEvent: BaseEvent{Project: projectID, Timestamp: time.Now()},
		Store:     store,
		Reason:    reason,
	}
}
