// Package ports defines the interfaces between the application core and its
// collaborators. The application depends on these abstractions only; the
// infrastructure layer provides the concrete implementations.
package ports

import (
	"context"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// ProjectRepository is the persistence collaborator for project documents.
// The wire format belongs to the implementation; the application only ever
// hands it deep-copied snapshots.
type ProjectRepository interface {
	// GetProject loads a project's metadata, sources, and outline sections.
	GetProject(ctx context.Context, projectID string) (*research.ProjectDocument, error)

	// PutSources replaces the persisted source pool for a project.
	PutSources(ctx context.Context, projectID string, sources []research.SourceRecord) error

	// PutOutline replaces the persisted outline sections for a project.
	PutOutline(ctx context.Context, projectID string, sections []research.OutlineSection) error

	// CreateProject persists a newly created project.
	CreateProject(ctx context.Context, project research.Project) error

	// DeleteProject removes a project and everything it holds.
	DeleteProject(ctx context.Context, projectID string) error

	// ListProjects returns project metadata for the workspace picker,
	// most recently updated first.
	ListProjects(ctx context.Context) ([]research.Project, error)
}
