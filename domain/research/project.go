package research

import (
	"time"

	"github.com/google/uuid"
)

// ProjectNone is the sentinel "no active project" identifier.
const ProjectNone = ""

// Project identifies one research workspace. The identifier is opaque and
// stable for the project's lifetime.
type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewProject creates a project with a synthesized identifier.
func NewProject(title string) Project {
	now := time.Now()
	return Project{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ProjectDocument is the persisted shape of one project: its metadata plus
// the curated sources and outline sections.
type ProjectDocument struct {
	Project  Project          `json:"project"`
	Sources  []SourceRecord   `json:"sources"`
	Sections []OutlineSection `json:"sections"`
}

// Clone returns a deep copy of the document.
func (d ProjectDocument) Clone() ProjectDocument {
	return ProjectDocument{
		Project:  d.Project,
		Sources:  CloneSources(d.Sources),
		Sections: CloneSections(d.Sections),
	}
}
