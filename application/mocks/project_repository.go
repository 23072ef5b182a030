// Package mocks provides in-memory collaborator fakes for unit and
// integration tests.
package mocks

import (
	"context"
	"sync"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

// SourceWrite records one PutSources call.
type SourceWrite struct {
	ProjectID string
	Sources   []research.SourceRecord
}

// OutlineWrite records one PutOutline call.
type OutlineWrite struct {
	ProjectID string
	Sections  []research.OutlineSection
}

// MockProjectRepository is an in-memory ports.ProjectRepository that records
// every write for assertions.
type MockProjectRepository struct {
	mu            sync.Mutex
	docs          map[string]*research.ProjectDocument
	errors        map[string]error
	gates         map[string]chan struct{}
	sourceWrites  []SourceWrite
	outlineWrites []OutlineWrite
}

// NewMockProjectRepository creates an empty mock repository.
func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{
		docs:   make(map[string]*research.ProjectDocument),
		errors: make(map[string]error),
		gates:  make(map[string]chan struct{}),
	}
}

// SeedProject installs a project document.
func (m *MockProjectRepository) SeedProject(doc research.ProjectDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := doc.Clone()
	m.docs[doc.Project.ID] = &cloned
}

// SetError makes the named method fail.
func (m *MockProjectRepository) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[method] = err
}

// GateGet makes GetProject for projectID block until the returned function
// is called, to simulate a slow fetch racing a project switch.
func (m *MockProjectRepository) GateGet(projectID string) (release func()) {
	gate := make(chan struct{})
	m.mu.Lock()
	m.gates[projectID] = gate
	m.mu.Unlock()
	return func() { close(gate) }
}

// GetProject returns the seeded document.
func (m *MockProjectRepository) GetProject(ctx context.Context, projectID string) (*research.ProjectDocument, error) {
	m.mu.Lock()
	gate := m.gates[projectID]
	err := m.errors["GetProject"]
	m.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[projectID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("project")
	}
	cloned := doc.Clone()
	return &cloned, nil
}

// PutSources records the write.
func (m *MockProjectRepository) PutSources(ctx context.Context, projectID string, sources []research.SourceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errors["PutSources"]; err != nil {
		return err
	}
	m.sourceWrites = append(m.sourceWrites, SourceWrite{
		ProjectID: projectID,
		Sources:   research.CloneSources(sources),
	})
	if doc, ok := m.docs[projectID]; ok {
		doc.Sources = research.CloneSources(sources)
	}
	return nil
}

// PutOutline records the write.
func (m *MockProjectRepository) PutOutline(ctx context.Context, projectID string, sections []research.OutlineSection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errors["PutOutline"]; err != nil {
		return err
	}
	m.outlineWrites = append(m.outlineWrites, OutlineWrite{
		ProjectID: projectID,
		Sections:  research.CloneSections(sections),
	})
	if doc, ok := m.docs[projectID]; ok {
		doc.Sections = research.CloneSections(sections)
	}
	return nil
}

// CreateProject stores a new empty document.
func (m *MockProjectRepository) CreateProject(ctx context.Context, project research.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errors["CreateProject"]; err != nil {
		return err
	}
	m.docs[project.ID] = &research.ProjectDocument{Project: project}
	return nil
}

// DeleteProject removes a document.
func (m *MockProjectRepository) DeleteProject(ctx context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errors["DeleteProject"]; err != nil {
		return err
	}
	delete(m.docs, projectID)
	return nil
}

// ListProjects returns all seeded project metadata.
func (m *MockProjectRepository) ListProjects(ctx context.Context) ([]research.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errors["ListProjects"]; err != nil {
		return nil, err
	}
	projects := make([]research.Project, 0, len(m.docs))
	for _, doc := range m.docs {
		projects = append(projects, doc.Project)
	}
	return projects, nil
}

// SourceWrites returns the recorded PutSources calls.
func (m *MockProjectRepository) SourceWrites() []SourceWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	writes := make([]SourceWrite, len(m.sourceWrites))
	copy(writes, m.sourceWrites)
	return writes
}

// OutlineWrites returns the recorded PutOutline calls.
func (m *MockProjectRepository) OutlineWrites() []OutlineWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	writes := make([]OutlineWrite, len(m.outlineWrites))
	copy(writes, m.outlineWrites)
	return writes
}

// SourceWritesFor returns recorded PutSources calls for one project.
func (m *MockProjectRepository) SourceWritesFor(projectID string) []SourceWrite {
	var writes []SourceWrite
	for _, write := range m.SourceWrites() {
		if write.ProjectID == projectID {
			writes = append(writes, write)
		}
	}
	return writes
}
