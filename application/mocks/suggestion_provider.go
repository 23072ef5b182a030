package mocks

import (
	"context"
	"sync"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// MockSuggestionProvider returns canned outline suggestions and section
// assignments.
type MockSuggestionProvider struct {
	mu          sync.Mutex
	suggestions []research.OutlineSuggestion
	suggestErr  error
	categories  []int
	categoryErr error
	suggestHook func()
	calls       int
}

// NewMockSuggestionProvider creates a provider that suggests nothing.
func NewMockSuggestionProvider() *MockSuggestionProvider {
	return &MockSuggestionProvider{}
}

// SetSuggestions installs the canned SuggestOutline response.
func (m *MockSuggestionProvider) SetSuggestions(suggestions []research.OutlineSuggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestions = suggestions
}

// SetSuggestError makes SuggestOutline fail.
func (m *MockSuggestionProvider) SetSuggestError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestErr = err
}

// SetCategories installs the canned CategorizeSource response.
func (m *MockSuggestionProvider) SetCategories(sectionIndices []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = sectionIndices
}

// SetCategorizeError makes CategorizeSource fail.
func (m *MockSuggestionProvider) SetCategorizeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categoryErr = err
}

// SetSuggestHook runs hook while SuggestOutline is in flight, to simulate a
// project switch racing a slow provider.
func (m *MockSuggestionProvider) SetSuggestHook(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suggestHook = hook
}

// SuggestOutline returns the canned suggestions.
func (m *MockSuggestionProvider) SuggestOutline(ctx context.Context, projectTitle string, sources []research.SourceRecord) ([]research.OutlineSuggestion, error) {
	m.mu.Lock()
	hook := m.suggestHook
	suggestions := m.suggestions
	err := m.suggestErr
	m.calls++
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// CategorizeSource returns the canned section indices.
func (m *MockSuggestionProvider) CategorizeSource(ctx context.Context, title, excerpt string, sectionTitles []string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.categoryErr != nil {
		return nil, m.categoryErr
	}
	return m.categories, nil
}

// Calls reports how many provider calls were made.
func (m *MockSuggestionProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
