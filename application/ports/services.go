package ports

import (
	"context"

	"github.com/relight14/micropaymentcrawler-sub002/domain/events"
	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// SuggestionProvider is the AI collaborator producing outline suggestions
// and source categorization. Behavior is opaque; callers own the staleness
// guard around every completion.
type SuggestionProvider interface {
	// SuggestOutline proposes section titles for a project's report.
	SuggestOutline(ctx context.Context, projectTitle string, sources []research.SourceRecord) ([]research.OutlineSuggestion, error)

	// CategorizeSource picks the section indices a source belongs under.
	// An empty result means no confident placement.
	CategorizeSource(ctx context.Context, title, excerpt string, sectionTitles []string) ([]int, error)
}

// EventHandler consumes one published event. Handlers must be idempotent
// against redundant notifications.
type EventHandler func(event events.Event)

// EventBus is the typed publish/subscribe channel decoupling the stores from
// rendering collaborators.
type EventBus interface {
	// Publish delivers the event to every subscriber of its kind.
	Publish(ctx context.Context, event events.Event)

	// Subscribe registers a handler for one event kind and returns the
	// function that removes it again.
	Subscribe(kind events.Kind, handler EventHandler) (unsubscribe func())
}
