package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// MoveDirection names the two legal directions for moving a section.
type MoveDirection int

const (
	MoveUp   MoveDirection = -1
	MoveDown MoveDirection = 1
)

// OutlineStore holds the ordered sections and their source assignments for
// the active project. It must survive wholesale regeneration (an
// AI-suggested outline) without losing sources the user already placed;
// the Regenerate helper implements that contract.
type OutlineStore struct {
	mu       sync.Mutex
	sections []research.OutlineSection
	logger   *zap.Logger
}

// NewOutlineStore creates an empty outline store.
func NewOutlineStore(logger *zap.Logger) *OutlineStore {
	return &OutlineStore{
		sections: []research.OutlineSection{},
		logger:   logger,
	}
}

// SetSections replaces all sections wholesale, renormalizing positions.
// Used on initial load and by Regenerate.
func (o *OutlineStore) SetSections(sections []research.OutlineSection) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.sections = research.CloneSections(sections)
	o.renumber()
}

// AddSource inserts a source reference into a section unless it is already
// present, and reports whether an insertion occurred. A duplicate is a
// no-op, not an error.
func (o *OutlineStore) AddSource(sectionIndex int, source research.SourceRecord, origin research.OriginTag) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sectionIndex < 0 || sectionIndex >= len(o.sections) {
		o.logger.Debug("ignoring source placement into out-of-range section",
			zap.Int("sectionIndex", sectionIndex),
			zap.Int("sectionCount", len(o.sections)),
		)
		return false
	}
	if o.sections[sectionIndex].HasSource(source.ID) {
		return false
	}

	o.sections[sectionIndex].Sources = append(o.sections[sectionIndex].Sources, research.SectionSource{
		SourceRecord: source,
		Origin:       origin,
	})
	return true
}

// RemoveSource drops every reference to a source across all sections and
// returns how many references were removed. Used to reconcile the outline
// after the source pool forgets a record.
func (o *OutlineStore) RemoveSource(sourceID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	removed := 0
	for i := range o.sections {
		kept := o.sections[i].Sources[:0]
		for _, src := range o.sections[i].Sources {
			if src.ID == sourceID {
				removed++
				continue
			}
			kept = append(kept, src)
		}
		o.sections[i].Sources = kept
	}
	return removed
}

// MoveSection swaps a section with its neighbor in the given direction and
// renormalizes positions. Out-of-bounds moves are no-ops.
func (o *OutlineStore) MoveSection(index int, direction MoveDirection) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	target := index + int(direction)
	if index < 0 || index >= len(o.sections) || target < 0 || target >= len(o.sections) {
		return false
	}

	o.sections[index], o.sections[target] = o.sections[target], o.sections[index]
	o.renumber()
	return true
}

// ExtractAllSources flattens every section's source list into one
// deduplicated slice, in section-then-position order. The same
// composite-key rule applies as in the source pool.
func (o *OutlineStore) ExtractAllSources() []research.SourceRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.extractLocked()
}

// Regenerate replaces the outline with AI-suggested sections without losing
// any source the user has already placed: the previously held sources are
// captured first and redistributed into the first new section. Finer-grained
// re-categorization is a best-effort enhancement layered on top, not a
// correctness requirement.
func (o *OutlineStore) Regenerate(suggestions []research.OutlineSuggestion) []research.SourceRecord {
	o.mu.Lock()
	defer o.mu.Unlock()

	held := o.extractLocked()

	o.sections = make([]research.OutlineSection, len(suggestions))
	for i, suggestion := range suggestions {
		o.sections[i] = research.OutlineSection{
			Title:     suggestion.Title,
			Rationale: suggestion.Rationale,
			Position:  i,
			Sources:   []research.SectionSource{},
		}
	}

	if len(held) > 0 && len(o.sections) > 0 {
		for _, record := range held {
			o.sections[0].Sources = append(o.sections[0].Sources, research.SectionSource{
				SourceRecord: record,
				Origin:       research.OriginAuto,
			})
		}
	}

	return held
}

// Snapshot returns a deep copy of the sections for persistence.
func (o *OutlineStore) Snapshot() []research.OutlineSection {
	o.mu.Lock()
	defer o.mu.Unlock()
	return research.CloneSections(o.sections)
}

// SectionTitles returns the ordered section titles, used as categorization input.
func (o *OutlineStore) SectionTitles() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	titles := make([]string, len(o.sections))
	for i, section := range o.sections {
		titles[i] = section.Title
	}
	return titles
}

// Len returns the number of sections.
func (o *OutlineStore) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sections)
}

// extractLocked flattens and dedupes section sources. Callers hold the lock.
func (o *OutlineStore) extractLocked() []research.SourceRecord {
	flat := []research.SourceRecord{}
	for _, section := range o.sections {
		for _, src := range section.Sources {
			flat = append(flat, src.SourceRecord)
		}
	}
	return research.DedupeSources(flat)
}

// renumber rewrites position indices to match slice order. Callers hold the lock.
func (o *OutlineStore) renumber() {
	for i := range o.sections {
		o.sections[i].Position = i
	}
}
