// Package store holds the project-scoped working state: the deduplicated
// source pool and the outline sections. Stores never touch rendering or
// persistence themselves; the session controller coordinates both.
package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
)

// SourceStore holds the deduplicated set of sources for the active project.
// Identity is the composite key, not the raw identifier, so re-ingesting the
// same source under a fresh synthetic ID cannot create a duplicate.
type SourceStore struct {
	mu      sync.Mutex
	records []research.SourceRecord
	keys    map[string]int // composite key -> index into records
	logger  *zap.Logger
}

// NewSourceStore creates an empty source store.
func NewSourceStore(logger *zap.Logger) *SourceStore {
	return &SourceStore{
		records: []research.SourceRecord{},
		keys:    make(map[string]int),
		logger:  logger,
	}
}

// Merge folds incoming records into the pool and returns the records that
// were genuinely new, for downstream auto-categorization. Existing records
// win over incoming duplicates (first write wins), so a re-fetch can never
// clobber user-visible selection state. Calling Merge twice with the same
// input adds nothing the second time.
//
// Records with no usable identity are dropped and logged, never rejected:
// Merge runs inside best-effort network callbacks and must not fail them.
func (s *SourceStore) Merge(incoming []research.SourceRecord) []research.SourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := []research.SourceRecord{}
	for _, record := range incoming {
		key := record.CompositeKey()
		if key == "" {
			s.logger.Warn("dropping source record without usable identity",
				zap.String("id", record.ID),
			)
			continue
		}
		if _, exists := s.keys[key]; exists {
			continue
		}
		record.EnsureID()
		s.keys[key] = len(s.records)
		s.records = append(s.records, record)
		added = append(added, record)
	}

	return added
}

// Remove deletes a record by identifier. Reconciling outline sections that
// still reference the source is the caller's job; the stores are coupled
// but never mutate each other.
func (s *SourceStore) Remove(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, record := range s.records {
		if record.ID == sourceID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.reindex()
			return true
		}
	}
	return false
}

// ReplaceAll swaps in a project's persisted source set, deduplicating the
// input under the same composite-key rule as Merge.
func (s *SourceStore) ReplaceAll(records []research.SourceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deduped := research.DedupeSources(records)
	s.records = make([]research.SourceRecord, 0, len(deduped))
	for _, record := range deduped {
		record.EnsureID()
		s.records = append(s.records, record)
	}
	s.reindex()
}

// Snapshot returns a deep copy of the pool, safe to hand to the persistence
// engine while the live store keeps mutating.
func (s *SourceStore) Snapshot() []research.SourceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return research.CloneSources(s.records)
}

// Get returns a copy of the record with the given identifier.
func (s *SourceStore) Get(sourceID string) (research.SourceRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if record.ID == sourceID {
			return record, true
		}
	}
	return research.SourceRecord{}, false
}

// Len returns the number of records in the pool.
func (s *SourceStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// SetSelected toggles a source's selection state.
func (s *SourceStore) SetSelected(sourceID string, selected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == sourceID {
			s.records[i].Selected = selected
			return true
		}
	}
	return false
}

// MarkUnlocked records that a source's full text has been purchased.
func (s *SourceStore) MarkUnlocked(sourceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == sourceID {
			s.records[i].Unlocked = true
			return true
		}
	}
	return false
}

// reindex rebuilds the composite-key index. Callers hold the lock.
func (s *SourceStore) reindex() {
	s.keys = make(map[string]int, len(s.records))
	for i, record := range s.records {
		s.keys[record.CompositeKey()] = i
	}
}
