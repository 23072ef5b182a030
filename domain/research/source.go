package research

import (
	"github.com/google/uuid"
)

// excerptKeyLength is how many leading excerpt runes participate in the
// composite identity key. Raw identifiers can collide or be absent when the
// same source is re-ingested from a fresh search, so identity is derived
// from content instead.
const excerptKeyLength = 64

// Licensing describes how a source is unlocked for full-text use.
type Licensing struct {
	Protocol    string `json:"protocol"`
	UnlockPrice int64  `json:"unlock_price_cents"`
}

// SourceRecord represents one discovered research source.
type SourceRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Excerpt   string    `json:"excerpt"`
	Domain    string    `json:"domain"`
	Licensing Licensing `json:"licensing"`
	Unlocked  bool      `json:"unlocked"`
	Selected  bool      `json:"selected"`
}

// CompositeKey derives the deduplication identity for a source from its
// URL, title, and excerpt prefix. Returns the empty string when the record
// carries no usable identity at all.
func (s SourceRecord) CompositeKey() string {
	excerpt := s.Excerpt
	if runes := []rune(excerpt); len(runes) > excerptKeyLength {
		excerpt = string(runes[:excerptKeyLength])
	}
	if s.URL == "" && s.Title == "" && excerpt == "" {
		return ""
	}
	return s.URL + "|" + s.Title + "|" + excerpt
}

// HasIdentity reports whether the record carries enough data to be deduplicated.
func (s SourceRecord) HasIdentity() bool {
	return s.CompositeKey() != ""
}

// EnsureID assigns a locally synthesized identifier when the server did not
// provide one.
func (s *SourceRecord) EnsureID() {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
}

// CloneSources returns a deep copy of a source slice. Snapshots handed to
// the persistence engine must not alias live store state.
func CloneSources(records []SourceRecord) []SourceRecord {
	if records == nil {
		return nil
	}
	cloned := make([]SourceRecord, len(records))
	copy(cloned, records)
	return cloned
}

// DedupeSources collapses a slice to the first-seen record per composite
// key, preserving input order. Records without a usable key are dropped.
func DedupeSources(records []SourceRecord) []SourceRecord {
	seen := make(map[string]bool, len(records))
	result := make([]SourceRecord, 0, len(records))
	for _, record := range records {
		key := record.CompositeKey()
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, record)
	}
	return result
}
