package research

// OriginTag distinguishes user-placed source assignments from automatically
// categorized ones. It drives UI affordances only and never affects
// correctness.
type OriginTag string

const (
	OriginUser OriginTag = "user"
	OriginAuto OriginTag = "auto"
)

// SectionSource is a source reference held by an outline section.
type SectionSource struct {
	SourceRecord
	Origin OriginTag `json:"origin"`
}

// OutlineSection is one ordered entry of a report outline.
type OutlineSection struct {
	Title     string          `json:"title"`
	Rationale string          `json:"rationale,omitempty"`
	Position  int             `json:"position"`
	Sources   []SectionSource `json:"sources"`
}

// HasSource reports whether the section already references the given source ID.
func (s OutlineSection) HasSource(sourceID string) bool {
	for _, src := range s.Sources {
		if src.ID == sourceID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the section.
func (s OutlineSection) Clone() OutlineSection {
	cloned := s
	if s.Sources != nil {
		cloned.Sources = make([]SectionSource, len(s.Sources))
		copy(cloned.Sources, s.Sources)
	}
	return cloned
}

// CloneSections returns a deep copy of a section slice.
func CloneSections(sections []OutlineSection) []OutlineSection {
	if sections == nil {
		return nil
	}
	cloned := make([]OutlineSection, len(sections))
	for i, section := range sections {
		cloned[i] = section.Clone()
	}
	return cloned
}

// OutlineSuggestion is one AI-proposed section title with its rationale.
type OutlineSuggestion struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
}
