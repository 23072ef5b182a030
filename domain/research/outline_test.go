package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutlineSection_HasSource(t *testing.T) {
	section := OutlineSection{
		Title: "Background",
		Sources: []SectionSource{
			{SourceRecord: SourceRecord{ID: "s1", Title: "A"}, Origin: OriginUser},
		},
	}

	assert.True(t, section.HasSource("s1"))
	assert.False(t, section.HasSource("s2"))
}

func TestCloneSections(t *testing.T) {
	t.Run("clone is independent of the original", func(t *testing.T) {
		original := []OutlineSection{
			{
				Title: "Background",
				Sources: []SectionSource{
					{SourceRecord: SourceRecord{ID: "s1", Title: "A"}, Origin: OriginUser},
				},
			},
		}

		cloned := CloneSections(original)
		cloned[0].Title = "Changed"
		cloned[0].Sources[0].Origin = OriginAuto

		assert.Equal(t, "Background", original[0].Title)
		assert.Equal(t, OriginUser, original[0].Sources[0].Origin)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, CloneSections(nil))
	})
}
