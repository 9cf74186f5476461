package template

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedThenExtractRoundTrip(t *testing.T) {
	tmpl := Template{ID: "skill-a", Version: "2.1.0", Name: "Skill A"}
	md := "# My Skill\n\nSome content.\n"

	embedded, err := EmbedInSkill(md, tmpl, PositionTop, false)
	require.NoError(t, err)
	assert.True(t, HasMetadata(embedded))

	extracted, ok := ExtractFromSkill(embedded)
	require.True(t, ok)
	assert.Equal(t, tmpl.ID, extracted.ID)
	assert.Equal(t, tmpl.Version, extracted.Version)
}

func TestEmbedInSkillReplacesExistingMetaInPlace(t *testing.T) {
	original := Template{ID: "skill-a", Version: "1.0.0"}
	md, err := EmbedInSkill("# doc\n", original, PositionTop, false)
	require.NoError(t, err)

	updated := Template{ID: "skill-a", Version: "2.0.0"}
	reEmbedded, err := EmbedInSkill(md, updated, PositionTop, false)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(reEmbedded, "TEMPLATE_META"), "re-embedding must replace, not duplicate, the meta comment")

	extracted, ok := ExtractFromSkill(reEmbedded)
	require.True(t, ok)
	assert.Equal(t, "2.0.0", extracted.Version)
}

func TestRemoveFromSkillIsInverseOfEmbed(t *testing.T) {
	tmpl := Template{ID: "skill-a", Version: "1.0.0"}
	md := "# doc\n\nbody text\n"

	embedded, err := EmbedInSkill(md, tmpl, PositionBottom, false)
	require.NoError(t, err)

	removed := RemoveFromSkill(embedded)
	assert.Equal(t, strings.TrimRight(md, "\n"), strings.TrimRight(removed, "\n"))
}

func TestRemoveFromSkillNoOpWithoutMetadata(t *testing.T) {
	md := "# plain doc\n"
	assert.Equal(t, md, RemoveFromSkill(md))
}

func TestGetTemplateIdentifier(t *testing.T) {
	tmpl := Template{ID: "skill-a", Version: "1.2.3"}
	embedded, err := EmbedInSkill("# doc\n", tmpl, PositionTop, false)
	require.NoError(t, err)
	assert.Equal(t, "skill-a@1.2.3", GetTemplateIdentifier(embedded))
}

func TestHasMetadataFalseWhenAbsent(t *testing.T) {
	assert.False(t, HasMetadata("# nothing here\n"))
}
