package template

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRegisterAndGetTemplate(t *testing.T) {
	r := newTestRegistry(t)
	tmpl := Template{ID: "skill-a", Version: "1.0.0", Segments: []Segment{{Key: "summary"}}}

	require.NoError(t, r.RegisterTemplate(tmpl))

	got, ok, err := r.GetTemplate("skill-a", "1.0.0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, tmpl.ID, got.ID)
	assert.Equal(t, tmpl.Version, got.Version)
}

func TestGetTemplateMissingReturnsNotFound(t *testing.T) {
	r := newTestRegistry(t)
	_, ok, err := r.GetTemplate("nope", "1.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetTemplateLatestVersionWithoutExplicitVersion(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterTemplate(Template{ID: "skill-a", Version: "1.0.0", Segments: []Segment{{Key: "a"}}}))
	require.NoError(t, r.RegisterTemplate(Template{ID: "skill-a", Version: "1.2.0", Segments: []Segment{{Key: "a"}}}))
	require.NoError(t, r.RegisterTemplate(Template{ID: "skill-a", Version: "1.10.0", Segments: []Segment{{Key: "a"}}}))

	got, ok, err := r.GetTemplate("skill-a", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.10.0", got.Version, "numeric version comparison must not sort 1.10.0 before 1.2.0 lexically")
}

func TestRegisterTemplateRejectsMissingRequiredFields(t *testing.T) {
	r := newTestRegistry(t)
	err := r.RegisterTemplate(Template{})
	assert.Error(t, err)
}

func TestDeleteTemplateRemovesFromDiskAndCache(t *testing.T) {
	r := newTestRegistry(t)
	tmpl := Template{ID: "skill-a", Version: "1.0.0", Segments: []Segment{{Key: "a"}}}
	require.NoError(t, r.RegisterTemplate(tmpl))

	require.NoError(t, r.DeleteTemplate("skill-a", "1.0.0"))

	_, ok, err := r.GetTemplate("skill-a", "1.0.0")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListTemplatesReturnsEveryRegisteredVersion(t *testing.T) {
	r := newTestRegistry(t)
	require.NoError(t, r.RegisterTemplate(Template{ID: "a", Version: "1.0.0", Segments: []Segment{{Key: "k"}}}))
	require.NoError(t, r.RegisterTemplate(Template{ID: "b", Version: "1.0.0", Segments: []Segment{{Key: "k"}}}))

	infos, err := r.ListTemplates()
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}

func TestRegistryWithIndexRebuildsFromDiskOnFirstOpen(t *testing.T) {
	root := t.TempDir()
	r1, err := NewRegistryWithIndex(root, filepath.Join(root, "index.db"))
	require.NoError(t, err)
	require.NoError(t, r1.RegisterTemplate(Template{ID: "a", Version: "1.0.0", Segments: []Segment{{Key: "k"}}}))
	require.NoError(t, r1.Close())

	// re-opening with a fresh index path forces a rebuild-from-disk walk.
	r2, err := NewRegistryWithIndex(root, filepath.Join(root, "index2.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r2.Close() })

	infos, err := r2.ListTemplates()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].ID)
}

func TestCanonicalizeSkillName(t *testing.T) {
	cases := map[string]string{
		"My Skill Name!":  "my-skill-name",
		"  leading--dash": "leading-dash",
		"already-lower":   "already-lower",
		"中文 Skill":        "中文-skill",
	}
	for raw, want := range cases {
		assert.Equal(t, want, CanonicalizeSkillName(raw), "raw=%q", raw)
	}
}
