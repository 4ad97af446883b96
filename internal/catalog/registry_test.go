package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinCatalog(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	contacts := r.Contacts()
	require.Len(t, contacts, 3)
	assert.Equal(t, ContactEntry{ID: "1", Name: "Jane Smith", Title: "Chief Technology Officer"}, contacts[0])

	c, ok := r.Contact("3")
	assert.True(t, ok)
	assert.Equal(t, "Sarah Chen", c.Name)

	_, ok = r.Contact("99")
	assert.False(t, ok)

	assert.Len(t, r.FocusAreas(), 5)
}

func TestResolveFocusAreas(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	labels, err := r.ResolveFocusAreas([]string{"industry-trends", "Financial Health", "industry-trends"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Industry Trends", "Financial Health"}, labels)

	labels, err = r.ResolveFocusAreas(nil)
	require.NoError(t, err)
	assert.Empty(t, labels)

	_, err = r.ResolveFocusAreas([]string{"astrology"})
	assert.ErrorContains(t, err, "astrology")
}

func TestParseManifestStrict(t *testing.T) {
	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := ParseManifest([]byte("contacts: []\nfocus_area: []\n"))
		assert.Error(t, err)
	})

	t.Run("rejects contacts without name", func(t *testing.T) {
		_, err := ParseManifest([]byte("contacts:\n  - id: \"1\"\n"))
		assert.ErrorContains(t, err, "missing required field")
	})

	t.Run("rejects focus areas without label", func(t *testing.T) {
		_, err := ParseManifest([]byte("focus_areas:\n  - id: x\n"))
		assert.ErrorContains(t, err, "missing required field")
	})
}

func TestDuplicateEntriesSkipped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	data := []byte(`contacts:
  - {id: "1", name: First, title: A}
  - {id: "1", name: Second, title: B}
focus_areas:
  - {id: x, label: X}
  - {id: x, label: Y}
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	r, err := Load(path)
	require.NoError(t, err)

	require.Len(t, r.Contacts(), 1)
	assert.Equal(t, "First", r.Contacts()[0].Name)
	require.Len(t, r.FocusAreas(), 1)
	assert.Equal(t, "X", r.FocusAreas()[0].Label)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read catalog")
}
