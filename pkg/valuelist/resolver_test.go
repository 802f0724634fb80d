package valuelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntries() []Entry {
	return []Entry{
		{List: "wastewater_structure_status", Code: "8493", Labels: map[Language]string{German: "in_Betrieb", French: "en_service", English: "operational"}},
		{List: "wastewater_structure_status", Code: "6530", Labels: map[Language]string{German: "ausser_Betrieb", French: "hors_service"}},
		{List: "wastewater_structure_status", Code: "3027", Labels: map[Language]string{German: "unbekannt"}},
		{List: "pipe_material", Code: "1", Labels: map[Language]string{French: "fonte ductile"}},
		{List: "pipe_material", Code: "2", Labels: map[Language]string{French: "matériau exotique"}},
	}
}

func TestLabel(t *testing.T) {
	r := NewResolver(French, testEntries(), nil)

	label, ok := r.Label("wastewater_structure_status", "8493")
	assert.True(t, ok)
	assert.Equal(t, "en_service", label)

	_, ok = r.Label("wastewater_structure_status", "3027")
	assert.False(t, ok, "no french label")

	_, ok = r.Label("wastewater_structure_status", "")
	assert.False(t, ok, "null code")

	_, ok = r.Label("wastewater_structure_status", "9999")
	assert.False(t, ok, "unknown code")

	_, ok = r.Label("missing_list", "1")
	assert.False(t, ok)
}

func TestCode(t *testing.T) {
	r := NewResolver(German, testEntries(), nil)

	code, ok := r.Code("wastewater_structure_status", "in_Betrieb")
	assert.True(t, ok)
	assert.Equal(t, "8493", code)

	code, ok = r.Code("wastewater_structure_status", "hors_service")
	assert.True(t, ok, "any language matches")
	assert.Equal(t, "6530", code)

	_, ok = r.Code("wastewater_structure_status", "kaputt")
	assert.False(t, ok)
}

func TestExportImportWithDictionary(t *testing.T) {
	translations, err := DefaultTranslations()
	require.NoError(t, err)
	r := NewResolver(French, testEntries(), translations)

	literal, ok := r.Export("pipe_material", "leitung.material", "1")
	assert.True(t, ok)
	assert.Equal(t, "Guss.duktil", literal)

	_, ok = r.Export("pipe_material", "leitung.material", "2")
	assert.False(t, ok, "label missing from dictionary")

	code, ok := r.Import("pipe_material", "leitung.material", "Guss.duktil")
	assert.True(t, ok)
	assert.Equal(t, "1", code)
}

func TestExportWithoutDictionary(t *testing.T) {
	r := NewResolver(German, testEntries(), nil)

	literal, ok := r.Export("wastewater_structure_status", "abwasserbauwerk.status", "6530")
	assert.True(t, ok)
	assert.Equal(t, "ausser_Betrieb", literal)

	code, ok := r.Import("wastewater_structure_status", "abwasserbauwerk.status", "ausser_Betrieb")
	assert.True(t, ok)
	assert.Equal(t, "6530", code)

	code, ok = r.Import("wastewater_structure_status", "abwasserbauwerk.status", "ausser_Betrieb.ausser_Betrieb")
	assert.True(t, ok, "dotted literal falls back to last segment")
	assert.Equal(t, "6530", code)
}

func TestParseTranslations(t *testing.T) {
	_, err := ParseTranslations([]byte("- source: a\n  target: b\n  values: {x: y}\n- source: a\n  target: b\n  values: {}\n"))
	assert.Error(t, err, "duplicate dictionary")

	_, err = ParseTranslations([]byte("- values: {x: y}\n"))
	assert.Error(t, err)

	tr, err := ParseTranslations([]byte("- source: a\n  target: b\n  values: {x: y}\n"))
	require.NoError(t, err)
	v, ok := tr.Forward("a", "b", "x")
	assert.True(t, ok)
	assert.Equal(t, "y", v)
	l, ok := tr.Reverse("a", "b", "y")
	assert.True(t, ok)
	assert.Equal(t, "x", l)
}
