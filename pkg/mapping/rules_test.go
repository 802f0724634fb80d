package mapping

import (
	"fmt"
	"testing"

	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	c, _ := newTestContext(t, nil)
	target := Target{
		Class: "organisation",
		Fields: []Field{
			F("obj_id", OID()),
			F("bezeichnung", Text("identifier")),
			F("auid", Const(nil)),
		},
	}
	rec := record("organisation", models.Row{"obj_id": "org-1", "identifier": "Acme"})
	c.At(target.Class, rec.ID(), c.Allocator.For(rec, ""))

	row, err := Build(c, target, rec)
	require.NoError(t, err)
	assert.Equal(t, models.Row{"obj_id": "ch00000000000000", "bezeichnung": "Acme", "auid": nil}, row)
	assert.Empty(t, c.Field())
}

func TestBuildLocatesErrors(t *testing.T) {
	c, _ := newTestContext(t, nil)
	failing := func(*Context, *models.Record) (any, error) { return nil, fmt.Errorf("boom") }
	target := Target{Class: "normschacht", Fields: []Field{F("funktion", failing)}}

	_, err := Build(c, target, record("manhole", models.Row{"obj_id": "mh-1"}))
	require.Error(t, err)
	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errors.KindMappingError, e.Kind)
	assert.Equal(t, "normschacht", e.Class)
	assert.Equal(t, "funktion", e.Field)
	assert.Equal(t, "mh-1", e.Object)
}

func TestDiscriminator(t *testing.T) {
	d := &Discriminator{
		Column: "art",
		Cases: map[string]Target{
			"Hausanschluss":    {Class: "subscriber"},
			"Probenahmestelle": {Class: "samplingpoint"},
			"Formstueck":       {Class: "part"},
		},
		Default: "Formstueck",
	}

	tests := []struct {
		art  any
		want string
	}{
		{art: "Hausanschluss", want: "subscriber"},
		{art: "Probenahmestelle", want: "samplingpoint"},
		{art: "Formstueck", want: "part"},
		{art: "anderes", want: "part"},
		{art: nil, want: "part"},
	}
	for _, tt := range tests {
		got, ok := d.Choose(&models.Record{Values: models.Row{"art": tt.art}})
		require.True(t, ok)
		assert.Equal(t, tt.want, got.Class)
	}

	d.Default = ""
	_, ok := d.Choose(&models.Record{Values: models.Row{"art": "anderes"}})
	assert.False(t, ok)
}

func TestPredicates(t *testing.T) {
	c, _ := newTestContext(t, selection.NewSet("ws-1"))
	inside := record("cover", models.Row{"obj_id": "co-1", "fk_wastewater_structure": "ws-1"})
	outside := record("cover", models.Row{"obj_id": "co-2", "fk_wastewater_structure": "ws-2"})
	orphan := record("cover", models.Row{"obj_id": "co-3"})

	owned := OwnedBy("fk_wastewater_structure", "wastewater_structure")
	for rec, want := range map[*models.Record]bool{inside: true, outside: false, orphan: false} {
		got, err := owned(c, rec)
		require.NoError(t, err)
		assert.Equal(t, want, got, rec.ID())
	}

	ok, err := Selected()(c, inside)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = All(Present("fk_wastewater_structure"), owned)(c, inside)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = All(Present("fk_wastewater_structure"), owned)(c, orphan)
	require.NoError(t, err)
	assert.False(t, ok)

	unfiltered, _ := newTestContext(t, nil)
	ok, err = owned(unfiltered, orphan)
	require.NoError(t, err)
	assert.True(t, ok)
}
