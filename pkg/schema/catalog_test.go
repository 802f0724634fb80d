package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	mosserrors "github.com/Ramsey-B/moss/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func testColumns() []ColumnRow {
	return []ColumnRow{
		{Table: "wastewater_structure", Column: "obj_id", Position: 1, DataType: "character varying", UDTName: "varchar", MaxLength: intPtr(16), IsNullable: "NO"},
		{Table: "wastewater_structure", Column: "identifier", Position: 2, DataType: "character varying", UDTName: "varchar", MaxLength: intPtr(20), IsNullable: "YES"},
		{Table: "wastewater_structure", Column: "year_of_construction", Position: 3, DataType: "smallint", UDTName: "int2", IsNullable: "YES"},
		{Table: "manhole", Column: "obj_id", Position: 1, DataType: "character varying", UDTName: "varchar", MaxLength: intPtr(16), IsNullable: "NO"},
		{Table: "manhole", Column: "dimension1", Position: 2, DataType: "smallint", UDTName: "int2", IsNullable: "YES"},
		{Table: "reach_point", Column: "obj_id", Position: 1, DataType: "character varying", UDTName: "varchar", MaxLength: intPtr(16), IsNullable: "NO"},
		{Table: "reach_point", Column: "situation_geometry", Position: 2, DataType: "USER-DEFINED", UDTName: "geometry", IsNullable: "YES"},
		{Table: "reach", Column: "obj_id", Position: 1, DataType: "character varying", UDTName: "varchar", MaxLength: intPtr(16), IsNullable: "NO"},
		{Table: "reach", Column: "fk_reach_point_from", Position: 2, DataType: "character varying", UDTName: "varchar", MaxLength: intPtr(16), IsNullable: "YES"},
		{Table: "reach", Column: "material", Position: 3, DataType: "integer", UDTName: "int4", IsNullable: "YES"},
		{Table: "reach", Column: "progression_geometry", Position: 4, DataType: "USER-DEFINED", UDTName: "geometry", IsNullable: "YES"},
	}
}

func testConstraints() []ConstraintRow {
	return []ConstraintRow{
		{Name: "pkey_ws", Type: "p", Table: "wastewater_structure", Column: "obj_id"},
		{Name: "pkey_mh", Type: "p", Table: "manhole", Column: "obj_id"},
		{Name: "oorel_od_manhole_wastewater_structure", Type: "f", Table: "manhole", Column: "obj_id", RefSchema: "qgep_od", RefTable: "wastewater_structure", RefColumn: "obj_id"},
		{Name: "pkey_rp", Type: "p", Table: "reach_point", Column: "obj_id"},
		{Name: "pkey_re", Type: "p", Table: "reach", Column: "obj_id"},
		{Name: "rel_reach_reach_point_from", Type: "f", Table: "reach", Column: "fk_reach_point_from", RefSchema: "qgep_od", RefTable: "reach_point", RefColumn: "obj_id"},
		{Name: "fkey_vl_reach_material", Type: "f", Table: "reach", Column: "material", RefSchema: "qgep_vl", RefTable: "reach_material", RefColumn: "code"},
	}
}

func testGeometries() []GeometryRow {
	return []GeometryRow{
		{Table: "reach_point", Column: "situation_geometry", Type: "POINT", SRID: 2056, Dimensions: 3},
		{Table: "reach", Column: "progression_geometry", Type: "COMPOUNDCURVE", SRID: 2056, Dimensions: 3},
	}
}

func TestBuild(t *testing.T) {
	c, err := Build("qgep_od", testColumns(), testConstraints(), testGeometries(), nil)
	require.NoError(t, err)

	t.Run("inheritance chain", func(t *testing.T) {
		chain, err := c.Chain("manhole")
		require.NoError(t, err)
		assert.Equal(t, []string{"wastewater_structure", "manhole"}, chain)
		assert.Equal(t, "wastewater_structure", c.Base("manhole"))
		assert.Equal(t, "reach", c.Base("reach"))
		assert.True(t, c.IsA("manhole", "wastewater_structure"))
		assert.False(t, c.IsA("reach", "wastewater_structure"))
	})

	t.Run("columns", func(t *testing.T) {
		reach, err := c.Entity("reach")
		require.NoError(t, err)
		assert.Equal(t, []string{"obj_id", "fk_reach_point_from", "material", "progression_geometry"}, reach.ColumnNames())

		geom, ok := reach.Column("progression_geometry")
		require.True(t, ok)
		assert.Equal(t, KindGeometry, geom.Kind)
		require.NotNil(t, geom.Geometry)
		assert.True(t, geom.Geometry.IsCurve())
		assert.Equal(t, 2056, geom.Geometry.SRID)

		col, table, ok := c.Column("manhole", "identifier")
		require.True(t, ok)
		assert.Equal(t, "wastewater_structure", table)
		assert.Equal(t, 20, col.MaxLength)
		assert.Equal(t, KindText, col.Kind)
	})

	t.Run("back references", func(t *testing.T) {
		rp, err := c.Entity("reach_point")
		require.NoError(t, err)
		require.Len(t, rp.BackRefs, 1)
		assert.Equal(t, "reach", rp.BackRefs[0].Table)

		ws, err := c.Entity("wastewater_structure")
		require.NoError(t, err)
		assert.Empty(t, ws.BackRefs, "inheritance links are not back references")
	})

	t.Run("relation", func(t *testing.T) {
		fk, err := c.Relation("reach", "fk_reach_point_from")
		require.NoError(t, err)
		assert.Equal(t, "reach_point", fk.RefTable)
		assert.True(t, fk.Nullable)

		fk, err = c.Relation("reach", "material")
		require.NoError(t, err)
		assert.Equal(t, "qgep_vl", fk.RefSchema)

		_, err = c.Relation("reach", "identifier")
		assert.True(t, mosserrors.Is(err, mosserrors.KindSchemaError))
	})

	t.Run("missing table", func(t *testing.T) {
		err := c.Require("reach", "overflow")
		require.Error(t, err)
		assert.True(t, mosserrors.Is(err, mosserrors.KindSchemaError))
		assert.Contains(t, err.Error(), "qgep_od.overflow")
	})
}

func TestBuildParentOverride(t *testing.T) {
	constraints := []ConstraintRow{
		{Name: "pkey_ws", Type: "p", Table: "wastewater_structure", Column: "obj_id"},
		{Name: "pkey_mh", Type: "p", Table: "manhole", Column: "obj_id"},
	}
	c, err := Build("qgep_od", testColumns(), constraints, nil, map[string]string{"manhole": "wastewater_structure"})
	require.NoError(t, err)

	chain, err := c.Chain("manhole")
	require.NoError(t, err)
	assert.Equal(t, []string{"wastewater_structure", "manhole"}, chain)
}

func TestBuildCycle(t *testing.T) {
	_, err := Build("qgep_od", testColumns(), nil, nil, map[string]string{
		"manhole":              "wastewater_structure",
		"wastewater_structure": "manhole",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

type fakeSource struct {
	calls int
	err   error
}

func (f *fakeSource) Columns(_ context.Context, schemaName string) ([]ColumnRow, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if schemaName != "qgep_od" {
		return nil, nil
	}
	return testColumns(), nil
}

func (f *fakeSource) Constraints(context.Context, string) ([]ConstraintRow, error) {
	return testConstraints(), nil
}

func (f *fakeSource) Geometries(context.Context, string) ([]GeometryRow, error) {
	return testGeometries(), nil
}

func TestReflectorCaches(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	source := &fakeSource{}
	r := NewReflector(source, logger)

	c1, err := r.Reflect(context.Background(), "qgep_od", "reach")
	require.NoError(t, err)
	c2, err := r.Reflect(context.Background(), "qgep_od")
	require.NoError(t, err)

	assert.Same(t, c1, c2)
	assert.Equal(t, 1, source.calls)

	_, err = r.Reflect(context.Background(), "qgep_od", "organisation")
	assert.True(t, mosserrors.Is(err, mosserrors.KindSchemaError))
}

func TestReflectorForget(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	source := &fakeSource{}
	r := NewReflector(source, logger)

	c1, err := r.Reflect(context.Background(), "qgep_od")
	require.NoError(t, err)
	r.Forget("qgep_od")
	c2, err := r.Reflect(context.Background(), "qgep_od")
	require.NoError(t, err)

	assert.NotSame(t, c1, c2)
	assert.Equal(t, 2, source.calls)
}

func TestReflectorErrors(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	_, err := NewReflector(&fakeSource{}, logger).Reflect(context.Background(), "missing")
	assert.True(t, mosserrors.Is(err, mosserrors.KindSchemaError))

	_, err = NewReflector(&fakeSource{err: errors.New("boom")}, logger).Reflect(context.Background(), "qgep_od")
	require.Error(t, err)
	assert.True(t, mosserrors.Is(err, mosserrors.KindSchemaError))
}
