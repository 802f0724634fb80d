package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/moss/pkg/schema"
)

func TestNormalizeLine(t *testing.T) {
	line := orb.LineString{
		{2600000, 1200000},
		{2600000.001, 1200000},
		{2600010, 1200000},
		{2600010, 1200000.0015},
		{2600020, 1200005},
	}

	got, removed, err := Normalize(line)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, orb.LineString{{2600000, 1200000}, {2600010, 1200000}, {2600020, 1200005}}, got)
	assert.GreaterOrEqual(t, MinSegment(got), Tolerance)
}

func TestNormalizeKeepsEndPoint(t *testing.T) {
	line := orb.LineString{{0, 0}, {5, 0}, {10, 0}, {10.001, 0}}

	got, removed, err := Normalize(line)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, orb.LineString{{0, 0}, {5, 0}, {10.001, 0}}, got)
	assert.GreaterOrEqual(t, MinSegment(got), Tolerance)
}

func TestNormalizeEndPointReplacesSeveralVertices(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}, {10.0015, 0}, {10.0019, 0}}

	got, _, err := Normalize(line)
	require.NoError(t, err)
	assert.Equal(t, orb.LineString{{0, 0}, {10.0019, 0}}, got)
	assert.GreaterOrEqual(t, MinSegment(got), Tolerance)
}

func TestNormalizeCollapsedLine(t *testing.T) {
	line := orb.LineString{{1, 1}, {1.0005, 1}, {1.001, 1}}

	_, _, err := Normalize(line)
	assert.ErrorIs(t, err, ErrCollapsed)

	_, _, err = Prepare(Value{Geometry: line, SRID: DefaultSRID}, DefaultSRID)
	assert.ErrorIs(t, err, ErrCollapsed)
}

func TestNormalizeDropsCollapsedParts(t *testing.T) {
	multi := orb.MultiLineString{
		{{0, 0}, {0.001, 0}},
		{{0, 0}, {10, 0}},
	}
	got, _, err := Normalize(multi)
	require.NoError(t, err)
	assert.Equal(t, orb.MultiLineString{{{0, 0}, {10, 0}}}, got)

	hole := orb.Ring{{1, 1}, {1.001, 1}, {1.001, 1.001}, {1, 1}}
	shell := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	poly, _, err := Normalize(orb.Polygon{shell, hole})
	require.NoError(t, err)
	assert.Equal(t, orb.Polygon{shell}, poly)

	_, _, err = Normalize(orb.Polygon{hole})
	assert.ErrorIs(t, err, ErrCollapsed)
}

func TestNormalizePolygonStaysClosed(t *testing.T) {
	poly := orb.Polygon{orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0.001}, {0, 0}}}
	got, removed, err := Normalize(poly)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	ring := got.(orb.Polygon)[0]
	assert.True(t, ring.Closed())
	assert.Len(t, ring, 5)
}

func TestNormalizePointUnchanged(t *testing.T) {
	got, removed, err := Normalize(orb.Point{1, 2})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, orb.Point{1, 2}, got)
}

func TestEncodeDecode(t *testing.T) {
	line := orb.LineString{{2600000, 1200000}, {2600010, 1200000}}
	data, err := Encode(line, DefaultSRID)
	require.NoError(t, err)

	v, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultSRID, v.SRID)
	assert.True(t, line.Equal(v.Geometry.(orb.LineString)))
}

func TestPrepare(t *testing.T) {
	v, removed, err := Prepare(Value{Geometry: orb.LineString{{0, 0}, {0, 0.001}, {5, 5}}}, DefaultSRID)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, DefaultSRID, v.SRID)

	_, _, err = Prepare(Value{Geometry: orb.Point{7, 46}, SRID: 4326}, DefaultSRID)
	assert.Error(t, err)
}

func TestReadExpr(t *testing.T) {
	curve := &schema.GeometryType{Type: "COMPOUNDCURVE", SRID: 2056, Dimensions: 3}
	assert.Equal(t,
		`ST_AsEWKB(ST_Force2D(ST_Transform(ST_CurveToLine("reach"."progression_geometry"), 2056))) AS "progression_geometry"`,
		ReadExpr("reach", "progression_geometry", curve, 2056))

	point := &schema.GeometryType{Type: "POINT", SRID: 2056, Dimensions: 3}
	assert.Equal(t,
		`ST_AsEWKB(ST_Force2D(ST_Transform("wastewater_node"."situation_geometry", 2056))) AS "situation_geometry"`,
		ReadExpr("wastewater_node", "situation_geometry", point, 2056))
}

func TestWriteExpr(t *testing.T) {
	v := Value{Geometry: orb.LineString{{0, 0}, {1, 1}}, SRID: DefaultSRID}

	b, err := WriteExpr(v, &schema.GeometryType{Type: "COMPOUNDCURVE"})
	require.NoError(t, err)
	sql, args := b.Build()
	assert.Contains(t, sql, "ST_ForceCurve(ST_GeomFromEWKB(")
	assert.Len(t, args, 1)

	b, err = WriteExpr(v, &schema.GeometryType{Type: "LINESTRING"})
	require.NoError(t, err)
	sql, _ = b.Build()
	assert.NotContains(t, sql, "ST_ForceCurve")

	b, err = WriteExpr(Value{Geometry: orb.Point{1, 2}, SRID: DefaultSRID}, &schema.GeometryType{Type: "POINT", Dimensions: 3})
	require.NoError(t, err)
	sql, _ = b.Build()
	assert.Contains(t, sql, "ST_Force3D(ST_GeomFromEWKB(")
}
