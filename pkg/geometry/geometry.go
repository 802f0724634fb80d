// Package geometry normalises geometries exchanged with the transfer schema:
// two dimensions, SRID 2056 by default and no consecutive vertices closer than
// Tolerance.
package geometry

import (
	"errors"
	"fmt"

	"github.com/huandu/go-sqlbuilder"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/ewkb"
	"github.com/paulmach/orb/planar"

	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/schema"
)

// DefaultSRID is the Swiss LV95 projected reference system.
const DefaultSRID = 2056

// Tolerance is the distance in metres under which consecutive vertices are
// merged.
const Tolerance = 0.002

// Value is a decoded geometry together with its SRID.
type Value struct {
	Geometry orb.Geometry
	SRID     int
}

// ErrCollapsed reports a line or ring whose vertices all lie within
// Tolerance of each other.
var ErrCollapsed = errors.New("geometry collapses below the vertex tolerance")

// Normalize removes near duplicate consecutive vertices. It returns the
// cleaned geometry and the number of vertices dropped. Collapsed parts of a
// multi geometry and collapsed holes are dropped; ErrCollapsed is returned
// when nothing is left.
func Normalize(g orb.Geometry) (orb.Geometry, int, error) {
	switch t := g.(type) {
	case orb.LineString:
		return coalesceLine(t)
	case orb.Ring:
		return coalesceRing(t)
	case orb.MultiLineString:
		out := make(orb.MultiLineString, 0, len(t))
		removed := 0
		for _, ls := range t {
			c, n, err := coalesceLine(ls)
			removed += n
			if err != nil {
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			return nil, removed, ErrCollapsed
		}
		return out, removed, nil
	case orb.Polygon:
		return coalescePolygon(t)
	case orb.MultiPolygon:
		out := make(orb.MultiPolygon, 0, len(t))
		removed := 0
		for _, p := range t {
			c, n, err := coalescePolygon(p)
			removed += n
			if err != nil {
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			return nil, removed, ErrCollapsed
		}
		return out, removed, nil
	case orb.Collection:
		out := make(orb.Collection, 0, len(t))
		removed := 0
		for _, member := range t {
			c, n, err := Normalize(member)
			removed += n
			if err != nil {
				continue
			}
			out = append(out, c)
		}
		if len(out) == 0 {
			return nil, removed, ErrCollapsed
		}
		return out, removed, nil
	default:
		return g, 0, nil
	}
}

// coalesceLine keeps the first and the last vertex. Interior vertices closer
// than Tolerance to the previous kept vertex are dropped, and so are kept
// vertices closer than Tolerance to the end point.
func coalesceLine(ls orb.LineString) (orb.LineString, int, error) {
	if len(ls) < 2 {
		return ls, 0, nil
	}
	out := make(orb.LineString, 0, len(ls))
	out = append(out, ls[0])
	for i := 1; i < len(ls); i++ {
		p := ls[i]
		if i == len(ls)-1 {
			for len(out) > 1 && planar.Distance(out[len(out)-1], p) < Tolerance {
				out = out[:len(out)-1]
			}
		}
		if planar.Distance(out[len(out)-1], p) < Tolerance {
			continue
		}
		out = append(out, p)
	}
	removed := len(ls) - len(out)
	if len(out) < 2 {
		return out, removed, ErrCollapsed
	}
	return out, removed, nil
}

func coalesceRing(r orb.Ring) (orb.Ring, int, error) {
	ls, removed, err := coalesceLine(orb.LineString(r))
	ring := orb.Ring(ls)
	if err != nil {
		return ring, removed, err
	}
	if len(ring) < 4 {
		return ring, removed, ErrCollapsed
	}
	if !ring.Closed() {
		// the closing vertex differs from the start by less than Tolerance
		ring[len(ring)-1] = ring[0]
	}
	return ring, removed, nil
}

// coalescePolygon fails when the shell collapses and drops collapsed holes.
func coalescePolygon(p orb.Polygon) (orb.Polygon, int, error) {
	out := make(orb.Polygon, 0, len(p))
	removed := 0
	for i, r := range p {
		c, n, err := coalesceRing(r)
		removed += n
		if err != nil {
			if i == 0 {
				return nil, removed, err
			}
			continue
		}
		out = append(out, c)
	}
	return out, removed, nil
}

// MinSegment returns the shortest distance between consecutive vertices of g,
// or -1 when g has no segments.
func MinSegment(g orb.Geometry) float64 {
	shortest := -1.0
	visit := func(ls orb.LineString) {
		for i := 1; i < len(ls); i++ {
			d := planar.Distance(ls[i-1], ls[i])
			if shortest < 0 || d < shortest {
				shortest = d
			}
		}
	}
	var walk func(orb.Geometry)
	walk = func(g orb.Geometry) {
		switch t := g.(type) {
		case orb.LineString:
			visit(t)
		case orb.Ring:
			visit(orb.LineString(t))
		case orb.MultiLineString:
			for _, ls := range t {
				visit(ls)
			}
		case orb.Polygon:
			for _, r := range t {
				visit(orb.LineString(r))
			}
		case orb.MultiPolygon:
			for _, p := range t {
				walk(p)
			}
		case orb.Collection:
			for _, member := range t {
				walk(member)
			}
		}
	}
	walk(g)
	return shortest
}

// Decode parses EWKB as returned by ST_AsEWKB.
func Decode(data []byte) (Value, error) {
	g, srid, err := ewkb.Unmarshal(data)
	if err != nil {
		return Value{}, fmt.Errorf("failed to decode geometry: %w", err)
	}
	return Value{Geometry: g, SRID: srid}, nil
}

// Encode returns g as EWKB tagged with srid.
func Encode(g orb.Geometry, srid int) ([]byte, error) {
	data, err := ewkb.Marshal(g, srid)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", g.GeoJSONType(), err)
	}
	return data, nil
}

// ReadExpr is the select expression for a geometry column. The database
// projects it to srid, drops Z and M and linearises curves, so decoding only
// ever sees 2D simple features.
func ReadExpr(table, column string, gt *schema.GeometryType, srid int) string {
	col := database.Ident(table) + "." + database.Ident(column)
	if gt != nil && gt.IsCurve() {
		col = fmt.Sprintf("ST_CurveToLine(%s)", col)
	}
	return fmt.Sprintf("ST_AsEWKB(ST_Force2D(ST_Transform(%s, %d))) AS %s", col, srid, database.Ident(column))
}

// WriteExpr builds the insert expression for v. Columns declaring a Z
// dimension get a zero Z and curve columns go through ST_ForceCurve.
func WriteExpr(v Value, gt *schema.GeometryType) (sqlbuilder.Builder, error) {
	data, err := Encode(v.Geometry, v.SRID)
	if err != nil {
		return nil, err
	}
	expr := "ST_GeomFromEWKB(%v)"
	if gt != nil && gt.Dimensions >= 3 {
		expr = "ST_Force3D(" + expr + ")"
	}
	if gt != nil && gt.IsCurve() {
		expr = "ST_ForceCurve(" + expr + ")"
	}
	return sqlbuilder.Buildf(expr, data), nil
}

// Prepare normalises v for the transfer schema. Geometries read through
// ReadExpr are already projected; an SRID other than want is reported.
func Prepare(v Value, want int) (Value, int, error) {
	if v.Geometry == nil {
		return v, 0, nil
	}
	if v.SRID != 0 && v.SRID != want {
		return v, 0, fmt.Errorf("geometry has SRID %d, expected %d", v.SRID, want)
	}
	g, removed, err := Normalize(v.Geometry)
	if err != nil {
		return v, removed, err
	}
	return Value{Geometry: g, SRID: want}, removed, nil
}
