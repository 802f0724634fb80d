package mapping

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/geometry"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/tid"
)

// Expr computes the value of one target field from a source record.
type Expr func(c *Context, rec *models.Record) (any, error)

// Col copies a source column.
func Col(column string) Expr {
	return func(_ *Context, rec *models.Record) (any, error) {
		return rec.Values[column], nil
	}
}

func Const(v any) Expr {
	return func(*Context, *models.Record) (any, error) {
		return v, nil
	}
}

// Coalesce returns the first non-nil value.
func Coalesce(exprs ...Expr) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		for _, e := range exprs {
			v, err := e(c, rec)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	}
}

// Text copies a text column, stripping control characters. Blank values
// become NULL.
func Text(column string) Expr {
	return Sanitize(Col(column))
}

func Sanitize(e Expr) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, err := e(c, rec)
		if err != nil || v == nil {
			return nil, err
		}
		s := strings.Map(func(r rune) rune {
			if unicode.IsControl(r) && r != '\n' && r != '\t' {
				return -1
			}
			return r
		}, models.ToString(v))
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
}

// Truncate cuts text values to n characters with a warning.
func Truncate(e Expr, n int) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, err := e(c, rec)
		if err != nil || v == nil {
			return v, err
		}
		s := models.ToString(v)
		if utf8.RuneCountInString(s) <= n {
			return s, nil
		}
		c.Warn(report.WarningTruncated, "value of %d characters truncated to %d", utf8.RuneCountInString(s), n)
		return string([]rune(s)[:n]), nil
	}
}

// Clamp bounds numeric values to [lo, hi] with a warning.
func Clamp(e Expr, lo, hi float64) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, err := e(c, rec)
		if err != nil || v == nil {
			return v, err
		}
		f, err := models.ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %v", v)
		}
		clamped := math.Min(math.Max(f, lo), hi)
		if clamped == f {
			return v, nil
		}
		c.Warn(report.WarningClamped, "value %v clamped to %v", v, clamped)
		if _, isInt := v.(int64); isInt {
			return int64(clamped), nil
		}
		return clamped, nil
	}
}

// Int converts numeric values to int64.
func Int(e Expr) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, err := e(c, rec)
		if err != nil || v == nil {
			return v, err
		}
		f, err := models.ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %v", v)
		}
		return int64(math.Round(f)), nil
	}
}

// Modulo normalises an angle in degrees after adding offset.
func Modulo(e Expr, offset, m float64) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, err := e(c, rec)
		if err != nil || v == nil {
			return v, err
		}
		f, err := models.ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("expected a number, got %v", v)
		}
		return math.Mod(math.Mod(f+offset, m)+m, m), nil
	}
}

// Default replaces NULL with fallback.
func Default(e Expr, fallback any) Expr {
	return Coalesce(e, Const(fallback))
}

// NullToEmpty writes an empty string for NULL with a warning, for mandatory
// text attributes.
func NullToEmpty(e Expr) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, err := e(c, rec)
		if err != nil || v != nil {
			return v, err
		}
		c.Warn(report.WarningNullToEmpty, "mandatory value missing, empty string written")
		return "", nil
	}
}

// Coded resolves a value list code into the label or enumeration literal of
// the current target field. key names the enumeration as class.field and
// defaults to the current position.
func Coded(column, list string, key ...string) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, ok := rec.Values.String(column)
		if !ok {
			return nil, nil
		}
		target := c.class + "." + c.field
		if len(key) > 0 {
			target = key[0]
		}
		literal, ok := c.Resolver.Export(list, target, v)
		if !ok {
			c.Warn(report.WarningUnresolved, "code %s has no %s label in %s", v, c.Resolver.Language(), list)
			return nil, nil
		}
		return literal, nil
	}
}

// Decoded maps an enumeration literal back onto a value list code. key names
// the enumeration as class.field.
func Decoded(column, list, key string, asInt bool) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, ok := rec.Values.String(column)
		if !ok {
			return nil, nil
		}
		code, ok := c.Resolver.Import(list, key, v)
		if !ok {
			c.Warn(report.WarningUnresolved, "literal %s is not in %s", v, list)
			return nil, nil
		}
		if asInt {
			f, err := models.ToFloat(code)
			if err != nil {
				return nil, fmt.Errorf("code %s of %s is not numeric", code, list)
			}
			return int64(f), nil
		}
		return code, nil
	}
}

// Ref resolves a foreign key column holding an id of table into the TID of
// the referenced row. References leaving the selection become NULL with a
// warning.
func Ref(column, table string) Expr {
	return RefFor(column, table, "")
}

// RefFor is Ref onto the fan out target forClass of the referenced row.
func RefFor(column, table, forClass string) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		id, ok := rec.Values.String(column)
		if !ok {
			return nil, nil
		}
		base := c.Base(table)
		if !c.Allowed(base, id) {
			c.Warn(report.WarningFKDropped, "%s %s is outside the selection, reference dropped", table, id)
			return nil, nil
		}
		return c.Allocator.ForID(base, id, forClass), nil
	}
}

// Required is RefFor onto a mandatory parent. A missing key or a key naming
// no row of table fails with a referential drop so the record is skipped.
func Required(column, table, forClass string) Expr {
	ref := RefFor(column, table, forClass)
	return func(c *Context, rec *models.Record) (any, error) {
		id, ok := rec.Values.String(column)
		if !ok {
			return nil, errors.ReferentialDrop("%s %s has no %s", rec.Table, rec.ID(), table)
		}
		parent, err := c.Record(table, id)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, errors.ReferentialDrop("%s %s references missing %s %s", rec.Table, rec.ID(), table, id)
		}
		return ref(c, rec)
	}
}

// Self is the TID of the row being built.
func Self() Expr {
	return func(c *Context, _ *models.Record) (any, error) {
		return c.TID(), nil
	}
}

// SelfFor is the TID of the fan out target forClass of the current record.
func SelfFor(forClass string) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		return c.Allocator.For(rec, forClass), nil
	}
}

// OID keeps a source id that is a valid OID and derives one from the TID of
// the row otherwise.
func OID() Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		if id := rec.ID(); tid.IsStandardOID(id) {
			return id, nil
		}
		return tid.OID(c.TID()), nil
	}
}

// Geom normalises a geometry column for the transfer schema.
func Geom(column string) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v, ok := rec.Values[column].(geometry.Value)
		if !ok || v.Geometry == nil {
			return nil, nil
		}
		out, removed, err := geometry.Prepare(v, c.SRID)
		if err != nil {
			c.Warn(report.WarningGeometry, "%v", err)
			return nil, nil
		}
		if removed > 0 {
			c.Logger.WithContext(c.ctx).Debugf("%s %s: %d duplicate vertices removed from %s", c.class, c.object, removed, column)
		}
		return out, nil
	}
}

// Lookup resolves a transfer reference into the application id the
// referenced row imports as.
func Lookup(column string) Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		v := rec.Values[column]
		if v == nil {
			return nil, nil
		}
		id, ok := c.Identity(v)
		if !ok {
			c.Warn(report.WarningFKDropped, "reference %v does not resolve to an imported row", v)
			return nil, nil
		}
		return id, nil
	}
}

// Identity is the application id of the record being imported.
func Identity() Expr {
	return func(c *Context, rec *models.Record) (any, error) {
		id, ok := c.Identity(rec.Values[rec.IDColumn])
		if !ok {
			return nil, fmt.Errorf("no identity bound to %s %s", rec.Table, rec.ID())
		}
		return id, nil
	}
}
