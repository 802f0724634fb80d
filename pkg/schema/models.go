package schema

import (
	"strings"
)

type ColumnKind string

const (
	KindInteger   ColumnKind = "integer"
	KindNumeric   ColumnKind = "numeric"
	KindText      ColumnKind = "text"
	KindBoolean   ColumnKind = "boolean"
	KindDate      ColumnKind = "date"
	KindTimestamp ColumnKind = "timestamp"
	KindGeometry  ColumnKind = "geometry"
	KindOther     ColumnKind = "other"
)

// GeometryType is the declared type of a geometry column.
type GeometryType struct {
	Type       string
	SRID       int
	Dimensions int
}

// IsCurve reports whether the column stores curved geometries.
func (g GeometryType) IsCurve() bool {
	t := strings.ToUpper(g.Type)
	return strings.Contains(t, "CURVE") || strings.Contains(t, "CIRCULAR")
}

func (g GeometryType) IsLinear() bool {
	t := strings.ToUpper(g.Type)
	return strings.Contains(t, "LINE") || g.IsCurve()
}

type Column struct {
	Name       string
	Kind       ColumnKind
	DataType   string
	MaxLength  int
	Nullable   bool
	HasDefault bool
	Geometry   *GeometryType
}

// Mandatory reports whether a value must be supplied on insert.
func (c Column) Mandatory() bool {
	return !c.Nullable && !c.HasDefault
}

type ForeignKey struct {
	Name      string
	Table     string
	Column    string
	RefSchema string
	RefTable  string
	RefColumn string
	Nullable  bool
}

// EntityDescriptor describes one table of a reflected schema.
type EntityDescriptor struct {
	Schema      string
	Table       string
	Columns     []Column
	PrimaryKey  string
	Parent      string
	ForeignKeys []ForeignKey
	BackRefs    []ForeignKey
}

func (e *EntityDescriptor) Column(name string) (Column, bool) {
	for _, c := range e.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (e *EntityDescriptor) ForeignKey(column string) (ForeignKey, bool) {
	for _, fk := range e.ForeignKeys {
		if fk.Column == column {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// ColumnNames returns the column names in catalog order.
func (e *EntityDescriptor) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnRow is one row of information_schema.columns.
type ColumnRow struct {
	Table      string  `db:"table_name"`
	Column     string  `db:"column_name"`
	Position   int     `db:"ordinal_position"`
	DataType   string  `db:"data_type"`
	UDTName    string  `db:"udt_name"`
	MaxLength  *int    `db:"character_maximum_length"`
	IsNullable string  `db:"is_nullable"`
	Default    *string `db:"column_default"`
}

// ConstraintRow is a single column primary or foreign key.
type ConstraintRow struct {
	Name      string `db:"name"`
	Type      string `db:"type"`
	Table     string `db:"table_name"`
	Column    string `db:"column_name"`
	RefSchema string `db:"ref_schema"`
	RefTable  string `db:"ref_table"`
	RefColumn string `db:"ref_column"`
}

// GeometryRow is one row of geometry_columns.
type GeometryRow struct {
	Table      string `db:"f_table_name"`
	Column     string `db:"f_geometry_column"`
	Type       string `db:"type"`
	SRID       int    `db:"srid"`
	Dimensions int    `db:"coord_dimension"`
}

func kindOf(dataType, udtName string) ColumnKind {
	switch strings.ToLower(udtName) {
	case "int2", "int4", "int8", "oid":
		return KindInteger
	case "numeric", "float4", "float8", "decimal":
		return KindNumeric
	case "text", "varchar", "bpchar", "char", "name", "uuid":
		return KindText
	case "bool":
		return KindBoolean
	case "date":
		return KindDate
	case "timestamp", "timestamptz":
		return KindTimestamp
	case "geometry", "geography":
		return KindGeometry
	}
	if strings.EqualFold(dataType, "date") {
		return KindDate
	}
	return KindOther
}
