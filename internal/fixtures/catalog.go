// Package fixtures builds catalogs shaped like the application and transfer
// schemas, for tests that run without PostgreSQL.
package fixtures

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ramsey-B/moss/pkg/schema"
)

// table describes one table: columns are given as
// "name kind [maxlen] [!] [->table]" where kind is one of int, num, text,
// bool, date, ts or a geometry type, ! marks NOT NULL and -> a foreign key.
type table struct {
	name    string
	pk      string
	parent  string
	columns []string
}

func t(name, pk, parent string, columns ...string) table {
	return table{name: name, pk: pk, parent: parent, columns: columns}
}

var geometryKinds = map[string]string{
	"point":         "POINT",
	"line":          "LINESTRING",
	"compoundcurve": "COMPOUNDCURVE",
	"polygon":       "POLYGON",
	"curvepolygon":  "CURVEPOLYGON",
}

func build(schemaName string, pkKind string, tables ...table) *schema.Catalog {
	entities := make([]*schema.EntityDescriptor, 0, len(tables))
	for _, tb := range tables {
		e := &schema.EntityDescriptor{Table: tb.name, PrimaryKey: tb.pk, Parent: tb.parent}
		e.Columns = append(e.Columns, schema.Column{Name: tb.pk, Kind: schema.ColumnKind(pkKind)})
		if tb.parent != "" {
			e.ForeignKeys = append(e.ForeignKeys, schema.ForeignKey{
				Name: tb.name + "_" + tb.pk + "_fkey", Table: tb.name, Column: tb.pk,
				RefTable: tb.parent, RefColumn: tb.pk,
			})
		}
		for _, spec := range tb.columns {
			col, fk := parseColumn(tb.name, spec)
			e.Columns = append(e.Columns, col)
			if fk != nil {
				e.ForeignKeys = append(e.ForeignKeys, *fk)
			}
		}
		entities = append(entities, e)
	}
	c, err := schema.NewCatalog(schemaName, entities...)
	if err != nil {
		panic(err)
	}
	return c
}

func parseColumn(tableName, spec string) (schema.Column, *schema.ForeignKey) {
	fields := strings.Fields(spec)
	if len(fields) < 2 {
		panic(fmt.Sprintf("invalid column spec %q", spec))
	}
	col := schema.Column{Name: fields[0], Nullable: true}
	switch kind := fields[1]; kind {
	case "int":
		col.Kind = schema.KindInteger
	case "num":
		col.Kind = schema.KindNumeric
	case "text":
		col.Kind = schema.KindText
	case "bool":
		col.Kind = schema.KindBoolean
	case "date":
		col.Kind = schema.KindDate
	case "ts":
		col.Kind = schema.KindTimestamp
	default:
		gt, ok := geometryKinds[kind]
		if !ok {
			panic(fmt.Sprintf("unknown kind %q", kind))
		}
		col.Kind = schema.KindGeometry
		col.Geometry = &schema.GeometryType{Type: gt, SRID: 2056, Dimensions: 2}
	}

	var fk *schema.ForeignKey
	for _, f := range fields[2:] {
		switch {
		case f == "!":
			col.Nullable = false
		case strings.HasPrefix(f, "->"):
			ref := strings.TrimPrefix(f, "->")
			fk = &schema.ForeignKey{Name: tableName + "_" + col.Name + "_fkey", Table: tableName, Column: col.Name}
			if i := strings.Index(ref, "."); i >= 0 {
				fk.RefSchema, ref = ref[:i], ref[i+1:]
			}
			fk.RefTable = ref
		default:
			n, err := strconv.Atoi(f)
			if err != nil {
				panic(fmt.Sprintf("invalid column spec %q", spec))
			}
			col.MaxLength = n
		}
	}
	if fk != nil {
		fk.Nullable = col.Nullable
	}
	return col, fk
}
