package schema

import (
	"sort"

	"github.com/Ramsey-B/moss/pkg/errors"
)

// idColumns are the primary key names that mark a table as part of an
// inheritance chain when they reference the same column of another table.
var idColumns = map[string]bool{"obj_id": true, "id": true, "t_id": true}

// Catalog is the reflected view of one schema.
type Catalog struct {
	Schema   string
	entities map[string]*EntityDescriptor
	chains   map[string][]string
}

// Build assembles a catalog from raw catalog rows. parents overrides the
// detected parent of a table.
func Build(schemaName string, columns []ColumnRow, constraints []ConstraintRow, geometries []GeometryRow, parents map[string]string) (*Catalog, error) {
	c := &Catalog{
		Schema:   schemaName,
		entities: map[string]*EntityDescriptor{},
		chains:   map[string][]string{},
	}

	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].Table != columns[j].Table {
			return columns[i].Table < columns[j].Table
		}
		return columns[i].Position < columns[j].Position
	})

	geoms := map[string]GeometryRow{}
	for _, g := range geometries {
		geoms[g.Table+"."+g.Column] = g
	}

	for _, row := range columns {
		entity := c.entity(row.Table)
		col := Column{
			Name:       row.Column,
			Kind:       kindOf(row.DataType, row.UDTName),
			DataType:   row.UDTName,
			Nullable:   row.IsNullable == "YES",
			HasDefault: row.Default != nil,
		}
		if row.MaxLength != nil {
			col.MaxLength = *row.MaxLength
		}
		if g, ok := geoms[row.Table+"."+row.Column]; ok {
			col.Kind = KindGeometry
			col.Geometry = &GeometryType{Type: g.Type, SRID: g.SRID, Dimensions: g.Dimensions}
		}
		entity.Columns = append(entity.Columns, col)
	}

	for _, con := range constraints {
		entity, ok := c.entities[con.Table]
		if !ok {
			continue
		}
		switch con.Type {
		case "p":
			entity.PrimaryKey = con.Column
		case "f":
			col, _ := entity.Column(con.Column)
			entity.ForeignKeys = append(entity.ForeignKeys, ForeignKey{
				Name:      con.Name,
				Table:     con.Table,
				Column:    con.Column,
				RefSchema: con.RefSchema,
				RefTable:  con.RefTable,
				RefColumn: con.RefColumn,
				Nullable:  col.Nullable,
			})
		}
	}

	for _, entity := range c.entities {
		if entity.PrimaryKey == "" {
			for _, name := range []string{"t_id", "obj_id", "id"} {
				if _, ok := entity.Column(name); ok {
					entity.PrimaryKey = name
					break
				}
			}
		}
		if parent, ok := parents[entity.Table]; ok {
			entity.Parent = parent
			continue
		}
		entity.Parent = detectParent(schemaName, entity)
	}

	for _, entity := range c.entities {
		for _, fk := range entity.ForeignKeys {
			if fk.Column == entity.PrimaryKey && fk.RefTable == entity.Parent {
				continue
			}
			if fk.RefSchema != "" && fk.RefSchema != schemaName {
				continue
			}
			if target, ok := c.entities[fk.RefTable]; ok {
				target.BackRefs = append(target.BackRefs, fk)
			}
		}
	}

	for table := range c.entities {
		chain, err := c.buildChain(table)
		if err != nil {
			return nil, err
		}
		c.chains[table] = chain
	}

	return c, nil
}

// NewCatalog builds a catalog from ready descriptors.
func NewCatalog(schemaName string, entities ...*EntityDescriptor) (*Catalog, error) {
	c := &Catalog{Schema: schemaName, entities: map[string]*EntityDescriptor{}, chains: map[string][]string{}}
	for _, e := range entities {
		e.Schema = schemaName
		c.entities[e.Table] = e
	}
	for _, e := range entities {
		for _, fk := range e.ForeignKeys {
			if fk.Column == e.PrimaryKey && fk.RefTable == e.Parent {
				continue
			}
			if target, ok := c.entities[fk.RefTable]; ok {
				target.BackRefs = append(target.BackRefs, fk)
			}
		}
	}
	for table := range c.entities {
		chain, err := c.buildChain(table)
		if err != nil {
			return nil, err
		}
		c.chains[table] = chain
	}
	return c, nil
}

func detectParent(schemaName string, entity *EntityDescriptor) string {
	if !idColumns[entity.PrimaryKey] {
		return ""
	}
	for _, fk := range entity.ForeignKeys {
		if fk.RefSchema != "" && fk.RefSchema != schemaName {
			continue
		}
		if fk.Column == entity.PrimaryKey && fk.RefColumn == entity.PrimaryKey && fk.RefTable != entity.Table {
			return fk.RefTable
		}
	}
	return ""
}

func (c *Catalog) entity(table string) *EntityDescriptor {
	e, ok := c.entities[table]
	if !ok {
		e = &EntityDescriptor{Schema: c.Schema, Table: table}
		c.entities[table] = e
	}
	return e
}

func (c *Catalog) buildChain(table string) ([]string, error) {
	chain := []string{}
	seen := map[string]bool{}
	for current := table; current != ""; {
		if seen[current] {
			return nil, errors.SchemaError("inheritance cycle at %s.%s", c.Schema, current)
		}
		seen[current] = true
		chain = append([]string{current}, chain...)

		e, ok := c.entities[current]
		if !ok {
			return nil, errors.SchemaError("parent table %s.%s of %s does not exist", c.Schema, current, table)
		}
		current = e.Parent
	}
	return chain, nil
}

// Entity returns the descriptor of table or a schema error naming it.
func (c *Catalog) Entity(table string) (*EntityDescriptor, error) {
	e, ok := c.entities[table]
	if !ok {
		return nil, errors.SchemaError("table %s.%s does not exist", c.Schema, table)
	}
	return e, nil
}

func (c *Catalog) Has(table string) bool {
	_, ok := c.entities[table]
	return ok
}

// Chain returns the inheritance chain of table from root to leaf.
func (c *Catalog) Chain(table string) ([]string, error) {
	chain, ok := c.chains[table]
	if !ok {
		return nil, errors.SchemaError("table %s.%s does not exist", c.Schema, table)
	}
	return chain, nil
}

// Base returns the root of the chain of table, table itself when unknown.
func (c *Catalog) Base(table string) string {
	chain, ok := c.chains[table]
	if !ok || len(chain) == 0 {
		return table
	}
	return chain[0]
}

// IsA reports whether ancestor is part of the chain of table.
func (c *Catalog) IsA(table, ancestor string) bool {
	for _, t := range c.chains[table] {
		if t == ancestor {
			return true
		}
	}
	return false
}

// Require fails with a schema error naming the first missing table.
func (c *Catalog) Require(tables ...string) error {
	for _, t := range tables {
		if !c.Has(t) {
			return errors.SchemaError("required table %s.%s does not exist", c.Schema, t)
		}
	}
	return nil
}

// Relation resolves the foreign key stored in column anywhere along the
// chain of table.
func (c *Catalog) Relation(table, column string) (ForeignKey, error) {
	chain, err := c.Chain(table)
	if err != nil {
		return ForeignKey{}, err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if fk, ok := c.entities[chain[i]].ForeignKey(column); ok {
			return fk, nil
		}
	}
	return ForeignKey{}, errors.SchemaError("no foreign key on %s.%s.%s", c.Schema, table, column)
}

// Column finds column anywhere along the chain of table.
func (c *Catalog) Column(table, column string) (Column, string, bool) {
	for _, t := range c.chains[table] {
		if col, ok := c.entities[t].Column(column); ok {
			return col, t, true
		}
	}
	return Column{}, "", false
}

// Tables returns every table name in sorted order.
func (c *Catalog) Tables() []string {
	tables := make([]string, 0, len(c.entities))
	for t := range c.entities {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
