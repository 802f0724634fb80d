package source

import (
	"context"
	"sort"

	"github.com/Gobusters/ectolinq"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/schema"
)

// MemoryReader serves records from per table rows held in memory. Rows of
// the tables of a chain are joined on the primary key like SQLReader does.
type MemoryReader struct {
	catalog *schema.Catalog
	tables  map[string][]models.Row
}

func NewMemoryReader(catalog *schema.Catalog) *MemoryReader {
	return &MemoryReader{
		catalog: catalog,
		tables:  map[string][]models.Row{},
	}
}

// Insert adds a row to a single table.
func (m *MemoryReader) Insert(table string, row models.Row) *MemoryReader {
	m.tables[table] = append(m.tables[table], row)
	return m
}

// InsertChain adds row to every table of the chain of table, each table
// receiving the columns it declares.
func (m *MemoryReader) InsertChain(table string, row models.Row) error {
	chain, err := m.catalog.Chain(table)
	if err != nil {
		return err
	}
	for _, t := range chain {
		entity, err := m.catalog.Entity(t)
		if err != nil {
			return err
		}
		part := models.Row{}
		for _, col := range entity.Columns {
			if v, ok := row[col.Name]; ok {
				part[col.Name] = v
			}
		}
		m.Insert(t, part)
	}
	return nil
}

func (m *MemoryReader) Catalog() *schema.Catalog {
	return m.catalog
}

func (m *MemoryReader) Rows(_ context.Context, table string, filter Filter) ([]*models.Record, error) {
	chain, err := m.catalog.Chain(table)
	if err != nil {
		return nil, err
	}
	root, err := m.catalog.Entity(chain[0])
	if err != nil {
		return nil, err
	}
	idColumn := root.PrimaryKey
	if idColumn == "" {
		return nil, errors.SchemaError("table %s.%s has no primary key", m.catalog.Schema, root.Table)
	}

	index := map[string]map[string]models.Row{}
	for _, t := range chain[1:] {
		byID := map[string]models.Row{}
		for _, row := range m.tables[t] {
			if id, ok := row.String(idColumn); ok {
				byID[id] = row
			}
		}
		index[t] = byID
	}

	records := []*models.Record{}
	for _, row := range m.tables[chain[0]] {
		id, ok := row.String(idColumn)
		if !ok {
			continue
		}
		if !filter.Empty() && !ectolinq.Contains(filter.IDs, id) {
			continue
		}

		values := row.Clone()
		complete := true
		for _, t := range chain[1:] {
			part, ok := index[t][id]
			if !ok {
				complete = false
				break
			}
			for k, v := range part {
				if _, seen := values[k]; !seen {
					values[k] = v
				}
			}
		}
		if !complete {
			continue
		}
		records = append(records, &models.Record{Table: table, Chain: chain, IDColumn: idColumn, Values: values})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].ID() < records[j].ID()
	})
	return records, nil
}

func (m *MemoryReader) Get(ctx context.Context, table, id string) (*models.Record, error) {
	records, err := m.Rows(ctx, table, Filter{IDs: []string{id}})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	return records[0], nil
}
