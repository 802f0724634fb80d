package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/geometry"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// batchSize bounds the rows of one INSERT statement.
const batchSize = 500

// SQLWriter inserts rows through the open transaction of a run.
type SQLWriter struct {
	db     database.Querier
	logger ectologger.Logger
}

func NewSQLWriter(db database.Querier, logger ectologger.Logger) *SQLWriter {
	return &SQLWriter{
		db:     db,
		logger: logger,
	}
}

func (w *SQLWriter) Insert(ctx context.Context, entity *schema.EntityDescriptor, rows []models.Row) error {
	ctx, span := tracing.StartSpan(ctx, "SQLWriter.Insert")
	defer span.End()

	columns := usedColumns(entity, rows)
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		ib := database.NewInsertBuilder()
		ib.InsertInto(database.Qualified(entity.Schema, entity.Table))
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = database.Ident(c.Name)
		}
		ib.Cols(names...)

		for _, row := range rows[start:end] {
			values := make([]any, len(columns))
			for i, c := range columns {
				v, err := sqlValue(c, row[c.Name])
				if err != nil {
					return fmt.Errorf("%s.%s: %w", entity.Table, c.Name, err)
				}
				values[i] = v
			}
			ib.Values(values...)
		}

		query, args := ib.Build()
		if _, err := w.db.ExecContext(ctx, query, args...); err != nil {
			w.logger.WithContext(ctx).WithError(err).Errorf("failed to insert into %s.%s", entity.Schema, entity.Table)
			return fmt.Errorf("failed to insert into %s.%s: %w", entity.Schema, entity.Table, err)
		}
	}
	return nil
}

// usedColumns returns the catalog columns set by at least one row, in
// catalog order.
func usedColumns(entity *schema.EntityDescriptor, rows []models.Row) []schema.Column {
	used := map[string]bool{}
	for _, row := range rows {
		for name := range row {
			used[name] = true
		}
	}
	columns := []schema.Column{}
	for _, c := range entity.Columns {
		if used[c.Name] {
			columns = append(columns, c)
		}
	}
	return columns
}

func sqlValue(c schema.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if c.Kind != schema.KindGeometry {
		return v, nil
	}
	g, ok := v.(geometry.Value)
	if !ok {
		return nil, fmt.Errorf("expected geometry, got %T", v)
	}
	if g.Geometry == nil {
		return nil, nil
	}
	return geometry.WriteExpr(g, c.Geometry)
}

// MemoryWriter keeps written rows in memory.
type MemoryWriter struct {
	mu     sync.Mutex
	tables map[string][]models.Row
	order  []string
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{tables: map[string][]models.Row{}}
}

func (w *MemoryWriter) Insert(_ context.Context, entity *schema.EntityDescriptor, rows []models.Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, row := range rows {
		w.tables[entity.Table] = append(w.tables[entity.Table], row.Clone())
	}
	w.order = append(w.order, entity.Table)
	return nil
}

// Rows returns the rows written into table.
func (w *MemoryWriter) Rows(table string) []models.Row {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tables[table]
}

// Find returns the row of table whose column equals value.
func (w *MemoryWriter) Find(table, column string, value any) (models.Row, bool) {
	for _, row := range w.Rows(table) {
		if v, ok := row[column]; ok && v != nil && models.ToString(v) == models.ToString(value) {
			return row, true
		}
	}
	return nil, false
}

// Order returns the tables in the order their batches were written.
func (w *MemoryWriter) Order() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Tables returns every table written at least once.
func (w *MemoryWriter) Tables() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []string{}
	for t := range w.tables {
		out = append(out, t)
	}
	return out
}
