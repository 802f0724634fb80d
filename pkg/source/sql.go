package source

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/geometry"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"
)

// SQLReader reads records from PostgreSQL, joining every table of the chain
// on the shared primary key.
type SQLReader struct {
	db      database.Querier
	catalog *schema.Catalog
	srid    int
	logger  ectologger.Logger
}

func NewSQLReader(db database.Querier, catalog *schema.Catalog, srid int, logger ectologger.Logger) *SQLReader {
	return &SQLReader{
		db:      db,
		catalog: catalog,
		srid:    srid,
		logger:  logger,
	}
}

func (r *SQLReader) Catalog() *schema.Catalog {
	return r.catalog
}

type selectPlan struct {
	query    string
	args     []any
	idColumn string
	chain    []string
	columns  map[string]schema.Column
}

func (r *SQLReader) plan(table string, filter Filter) (*selectPlan, error) {
	chain, err := r.catalog.Chain(table)
	if err != nil {
		return nil, err
	}
	root, err := r.catalog.Entity(chain[0])
	if err != nil {
		return nil, err
	}
	if root.PrimaryKey == "" {
		return nil, errors.SchemaError("table %s.%s has no primary key", r.catalog.Schema, root.Table)
	}

	p := &selectPlan{idColumn: root.PrimaryKey, chain: chain, columns: map[string]schema.Column{}}
	sb := database.NewSelectBuilder()
	selects := []string{}
	for _, t := range chain {
		entity, err := r.catalog.Entity(t)
		if err != nil {
			return nil, err
		}
		for _, col := range entity.Columns {
			// the root wins on shared column names
			if _, seen := p.columns[col.Name]; seen {
				continue
			}
			p.columns[col.Name] = col
			if col.Kind == schema.KindGeometry {
				selects = append(selects, geometry.ReadExpr(t, col.Name, col.Geometry, r.srid))
				continue
			}
			selects = append(selects, database.Ident(t)+"."+database.Ident(col.Name))
		}
	}
	sb.Select(selects...)
	sb.From(database.Qualified(r.catalog.Schema, chain[0]))
	for i := 1; i < len(chain); i++ {
		on := fmt.Sprintf("%s.%s = %s.%s", database.Ident(chain[i]), database.Ident(p.idColumn), database.Ident(chain[0]), database.Ident(p.idColumn))
		sb.Join(database.Qualified(r.catalog.Schema, chain[i]), on)
	}

	idRef := database.Ident(chain[0]) + "." + database.Ident(p.idColumn)
	if !filter.Empty() {
		if len(filter.IDs) == 0 {
			sb.Where("1 = 0")
		} else {
			sb.Where(sb.In(idRef, sqlbuilder.Flatten(filter.IDs)...))
		}
	}
	sb.OrderBy(idRef)

	p.query, p.args = sb.Build()
	return p, nil
}

func (r *SQLReader) Rows(ctx context.Context, table string, filter Filter) ([]*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "SQLReader.Rows")
	defer span.End()

	p, err := r.plan(table, filter)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, table, p)
}

func (r *SQLReader) Get(ctx context.Context, table, id string) (*models.Record, error) {
	p, err := r.plan(table, Filter{IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	records, err := r.query(ctx, table, p)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

func (r *SQLReader) query(ctx context.Context, table string, p *selectPlan) ([]*models.Record, error) {
	rows, err := r.db.QueryxContext(ctx, p.query, p.args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to read %s.%s", r.catalog.Schema, table)
		return nil, errors.Wrapf(errors.KindSchemaError, err, "failed to read %s.%s", r.catalog.Schema, table)
	}
	defer rows.Close()

	records := []*models.Record{}
	for rows.Next() {
		raw := map[string]any{}
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s.%s: %w", r.catalog.Schema, table, err)
		}
		values := make(models.Row, len(raw))
		for name, v := range raw {
			nv, err := normalize(p.columns[name], v)
			if err != nil {
				return nil, errors.MappingError("invalid value: %v", err).AddClass(table).AddField(name)
			}
			values[name] = nv
		}
		records = append(records, &models.Record{
			Table:    table,
			Chain:    p.chain,
			IDColumn: p.idColumn,
			Values:   values,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s.%s: %w", r.catalog.Schema, table, err)
	}

	r.logger.WithContext(ctx).Debugf("read %d rows from %s.%s", len(records), r.catalog.Schema, table)
	return records, nil
}
