package catalog

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/tracing"
	"github.com/huandu/go-sqlbuilder"
)

// Repository reads table, constraint and geometry metadata from the
// PostgreSQL catalog. It implements schema.Source.
type Repository struct {
	db     database.Querier
	logger ectologger.Logger
}

func NewRepository(db database.Querier, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Columns lists every column of every base table in schemaName.
func (r *Repository) Columns(ctx context.Context, schemaName string) ([]schema.ColumnRow, error) {
	ctx, span := tracing.StartSpan(ctx, "CatalogRepository.Columns")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("c.table_name", "c.column_name", "c.ordinal_position", "c.data_type", "c.udt_name",
		"c.character_maximum_length", "c.is_nullable", "c.column_default")
	sb.From("information_schema.columns c")
	sb.Join("information_schema.tables t", "t.table_schema = c.table_schema", "t.table_name = c.table_name")
	sb.Where(
		sb.Equal("c.table_schema", schemaName),
		sb.Equal("t.table_type", "BASE TABLE"),
	)
	sb.OrderBy("c.table_name", "c.ordinal_position")

	query, args := sb.Build()

	rows := []schema.ColumnRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list columns")
		return nil, fmt.Errorf("failed to list columns of %s: %w", schemaName, err)
	}
	return rows, nil
}

// Constraints lists the single column primary and foreign keys of schemaName.
func (r *Repository) Constraints(ctx context.Context, schemaName string) ([]schema.ConstraintRow, error) {
	ctx, span := tracing.StartSpan(ctx, "CatalogRepository.Constraints")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select(
		"con.conname AS name",
		"con.contype::text AS type",
		"cl.relname AS table_name",
		"att.attname AS column_name",
		"COALESCE(fns.nspname, '') AS ref_schema",
		"COALESCE(fcl.relname, '') AS ref_table",
		"COALESCE(fatt.attname, '') AS ref_column",
	)
	sb.From("pg_catalog.pg_constraint con")
	sb.Join("pg_catalog.pg_class cl", "cl.oid = con.conrelid")
	sb.Join("pg_catalog.pg_namespace ns", "ns.oid = cl.relnamespace")
	sb.Join("pg_catalog.pg_attribute att", "att.attrelid = con.conrelid", "att.attnum = con.conkey[1]")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "pg_catalog.pg_class fcl", "fcl.oid = con.confrelid")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "pg_catalog.pg_namespace fns", "fns.oid = fcl.relnamespace")
	sb.JoinWithOption(sqlbuilder.LeftJoin, "pg_catalog.pg_attribute fatt", "fatt.attrelid = con.confrelid", "fatt.attnum = con.confkey[1]")
	sb.Where(
		sb.Equal("ns.nspname", schemaName),
		"con.contype IN ('p', 'f')",
		"array_length(con.conkey, 1) = 1",
	)
	sb.OrderBy("cl.relname", "con.conname")

	query, args := sb.Build()

	rows := []schema.ConstraintRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list constraints")
		return nil, fmt.Errorf("failed to list constraints of %s: %w", schemaName, err)
	}
	return rows, nil
}

// Geometries lists the registered geometry columns of schemaName.
func (r *Repository) Geometries(ctx context.Context, schemaName string) ([]schema.GeometryRow, error) {
	ctx, span := tracing.StartSpan(ctx, "CatalogRepository.Geometries")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("f_table_name", "f_geometry_column", "type", "srid", "coord_dimension")
	sb.From("geometry_columns")
	sb.Where(sb.Equal("f_table_schema", schemaName))

	query, args := sb.Build()

	rows := []schema.GeometryRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list geometry columns")
		return nil, fmt.Errorf("failed to list geometry columns of %s: %w", schemaName, err)
	}
	return rows, nil
}
