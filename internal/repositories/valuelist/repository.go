package valuelist

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/tracing"
	"github.com/Ramsey-B/moss/pkg/valuelist"
)

// Repository loads value list tables of the application schema.
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

// LoadAll reads every table of catalog that has codeColumn and at least one
// label column.
func (r *Repository) LoadAll(ctx context.Context, catalog *schema.Catalog, codeColumn string) ([]valuelist.Entry, error) {
	ctx, span := tracing.StartSpan(ctx, "ValueListRepository.LoadAll")
	defer span.End()

	entries := []valuelist.Entry{}
	for _, table := range catalog.Tables() {
		entity, err := catalog.Entity(table)
		if err != nil {
			return nil, err
		}
		if _, ok := entity.Column(codeColumn); !ok {
			continue
		}

		labels := []string{}
		for _, lang := range valuelist.Languages {
			if _, ok := entity.Column(valuelist.LabelColumn(lang)); ok {
				labels = append(labels, valuelist.LabelColumn(lang))
			}
		}
		if len(labels) == 0 {
			continue
		}

		listEntries, err := r.load(ctx, catalog.Schema, table, codeColumn, labels)
		if err != nil {
			return nil, err
		}
		entries = append(entries, listEntries...)
	}

	r.logger.WithContext(ctx).WithField("schema", catalog.Schema).Debugf("loaded %d value list entries", len(entries))
	return entries, nil
}

func (r *Repository) load(ctx context.Context, schemaName, table, codeColumn string, labels []string) ([]valuelist.Entry, error) {
	sb := database.NewSelectBuilder()
	sb.Select(append([]string{codeColumn}, labels...)...)
	sb.From(database.Qualified(schemaName, table))

	query, args := sb.Build()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Errorf("failed to load value list %s.%s", schemaName, table)
		return nil, fmt.Errorf("failed to load value list %s.%s: %w", schemaName, table, err)
	}
	defer rows.Close()

	entries := []valuelist.Entry{}
	for rows.Next() {
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan value list %s.%s: %w", schemaName, table, err)
		}

		code, ok := models.Row(row).String(codeColumn)
		if !ok {
			continue
		}
		entry := valuelist.Entry{List: table, Code: code, Labels: map[valuelist.Language]string{}}
		for _, lang := range valuelist.Languages {
			if label, ok := models.Row(row).String(valuelist.LabelColumn(lang)); ok {
				entry.Labels[lang] = label
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
