package network

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// Repository derives network edges with one query per edge. It implements
// selection.EdgeSource.
type Repository struct {
	db         database.Querier
	schemaName string
	logger     ectologger.Logger
}

func NewRepository(db database.Querier, schemaName string, logger ectologger.Logger) *Repository {
	return &Repository{
		db:         db,
		schemaName: schemaName,
		logger:     logger,
	}
}

type pairRow struct {
	From string `db:"from_id"`
	To   string `db:"to_id"`
}

// Query returns the statement loading the pairs of edge.
func (r *Repository) Query(edge selection.Edge) (string, []any) {
	t := "t." + database.Ident(edge.From)
	to := "t." + database.Ident(edge.To)

	sb := database.NewSelectBuilder()
	sb.From(database.Qualified(r.schemaName, edge.Table) + " t")
	if edge.Via != nil {
		sb.Join(database.Qualified(r.schemaName, edge.Via.Table)+" v",
			fmt.Sprintf("v.%s = %s", database.Ident(edge.Via.Key), to))
		to = "v." + database.Ident(edge.Via.Column)
	}
	sb.Select(t+"::text AS from_id", to+"::text AS to_id")
	sb.Where(sb.IsNotNull(t), sb.IsNotNull(to))
	sb.OrderBy("from_id", "to_id")
	return sb.Build()
}

func (r *Repository) Pairs(ctx context.Context, edge selection.Edge) ([]selection.Pair, error) {
	ctx, span := tracing.StartSpan(ctx, "NetworkRepository.Pairs")
	defer span.End()

	query, args := r.Query(edge)
	rows := []pairRow{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("edge", edge.Name).Error("failed to load network edge")
		return nil, fmt.Errorf("failed to load edge %s: %w", edge.Name, err)
	}

	pairs := make([]selection.Pair, len(rows))
	for i, row := range rows {
		pairs[i] = selection.Pair{From: row.From, To: row.To}
	}
	return pairs, nil
}
