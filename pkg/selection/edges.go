package selection

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/source"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// Edge describes how to derive (from, to) pairs from the application schema.
// Without Via the pair is (Table.From, Table.To). With Via, Table.To is
// joined onto Via.Key and the pair is (Table.From, Via.Column).
type Edge struct {
	Name     string
	Table    string
	From     string
	To       string
	Via      *Via
	Contains bool
	// FromBase and ToBase namespace the ids with Key when set.
	FromBase string
	ToBase   string
}

type Via struct {
	Table  string
	Key    string
	Column string
}

// Pair is one derived edge.
type Pair struct {
	From string
	To   string
}

// EdgeSource loads the pairs of one edge.
type EdgeSource interface {
	Pairs(ctx context.Context, edge Edge) ([]Pair, error)
}

// LoadGraph builds the graph of edges from src.
func LoadGraph(ctx context.Context, src EdgeSource, edges []Edge, logger ectologger.Logger) (*Graph, error) {
	ctx, span := tracing.StartSpan(ctx, "selection.LoadGraph")
	defer span.End()

	g := NewGraph()
	for _, edge := range edges {
		pairs, err := src.Pairs(ctx, edge)
		if err != nil {
			return nil, fmt.Errorf("failed to load edge %s: %w", edge.Name, err)
		}
		for _, p := range pairs {
			from, to := p.From, p.To
			if edge.FromBase != "" {
				from = Key(edge.FromBase, from)
			}
			if edge.ToBase != "" {
				to = Key(edge.ToBase, to)
			}
			if edge.Contains {
				g.AddContains(from, to)
			} else {
				g.AddRequires(from, to)
			}
		}
		logger.WithContext(ctx).Debugf("edge %s: %d pairs", edge.Name, len(pairs))
	}
	return g, nil
}

// ReaderEdges derives pairs by scanning tables through a source reader.
type ReaderEdges struct {
	reader source.Reader
}

func NewReaderEdges(reader source.Reader) *ReaderEdges {
	return &ReaderEdges{reader: reader}
}

func (r *ReaderEdges) Pairs(ctx context.Context, edge Edge) ([]Pair, error) {
	records, err := r.reader.Rows(ctx, edge.Table, source.Filter{})
	if err != nil {
		return nil, err
	}

	var via map[string]models.Row
	if edge.Via != nil {
		viaRecords, err := r.reader.Rows(ctx, edge.Via.Table, source.Filter{})
		if err != nil {
			return nil, err
		}
		via = make(map[string]models.Row, len(viaRecords))
		for _, rec := range viaRecords {
			if key, ok := rec.Values.String(edge.Via.Key); ok {
				via[key] = rec.Values
			}
		}
	}

	pairs := []Pair{}
	for _, rec := range records {
		from, ok := rec.Values.String(edge.From)
		if !ok {
			continue
		}
		to, ok := rec.Values.String(edge.To)
		if !ok {
			continue
		}
		if edge.Via != nil {
			row, found := via[to]
			if !found {
				continue
			}
			if to, ok = row.String(edge.Via.Column); !ok {
				continue
			}
		}
		pairs = append(pairs, Pair{From: from, To: to})
	}
	return pairs, nil
}
