package fixtures

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Statement is one statement received by Querier.
type Statement struct {
	Query string
	Args  []any
}

// Querier records executed statements. Queries are not supported.
type Querier struct {
	mu         sync.Mutex
	Statements []Statement
	// Fail makes statements containing a key fail with its error.
	Fail map[string]error
}

func (q *Querier) record(query string, args []any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Statements = append(q.Statements, Statement{Query: query, Args: args})
	for fragment, err := range q.Fail {
		if strings.Contains(query, fragment) {
			return err
		}
	}
	return nil
}

// Queries returns the text of every recorded statement.
func (q *Querier) Queries() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.Statements))
	for i, s := range q.Statements {
		out[i] = s.Query
	}
	return out
}

func (q *Querier) DriverName() string     { return "postgres" }
func (q *Querier) Rebind(s string) string { return s }

func (q *Querier) BindNamed(query string, _ any) (string, []any, error) {
	return query, nil, nil
}

func (q *Querier) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	if err := q.record(query, args); err != nil {
		return nil, err
	}
	return driver.RowsAffected(1), nil
}

func (q *Querier) QueryContext(_ context.Context, query string, args ...any) (*sql.Rows, error) {
	_ = q.record(query, args)
	return nil, fmt.Errorf("queries are not supported")
}

func (q *Querier) QueryxContext(_ context.Context, query string, args ...any) (*sqlx.Rows, error) {
	_ = q.record(query, args)
	return nil, fmt.Errorf("queries are not supported")
}

func (q *Querier) QueryRowxContext(_ context.Context, query string, args ...any) *sqlx.Row {
	_ = q.record(query, args)
	return nil
}

func (q *Querier) GetContext(_ context.Context, _ any, query string, args ...any) error {
	_ = q.record(query, args)
	return fmt.Errorf("queries are not supported")
}

func (q *Querier) SelectContext(_ context.Context, _ any, query string, args ...any) error {
	_ = q.record(query, args)
	return fmt.Errorf("queries are not supported")
}
