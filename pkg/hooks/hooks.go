// Package hooks runs the SQL procedures that surround a bulk import into
// the application schema: symbology triggers are dropped before the rows are
// written and recreated afterwards, followed by the back-fill and refresh
// procedures that keep derived columns and views current.
package hooks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// Step is one statement of a hook.
type Step struct {
	Name string
	SQL  string
}

// Hook is an ordered list of validated steps.
type Hook struct {
	name   string
	steps  []Step
	logger ectologger.Logger
}

// New validates every step. A malformed statement fails here rather than
// after the import committed.
func New(name string, steps []Step, logger ectologger.Logger) (*Hook, error) {
	for _, s := range steps {
		if err := Validate(s.SQL); err != nil {
			return nil, errors.SchemaError("invalid %s step %s: %v", name, s.Name, err)
		}
	}
	return &Hook{name: name, steps: steps, logger: logger}, nil
}

func (h *Hook) Name() string {
	return h.name
}

// WithLogger returns a copy of h logging to logger.
func (h *Hook) WithLogger(logger ectologger.Logger) *Hook {
	c := *h
	c.logger = logger
	return &c
}

func (h *Hook) Steps() []Step {
	return h.steps
}

// Exec runs every step on q and stops at the first failure. It is used
// inside the import transaction, which the caller rolls back on error.
func (h *Hook) Exec(ctx context.Context, q database.Querier) error {
	ctx, span := tracing.StartSpan(ctx, "Hook.Exec")
	defer span.End()

	for _, s := range h.steps {
		start := time.Now()
		if _, err := q.ExecContext(ctx, s.SQL); err != nil {
			h.logger.WithContext(ctx).WithError(err).WithField("step", s.Name).Errorf("%s step failed", h.name)
			return errors.Wrapf(errors.KindMappingError, err, "%s step %s failed", h.name, s.Name)
		}
		h.logger.WithContext(ctx).WithField("step", s.Name).Infof("%s step done in %s", h.name, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// Run executes every step in its own transaction. A failing step is rolled
// back and recorded as a warning; the remaining steps still run. Run returns
// the number of failed steps.
func (h *Hook) Run(ctx context.Context, db database.DB, warnings *report.Collector) int {
	ctx, span := tracing.StartSpan(ctx, "Hook.Run")
	defer span.End()

	failed := 0
	for _, s := range h.steps {
		if err := h.runStep(ctx, db, s); err != nil {
			failed++
			h.logger.WithContext(ctx).WithError(err).WithField("step", s.Name).Warnf("%s step failed", h.name)
			warnings.Addf(report.WarningHook, h.name, "", s.Name, "%v", err)
		}
	}
	return failed
}

func (h *Hook) runStep(ctx context.Context, db database.DB, s Step) error {
	start := time.Now()
	err := database.InTx(ctx, db, h.logger, func(ctx context.Context, tx database.Tx) error {
		_, err := tx.ExecContext(ctx, s.SQL)
		return err
	})
	if err != nil {
		return err
	}
	h.logger.WithContext(ctx).WithField("step", s.Name).Infof("%s step done in %s", h.name, time.Since(start).Round(time.Millisecond))
	return nil
}

// Validate checks that sql is a single statement with balanced parentheses
// and quotes.
func Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("empty statement")
	}

	depth := 0
	var quote rune
	statements := 1
	trailing := false
	for i, r := range sql {
		if quote != 0 {
			if r == quote {
				quote = 0
			}
			continue
		}
		if trailing && !isSpace(r) {
			statements++
			trailing = false
		}
		switch r {
		case '\'', '"':
			quote = r
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("unbalanced ')' at offset %d", i)
			}
		case ';':
			if depth > 0 {
				return fmt.Errorf("';' inside parentheses at offset %d", i)
			}
			trailing = true
		}
	}
	switch {
	case quote != 0:
		return fmt.Errorf("unterminated %c quote", quote)
	case depth > 0:
		return fmt.Errorf("%d unclosed '('", depth)
	case statements > 1:
		return fmt.Errorf("%d statements, expected one", statements)
	}
	return nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
