// Package session stages rows for one schema and writes them in dependency
// order. Before each flush the staged rows are checked: foreign keys must
// resolve to a known row, every chain level must be present and mandatory
// text columns are never NULL.
package session

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// Writer persists rows of one table.
type Writer interface {
	Insert(ctx context.Context, entity *schema.EntityDescriptor, rows []models.Row) error
}

type Session struct {
	catalog  *schema.Catalog
	writer   Writer
	warnings *report.Collector
	logger   ectologger.Logger
	staged   map[string][]models.Row
	order    []string
	known    map[string]map[string]bool
	flushed  map[string]int

	// objects maps table|key to the object id used in warnings
	objects map[string]string
}

func New(catalog *schema.Catalog, writer Writer, warnings *report.Collector, logger ectologger.Logger) *Session {
	return &Session{
		catalog:  catalog,
		writer:   writer,
		warnings: warnings,
		logger:   logger,
		staged:   map[string][]models.Row{},
		known:    map[string]map[string]bool{},
		flushed:  map[string]int{},
		objects:  map[string]string{},
	}
}

func (s *Session) Catalog() *schema.Catalog {
	return s.catalog
}

// Add stages a row of a single table. The primary key must be set and
// unique within the table.
func (s *Session) Add(table string, row models.Row) error {
	entity, err := s.catalog.Entity(table)
	if err != nil {
		return err
	}
	key, ok := row.String(entity.PrimaryKey)
	if !ok {
		return errors.IntegrityError("row without %s", entity.PrimaryKey).AddClass(table)
	}
	if s.known[table][key] {
		return errors.IntegrityError("duplicate %s %s", entity.PrimaryKey, key).AddClass(table)
	}
	if s.known[table] == nil {
		s.known[table] = map[string]bool{}
	}
	if _, ok := s.staged[table]; !ok {
		s.order = append(s.order, table)
	}
	s.known[table][key] = true
	s.staged[table] = append(s.staged[table], row)
	return nil
}

// AddChain splits values over the inheritance chain of leaf and stages one
// row per level, every row carrying the shared primary key.
func (s *Session) AddChain(leaf string, values models.Row, object string) error {
	chain, err := s.catalog.Chain(leaf)
	if err != nil {
		return err
	}
	root, err := s.catalog.Entity(chain[0])
	if err != nil {
		return err
	}
	pk, ok := values[root.PrimaryKey]
	if !ok || pk == nil {
		return errors.IntegrityError("row without %s", root.PrimaryKey).AddClass(leaf).AddObject(object)
	}

	parts := map[string]models.Row{}
	for _, t := range chain {
		parts[t] = models.Row{root.PrimaryKey: pk}
	}
	for name, v := range values {
		if name == root.PrimaryKey {
			continue
		}
		_, owner, ok := s.catalog.Column(leaf, name)
		if !ok {
			return errors.SchemaError("no column %s on %s.%s", name, s.catalog.Schema, leaf).AddClass(leaf).AddField(name)
		}
		parts[owner][name] = v
	}

	key := models.ToString(pk)
	for _, t := range chain {
		if err := s.Add(t, parts[t]); err != nil {
			return err
		}
		s.objects[t+"|"+key] = object
	}
	return nil
}

// Known reports whether a row with key is staged or flushed in table.
func (s *Session) Known(table string, key any) bool {
	if key == nil {
		return false
	}
	return s.known[table][models.ToString(key)]
}

// Counts returns the number of flushed rows per table.
func (s *Session) Counts() map[string]int {
	out := make(map[string]int, len(s.flushed))
	for k, v := range s.flushed {
		out[k] = v
	}
	return out
}

// Pending returns the number of staged rows.
func (s *Session) Pending() int {
	n := 0
	for _, rows := range s.staged {
		n += len(rows)
	}
	return n
}

// Flush checks and writes every staged row, parents and referenced tables
// first.
func (s *Session) Flush(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "Session.Flush")
	defer span.End()

	if len(s.staged) == 0 {
		return nil
	}

	for _, table := range s.order {
		if err := s.check(table); err != nil {
			return err
		}
	}

	tables, err := s.sorted()
	if err != nil {
		return err
	}
	for _, table := range tables {
		rows := s.staged[table]
		if len(rows) == 0 {
			continue
		}
		entity, err := s.catalog.Entity(table)
		if err != nil {
			return err
		}
		if err := s.writer.Insert(ctx, entity, rows); err != nil {
			s.logger.WithContext(ctx).WithError(err).Errorf("failed to write %d rows into %s.%s", len(rows), s.catalog.Schema, table)
			return errors.Wrapf(errors.KindIntegrityError, err, "failed to write %s.%s", s.catalog.Schema, table).AddClass(table)
		}
		s.flushed[table] += len(rows)
		s.logger.WithContext(ctx).Debugf("wrote %d rows into %s.%s", len(rows), s.catalog.Schema, table)
	}

	s.staged = map[string][]models.Row{}
	s.order = nil
	return nil
}

func (s *Session) check(table string) error {
	entity, err := s.catalog.Entity(table)
	if err != nil {
		return err
	}
	chain, err := s.catalog.Chain(table)
	if err != nil {
		return err
	}

	for _, row := range s.staged[table] {
		key := models.ToString(row[entity.PrimaryKey])
		object := s.objects[table+"|"+key]
		if object == "" {
			object = key
		}

		for _, ancestor := range chain[:len(chain)-1] {
			if !s.known[ancestor][key] {
				return errors.IntegrityError("missing %s row for %s %s", ancestor, entity.PrimaryKey, key).AddClass(table).AddObject(object)
			}
		}

		for _, fk := range entity.ForeignKeys {
			if fk.Column == entity.PrimaryKey || (fk.RefSchema != "" && fk.RefSchema != s.catalog.Schema) {
				continue
			}
			v, ok := row[fk.Column]
			if !ok || v == nil {
				continue
			}
			if s.known[fk.RefTable][models.ToString(v)] {
				continue
			}
			if !fk.Nullable {
				return errors.IntegrityError("%s %v does not resolve to a %s row", fk.Column, v, fk.RefTable).AddClass(table).AddObject(object).AddField(fk.Column)
			}
			row[fk.Column] = nil
			s.warnings.Addf(report.WarningFKDropped, table, fk.Column, object, "reference %v to %s not emitted, set to NULL", v, fk.RefTable)
		}

		for _, col := range entity.Columns {
			if col.Kind != schema.KindText {
				continue
			}
			v := row[col.Name]
			if v == nil {
				if col.Mandatory() && col.Name != entity.PrimaryKey {
					row[col.Name] = ""
					s.warnings.Addf(report.WarningNullToEmpty, table, col.Name, object, "mandatory value missing, empty string written")
				}
				continue
			}
			text := models.ToString(v)
			if col.MaxLength > 0 && utf8.RuneCountInString(text) > col.MaxLength {
				row[col.Name] = truncate(text, col.MaxLength)
				s.warnings.Addf(report.WarningTruncated, table, col.Name, object, "value of %d characters truncated to %d", utf8.RuneCountInString(text), col.MaxLength)
			}
		}
	}
	return nil
}

// sorted orders the staged tables so parents and referenced tables come
// first. Ties keep staging order; cycles fall back to staging order.
func (s *Session) sorted() ([]string, error) {
	pending := map[string]bool{}
	for _, t := range s.order {
		pending[t] = true
	}

	deps := map[string][]string{}
	for _, t := range s.order {
		entity, err := s.catalog.Entity(t)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		add := func(dep string) {
			if dep != t && pending[dep] && !seen[dep] {
				seen[dep] = true
				deps[t] = append(deps[t], dep)
			}
		}
		add(entity.Parent)
		for _, fk := range entity.ForeignKeys {
			if fk.RefSchema == "" || fk.RefSchema == s.catalog.Schema {
				add(fk.RefTable)
			}
		}
	}

	out := make([]string, 0, len(s.order))
	done := map[string]bool{}
	for len(out) < len(s.order) {
		progressed := false
		for _, t := range s.order {
			if done[t] {
				continue
			}
			ready := true
			for _, d := range deps[t] {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				done[t] = true
				out = append(out, t)
				progressed = true
			}
		}
		if progressed {
			continue
		}
		// cycle: emit the first pending table whose parent is written
		for _, t := range s.order {
			if done[t] {
				continue
			}
			entity, _ := s.catalog.Entity(t)
			if entity.Parent == "" || done[entity.Parent] || !pending[entity.Parent] {
				done[t] = true
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	var b strings.Builder
	i := 0
	for _, r := range s {
		if i == n {
			break
		}
		b.WriteRune(r)
		i++
	}
	return b.String()
}

// String describes the staged state for debug logs.
func (s *Session) String() string {
	return fmt.Sprintf("session(%s, %d staged)", s.catalog.Schema, s.Pending())
}
