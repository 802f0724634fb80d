// Package exporter maps application rows into the transfer schema. Rules run
// in order; every row is staged in the target session and the session is
// flushed once, in dependency order, when every rule has run.
package exporter

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/session"
	"github.com/Ramsey-B/moss/pkg/source"
	"github.com/Ramsey-B/moss/pkg/tid"
	"github.com/Ramsey-B/moss/pkg/tracing"
	"github.com/Ramsey-B/moss/pkg/valuelist"
)

const unknownOrganisation = "unknown"

type Options struct {
	Rules    *mapping.ExportSet
	Reader   source.Reader
	Session  *session.Session
	Resolver *valuelist.Resolver
	// Subset is the closed selection; nil exports everything.
	Subset           *selection.Set
	Labels           []Label
	LabelOrientation float64
	DataOwner        string
	DataProvider     string
	SRID             int
	Now              time.Time
	Allocator        *tid.Allocator
	Warnings         *report.Collector
	Logger           ectologger.Logger
}

// Result summarises one export.
type Result struct {
	// Counts holds the rows written per target table.
	Counts   map[string]int
	Warnings []report.Warning
	Labels   int
}

type Exporter struct {
	opts   Options
	logger ectologger.Logger
}

func New(opts Options) *Exporter {
	if opts.Allocator == nil {
		opts.Allocator = tid.New()
	}
	if opts.Warnings == nil {
		opts.Warnings = report.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	}
	return &Exporter{opts: opts, logger: opts.Logger}
}

// Run maps every rule and flushes the target session.
func (e *Exporter) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "exporter.Run")
	defer span.End()

	set := e.opts.Rules
	if set == nil {
		return nil, errors.SchemaError("no export rules")
	}
	target := e.opts.Session.Catalog()
	if err := target.Require(targetClasses(set)...); err != nil {
		return nil, err
	}

	mc := mapping.NewContext(ctx, mapping.Options{
		Allocator:    e.opts.Allocator,
		Resolver:     e.opts.Resolver,
		Reader:       e.opts.Reader,
		Warnings:     e.opts.Warnings,
		Logger:       e.logger,
		Subset:       e.opts.Subset,
		Global:       set.Global,
		Qualified:    set.Qualified,
		SRID:         e.opts.SRID,
		DataOwner:    e.opts.DataOwner,
		DataProvider: e.opts.DataProvider,
		Now:          e.opts.Now,
	})

	if mc.Filtered() {
		e.logger.WithContext(ctx).Infof("exporting a selection of %d objects", e.opts.Subset.Len())
	}

	for _, rule := range set.Rules {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.KindCanceled, err, "export canceled")
		}
		if err := e.exportRule(ctx, mc, rule); err != nil {
			return nil, err
		}
	}

	labels, err := e.exportLabels(ctx, mc)
	if err != nil {
		return nil, err
	}

	if err := e.opts.Session.Flush(ctx); err != nil {
		return nil, err
	}

	return &Result{
		Counts:   e.opts.Session.Counts(),
		Warnings: e.opts.Warnings.Warnings(),
		Labels:   labels,
	}, nil
}

func (e *Exporter) exportRule(ctx context.Context, mc *mapping.Context, rule mapping.ExportRule) error {
	ctx, span := tracing.StartSpan(ctx, "exporter.exportRule", attribute.String("source", rule.Source))
	defer span.End()

	records, err := e.opts.Reader.Rows(ctx, rule.Source, e.filter(mc, rule))
	if err != nil {
		return errors.Wrapf(errors.KindSchemaError, err, "failed to read %s", rule.Source).AddClass(rule.Source)
	}

	emitted := 0
	for _, rec := range records {
		if rule.Scope != nil {
			ok, err := rule.Scope(mc, rec)
			if err != nil {
				return errors.Wrap(errors.KindMappingError, err, "failed to scope record").AddClass(rule.Source).AddObject(rec.ID())
			}
			if !ok {
				continue
			}
		}

		n, err := e.exportRecord(mc, rule, rec)
		if errors.Is(err, errors.KindReferentialDrop) {
			e.opts.Warnings.Addf(report.WarningRowSkipped, rule.Source, "", rec.ID(), "%v", err)
			e.logger.WithContext(ctx).WithError(err).Warnf("skipped %s %s", rule.Source, rec.ID())
			continue
		}
		if err != nil {
			return err
		}
		emitted += n
	}

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"source":  rule.Source,
		"records": len(records),
		"rows":    emitted,
	}).Debug("exported rule")
	return nil
}

// filter restricts the records of rules without a scope to the selection.
func (e *Exporter) filter(mc *mapping.Context, rule mapping.ExportRule) source.Filter {
	base := e.opts.Reader.Catalog().Base(rule.Source)
	if rule.Scope != nil || !mc.Filtered() || mc.Global(base) {
		return source.Filter{}
	}

	ids := []string{}
	for _, id := range e.opts.Subset.IDs() {
		if !e.opts.Rules.Qualified {
			ids = append(ids, id)
			continue
		}
		if rest, ok := strings.CutPrefix(id, base+":"); ok {
			ids = append(ids, rest)
		}
	}
	return source.Filter{IDs: ids}
}

type staged struct {
	target mapping.Target
	row    models.Row
	tid    int64
}

// exportRecord builds every target row of rec before staging any of them, so
// a record that fails part way leaves nothing behind.
func (e *Exporter) exportRecord(mc *mapping.Context, rule mapping.ExportRule, rec *models.Record) (int, error) {
	rows := []staged{}
	for _, target := range rule.Targets {
		if target.When != nil {
			ok, err := target.When(mc, rec)
			if err != nil {
				return 0, errors.Wrap(errors.KindMappingError, err, "failed to evaluate target").AddClass(target.Class).AddObject(rec.ID())
			}
			if !ok {
				continue
			}
		}

		t := e.opts.Allocator.For(rec, target.ForClass)
		mc.At(target.Class, rec.ID(), t)
		row, err := mapping.Build(mc, target, rec)
		if err != nil {
			return 0, err
		}
		if err := e.fill(target.Class, row, t); err != nil {
			return 0, err
		}
		rows = append(rows, staged{target: target, row: row, tid: t})
	}

	for _, s := range rows {
		if err := e.opts.Session.AddChain(s.target.Class, s.row, rec.ID()); err != nil {
			return 0, err
		}
		if rule.Metaattribute {
			if err := e.metaattribute(mc, rec, s.target, s.tid); err != nil {
				return 0, err
			}
		}
	}
	if len(rows) > 0 {
		mc.Accept(rec.Base(), rec.ID())
	}
	return len(rows), nil
}

// fill sets the bookkeeping columns of the transfer schema the rules leave
// out: the primary key, the class name and the transfer id.
func (e *Exporter) fill(class string, row models.Row, t int64) error {
	target := e.opts.Session.Catalog()
	chain, err := target.Chain(class)
	if err != nil {
		return err
	}
	root, err := target.Entity(chain[0])
	if err != nil {
		return err
	}

	row[root.PrimaryKey] = t
	if _, _, ok := target.Column(class, "t_type"); ok && !row.Has("t_type") {
		row["t_type"] = class
	}
	if _, _, ok := target.Column(class, "t_ili_tid"); ok && !row.Has("t_ili_tid") {
		if oid, ok := row.String("obj_id"); ok {
			row["t_ili_tid"] = oid
		} else {
			row["t_ili_tid"] = tid.OID(t)
		}
	}
	return nil
}

func targetClasses(set *mapping.ExportSet) []string {
	seen := map[string]bool{}
	out := []string{}
	add := func(class string) {
		if class != "" && !seen[class] {
			seen[class] = true
			out = append(out, class)
		}
	}
	for _, r := range set.Rules {
		for _, t := range r.Targets {
			add(t.Class)
		}
	}
	if set.Metaattribute != nil {
		add(set.Metaattribute.Class)
	}
	return out
}
