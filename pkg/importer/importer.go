// Package importer maps the rows of a transfer schema back into the
// application schema. Each transfer row becomes one application object,
// written into every table of its inheritance chain.
package importer

import (
	"context"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/mapping"
	"github.com/Ramsey-B/moss/pkg/models"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/session"
	"github.com/Ramsey-B/moss/pkg/source"
	"github.com/Ramsey-B/moss/pkg/tracing"
	"github.com/Ramsey-B/moss/pkg/valuelist"
)

type Options struct {
	Rules *mapping.ImportSet
	// Reader reads the transfer schema.
	Reader source.Reader
	// Session stages application rows.
	Session  *session.Session
	Resolver *valuelist.Resolver
	SRID     int
	Warnings *report.Collector
	Logger   ectologger.Logger
}

type Result struct {
	Counts   map[string]int
	Warnings []report.Warning
	Skipped  int
}

type Importer struct {
	opts   Options
	logger ectologger.Logger
}

func New(opts Options) *Importer {
	if opts.Warnings == nil {
		opts.Warnings = report.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	}
	return &Importer{opts: opts, logger: opts.Logger}
}

// Run binds the identities of the transfer rows, maps every rule and flushes
// the application session.
func (i *Importer) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Run")
	defer span.End()

	set := i.opts.Rules
	if set == nil {
		return nil, errors.SchemaError("no import rules")
	}
	if err := i.opts.Reader.Catalog().Require(sources(set)...); err != nil {
		return nil, err
	}

	mc := mapping.NewContext(ctx, mapping.Options{
		Resolver: i.opts.Resolver,
		Reader:   i.opts.Reader,
		Warnings: i.opts.Warnings,
		Logger:   i.logger,
		SRID:     i.opts.SRID,
	})

	if set.Identities != nil {
		if err := set.Identities(mc); err != nil {
			return nil, errors.Wrap(errors.KindMappingError, err, "failed to bind identities")
		}
	}

	skipped := 0
	for _, rule := range set.Rules {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.KindCanceled, err, "import canceled")
		}
		n, err := i.importRule(ctx, mc, rule)
		if err != nil {
			return nil, err
		}
		skipped += n
	}

	if err := i.opts.Session.Flush(ctx); err != nil {
		return nil, err
	}

	return &Result{
		Counts:   i.opts.Session.Counts(),
		Warnings: i.opts.Warnings.Warnings(),
		Skipped:  skipped,
	}, nil
}

// importRule returns the number of records no target was chosen for.
func (i *Importer) importRule(ctx context.Context, mc *mapping.Context, rule mapping.ImportRule) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.importRule", attribute.String("source", rule.Source))
	defer span.End()

	records, err := i.opts.Reader.Rows(ctx, rule.Source, source.Filter{})
	if err != nil {
		return 0, errors.Wrapf(errors.KindSchemaError, err, "failed to read %s", rule.Source).AddClass(rule.Source)
	}

	skipped := 0
	for _, rec := range records {
		if rule.Scope != nil {
			ok, err := rule.Scope(mc, rec)
			if err != nil {
				return skipped, errors.Wrap(errors.KindMappingError, err, "failed to scope record").AddClass(rule.Source).AddObject(rec.ID())
			}
			if !ok {
				continue
			}
		}

		targets := rule.Targets
		if rule.Discriminator != nil {
			target, ok := rule.Discriminator.Choose(rec)
			if !ok {
				v, _ := rec.Values.String(rule.Discriminator.Column)
				i.opts.Warnings.Addf(report.WarningRowSkipped, rule.Source, rule.Discriminator.Column, rec.ID(), "no class for %s %q", rule.Discriminator.Column, v)
				skipped++
				continue
			}
			targets = []mapping.Target{target}
		}

		if err := i.importRecord(mc, targets, rec); err != nil {
			return skipped, err
		}
	}

	i.logger.WithContext(ctx).WithFields(map[string]any{
		"source":  rule.Source,
		"records": len(records),
		"skipped": skipped,
	}).Debug("imported rule")
	return skipped, nil
}

func (i *Importer) importRecord(mc *mapping.Context, targets []mapping.Target, rec *models.Record) error {
	for _, target := range targets {
		if target.When != nil {
			ok, err := target.When(mc, rec)
			if err != nil {
				return errors.Wrap(errors.KindMappingError, err, "failed to evaluate target").AddClass(target.Class).AddObject(rec.ID())
			}
			if !ok {
				continue
			}
		}

		mc.At(target.Class, rec.ID(), 0)
		row, err := mapping.Build(mc, target, rec)
		if err != nil {
			return err
		}
		if err := i.opts.Session.AddChain(target.Class, row, rec.ID()); err != nil {
			return err
		}
	}
	return nil
}

func sources(set *mapping.ImportSet) []string {
	out := make([]string, 0, len(set.Rules))
	for _, r := range set.Rules {
		out = append(out, r.Source)
	}
	return out
}
