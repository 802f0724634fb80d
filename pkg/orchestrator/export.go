package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Gobusters/ectologger"

	mosscontext "github.com/Ramsey-B/moss/pkg/context"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/exporter"
	"github.com/Ramsey-B/moss/pkg/rules"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/session"
	"github.com/Ramsey-B/moss/pkg/source"
)

type ExportRequest struct {
	// XTF is the transfer file to write.
	XTF string `json:"xtf" validate:"required"`
	// Model overrides TARGET_MODEL.
	Model string `json:"model,omitempty"`
	// Selection holds the object ids to export together with their closure.
	// Empty exports everything.
	Selection []string `json:"selection,omitempty"`
	// Labels overrides LABELS_FILE.
	Labels         string `json:"labels,omitempty"`
	SkipValidation bool   `json:"skip_validation,omitempty"`
}

// Export writes the application schema into a transfer file: the transfer
// schema is created, filled by the export mapper and serialised by the
// tool, and the file is validated. A file failing validation is left in
// place.
func (o *Orchestrator) Export(ctx context.Context, req ExportRequest) *Result {
	ctx, r := o.start(ctx, DirectionExport)
	return r.finish(ctx, o.export(ctx, r, req))
}

func (o *Orchestrator) export(ctx context.Context, r *run, req ExportRequest) error {
	if req.XTF == "" {
		return errors.InvalidInput("no transfer file given")
	}

	model := req.Model
	if model == "" {
		model = o.cfg.TargetModel
	}
	set, err := o.opts.Registry.Lookup(model)
	if err != nil {
		return err
	}
	r.result.Model = model
	ctx = mosscontext.SetModel(ctx, model)

	labelsPath := req.Labels
	if labelsPath == "" {
		labelsPath = o.cfg.LabelsFile
	}
	var labels []exporter.Label
	if labelsPath != "" {
		if labels, err = exporter.LoadLabelsFile(labelsPath); err != nil {
			return err
		}
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = r.step(ctx, "schema_import", func(ctx context.Context, _ ectologger.Logger, toolLog string) error {
		if err := o.opts.Tools.SchemaImport(ctx, o.cfg.TargetSchema, set.Model, toolLog, o.cfg.RecreateSchema); err != nil {
			return err
		}
		o.opts.Store.Forget(o.cfg.TargetSchema)
		return nil
	})
	if err != nil {
		return err
	}

	var (
		reader source.Reader
		subset *selection.Set
	)
	err = r.step(ctx, "selection", func(ctx context.Context, logger ectologger.Logger, _ string) error {
		catalog, err := o.opts.Store.Catalog(ctx, o.appSchema(set), set.SourceTables()...)
		if err != nil {
			return err
		}
		reader = o.opts.Store.Reader(catalog, o.cfg.SRID)

		if len(req.Selection) == 0 {
			logger.WithContext(ctx).Info("no selection, exporting everything")
			return nil
		}
		graph, err := selection.LoadGraph(ctx, o.opts.Store.Edges(reader), set.Edges, logger)
		if err != nil {
			return errors.Wrap(errors.KindSchemaError, err, "failed to load network")
		}
		subset = selection.Close(selection.NewSet(req.Selection...), graph)
		logger.WithContext(ctx).Infof("selection of %d objects closed to %d", len(req.Selection), subset.Len())
		return nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, "mapping", func(ctx context.Context, logger ectologger.Logger, _ string) error {
		return o.exportMapping(ctx, r, set, reader, subset, labels, logger)
	})
	if err != nil {
		return err
	}

	if dir := filepath.Dir(req.XTF); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.InvalidInput("cannot create %s: %v", dir, err)
		}
	}
	err = r.step(ctx, "xtf_export", func(ctx context.Context, _ ectologger.Logger, toolLog string) error {
		return o.opts.Tools.XTFExport(ctx, o.cfg.TargetSchema, set.Model, o.exportModel(set), req.XTF, toolLog)
	})
	if err != nil {
		return err
	}

	return r.step(ctx, "validate", func(ctx context.Context, logger ectologger.Logger, toolLog string) error {
		if req.SkipValidation || o.cfg.SkipValidation {
			logger.WithContext(ctx).Info("validation skipped")
			return nil
		}
		return o.opts.Tools.Validate(ctx, req.XTF, toolLog)
	})
}

func (o *Orchestrator) exportModel(set *rules.Set) string {
	if o.cfg.ExportModel != "" {
		return o.cfg.ExportModel
	}
	return set.ExportModel
}

// exportMapping fills the transfer schema in one unit. Nothing is committed
// when the mapper fails.
func (o *Orchestrator) exportMapping(ctx context.Context, r *run, set *rules.Set, reader source.Reader, subset *selection.Set, labels []exporter.Label, logger ectologger.Logger) (err error) {
	target, err := o.opts.Store.Catalog(ctx, o.cfg.TargetSchema, set.TargetClasses()...)
	if err != nil {
		return err
	}
	resolver, err := o.resolver(ctx, set)
	if err != nil {
		return err
	}

	unit, err := o.opts.Store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := unit.Rollback(context.WithoutCancel(ctx)); rerr != nil {
				logger.WithContext(ctx).WithError(rerr).Error("failed to roll back")
			}
		}
	}()

	result, err := exporter.New(exporter.Options{
		Rules:            set.Export,
		Reader:           reader,
		Session:          session.New(target, unit.Writer(), r.warnings, logger),
		Resolver:         resolver,
		Subset:           subset,
		Labels:           labels,
		LabelOrientation: o.cfg.LabelOrientation,
		DataOwner:        o.cfg.DefaultDataOwner,
		DataProvider:     o.cfg.DefaultDataProvider,
		SRID:             o.cfg.SRID,
		Now:              o.opts.Now(),
		Warnings:         r.warnings,
		Logger:           logger,
	}).Run(ctx)
	if err != nil {
		return err
	}
	if err = canceled(ctx, "export"); err != nil {
		return err
	}
	if err = unit.Commit(ctx); err != nil {
		return err
	}

	addCounts(r.result.Counts, result.Counts)
	r.result.Labels = result.Labels
	logger.WithContext(ctx).WithField("counts", result.Counts).Infof("exported %d labels", result.Labels)
	return nil
}
