package orchestrator

import (
	"context"

	"github.com/Gobusters/ectologger"

	mosscontext "github.com/Ramsey-B/moss/pkg/context"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/hooks"
	"github.com/Ramsey-B/moss/pkg/importer"
	"github.com/Ramsey-B/moss/pkg/rules"
	"github.com/Ramsey-B/moss/pkg/session"
)

type ImportRequest struct {
	XTF string `json:"xtf" validate:"required"`
	// Model skips detection when set.
	Model          string `json:"model,omitempty"`
	SkipValidation bool   `json:"skip_validation,omitempty"`
}

// Import loads a transfer file into the application schema: the file is
// validated and loaded into a fresh transfer schema, the import mapper
// writes the application rows in one unit and the post import hook runs
// once they are committed.
func (o *Orchestrator) Import(ctx context.Context, req ImportRequest) *Result {
	ctx, r := o.start(ctx, DirectionImport)
	return r.finish(ctx, o.importFile(ctx, r, req))
}

func (o *Orchestrator) importFile(ctx context.Context, r *run, req ImportRequest) error {
	if req.XTF == "" {
		return errors.InvalidInput("no transfer file given")
	}

	model := req.Model
	if model == "" {
		var err error
		if model, err = o.Detect(req.XTF); err != nil {
			return err
		}
	}
	set, err := o.opts.Registry.Lookup(model)
	if err != nil {
		return err
	}
	r.result.Model = model
	ctx = mosscontext.SetModel(ctx, model)

	pre, err := hooks.New("pre_import", set.PreImport, o.logger)
	if err != nil {
		return err
	}
	post, err := hooks.New("post_import", set.PostImport, o.logger)
	if err != nil {
		return err
	}

	release, err := o.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = r.step(ctx, "validate", func(ctx context.Context, logger ectologger.Logger, toolLog string) error {
		if req.SkipValidation || o.cfg.SkipValidation {
			logger.WithContext(ctx).Info("validation skipped")
			return nil
		}
		err := o.opts.Tools.Validate(ctx, req.XTF, toolLog)
		if errors.Is(err, errors.KindToolFailure) {
			return errors.InvalidInput("%s failed validation: %v", req.XTF, err).WithLog(errors.LogPathOf(err))
		}
		return err
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, "schema_import", func(ctx context.Context, _ ectologger.Logger, toolLog string) error {
		if err := o.opts.Tools.SchemaImport(ctx, o.cfg.TargetSchema, set.Model, toolLog, true); err != nil {
			return err
		}
		o.opts.Store.Forget(o.cfg.TargetSchema)
		return nil
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, "xtf_import", func(ctx context.Context, _ ectologger.Logger, toolLog string) error {
		return o.opts.Tools.XTFImport(ctx, o.cfg.TargetSchema, req.XTF, toolLog)
	})
	if err != nil {
		return err
	}

	err = r.step(ctx, "mapping", func(ctx context.Context, logger ectologger.Logger, _ string) error {
		return o.importMapping(ctx, r, set, pre, logger)
	})
	if err != nil {
		return err
	}

	return r.step(ctx, "post_import", func(ctx context.Context, logger ectologger.Logger, _ string) error {
		if failed := o.opts.Store.RunHook(ctx, post.WithLogger(logger), r.warnings); failed > 0 {
			logger.WithContext(ctx).Warnf("%d of %d post import steps failed", failed, len(post.Steps()))
		}
		return nil
	})
}

// importMapping disables the symbology triggers and writes the application
// rows in one unit.
func (o *Orchestrator) importMapping(ctx context.Context, r *run, set *rules.Set, pre *hooks.Hook, logger ectologger.Logger) (err error) {
	transfer, err := o.opts.Store.Catalog(ctx, o.cfg.TargetSchema)
	if err != nil {
		return err
	}
	app, err := o.opts.Store.Catalog(ctx, o.appSchema(set))
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

	if err = unit.Exec(ctx, pre.WithLogger(logger)); err != nil {
		return err
	}

	result, err := importer.New(importer.Options{
		Rules:    set.Import,
		Reader:   o.opts.Store.Reader(transfer, o.cfg.SRID),
		Session:  session.New(app, unit.Writer(), r.warnings, logger),
		Resolver: resolver,
		SRID:     o.cfg.SRID,
		Warnings: r.warnings,
		Logger:   logger,
	}).Run(ctx)
	if err != nil {
		return err
	}
	if err = canceled(ctx, "import"); err != nil {
		return err
	}
	if err = unit.Commit(ctx); err != nil {
		return err
	}

	addCounts(r.result.Counts, result.Counts)
	logger.WithContext(ctx).WithField("counts", result.Counts).Infof("imported, %d records without class", result.Skipped)
	return nil
}
