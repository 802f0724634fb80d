// Package orchestrator sequences the phases of an import or export run:
// the external tools, the selection closure, the mappers and the hooks.
// Every phase writes its own log file and reports a progress milestone.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"time"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/moss/config"
	mosscontext "github.com/Ramsey-B/moss/pkg/context"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/lock"
	"github.com/Ramsey-B/moss/pkg/logging"
	"github.com/Ramsey-B/moss/pkg/metrics"
	"github.com/Ramsey-B/moss/pkg/progress"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/rules"
	"github.com/Ramsey-B/moss/pkg/rules/builtin"
	"github.com/Ramsey-B/moss/pkg/tracing"
	"github.com/Ramsey-B/moss/pkg/valuelist"
	"github.com/Ramsey-B/moss/pkg/xtf"
)

// Tools are the external INTERLIS tools.
type Tools interface {
	Validate(ctx context.Context, xtfFile, logPath string) error
	SchemaImport(ctx context.Context, targetSchema, model, logPath string, recreate bool) error
	XTFImport(ctx context.Context, targetSchema, xtfFile, logPath string) error
	XTFExport(ctx context.Context, targetSchema, model, exportModel, xtfFile, logPath string) error
}

type Options struct {
	Config   *config.Config
	Registry *rules.Registry
	Store    Store
	Tools    Tools
	Locker   lock.Locker
	// Sink receives progress next to the run log. It is shared by runs and
	// never closed by one.
	Sink   progress.Sink
	Logs   *logging.Factory
	Logger ectologger.Logger
	Now    func() time.Time
}

type Orchestrator struct {
	opts   Options
	cfg    *config.Config
	logger ectologger.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Registry == nil {
		opts.Registry = builtin.Registry()
	}
	if opts.Locker == nil {
		opts.Locker = lock.NewMemoryLocker()
	}
	if opts.Logger == nil {
		opts.Logger = opts.Logs.Logger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{opts: opts, cfg: opts.Config, logger: opts.Logger}
}

// Detect returns the model of the transfer file at path.
func (o *Orchestrator) Detect(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.InvalidInput("cannot open %s: %v", path, err)
	}
	defer f.Close()

	declared, err := xtf.DeclaredModels(f)
	if err != nil {
		return "", err
	}
	model, ok := o.opts.Registry.Pick(declared)
	if !ok {
		return "", errors.InvalidInput("%s declares no supported model (found %v)", path, declared)
	}
	return model, nil
}

// Validate checks a transfer file with the validator.
func (o *Orchestrator) Validate(ctx context.Context, path string) *Result {
	ctx, r := o.start(ctx, DirectionValidate)
	err := r.step(ctx, "validate", func(ctx context.Context, _ ectologger.Logger, toolLog string) error {
		return o.opts.Tools.Validate(ctx, path, toolLog)
	})
	return r.finish(ctx, err)
}

func (o *Orchestrator) appSchema(set *rules.Set) string {
	if o.cfg.SourceSchema != "" {
		return o.cfg.SourceSchema
	}
	return set.AppSchema
}

func (o *Orchestrator) valueListSchema(set *rules.Set) string {
	if o.cfg.ValueListSchema != "" {
		return o.cfg.ValueListSchema
	}
	return set.ValueListSchema
}

func (o *Orchestrator) language(set *rules.Set) valuelist.Language {
	if o.cfg.ValueLanguage != "" {
		return valuelist.Language(o.cfg.ValueLanguage)
	}
	return set.Language
}

// resolver loads the value lists of the application schema.
func (o *Orchestrator) resolver(ctx context.Context, set *rules.Set) (*valuelist.Resolver, error) {
	entries, err := o.opts.Store.ValueLists(ctx, o.valueListSchema(set), set.CodeColumn)
	if err != nil {
		return nil, err
	}
	translations, err := valuelist.DefaultTranslations()
	if err != nil {
		return nil, errors.Wrap(errors.KindSchemaError, err, "failed to load translations")
	}
	return valuelist.NewResolver(o.language(set), entries, translations), nil
}

// acquire locks the target schema for the run.
func (o *Orchestrator) acquire(ctx context.Context) (func(), error) {
	if err := canceled(ctx, "run"); err != nil {
		return nil, err
	}
	l, err := o.opts.Locker.Acquire(ctx, o.cfg.TargetSchema)
	if err != nil {
		return nil, errors.Wrapf(errors.KindInvalidInput, err, "cannot lock %s", o.cfg.TargetSchema)
	}
	return func() {
		if err := l.Release(context.WithoutCancel(ctx)); err != nil {
			o.logger.WithContext(ctx).WithError(err).Warnf("failed to release %s", l.Key())
		}
	}, nil
}

// run is the state of one orchestrated run.
type run struct {
	o        *Orchestrator
	id       string
	result   *Result
	tracker  *progress.Tracker
	warnings *report.Collector
	started  time.Time
}

func (o *Orchestrator) start(ctx context.Context, direction string) (context.Context, *run) {
	ctx, id := mosscontext.NewRun(ctx)
	ctx = mosscontext.SetDirection(ctx, direction)

	var sink progress.Sink = progress.NewLogSink(o.logger)
	if o.opts.Sink != nil {
		sink = progress.Multi{sink, progress.NoClose(o.opts.Sink)}
	}

	metrics.RunsInFlight.Inc()
	o.logger.WithContext(ctx).WithFields(mosscontext.Fields(ctx)).Infof("%s run started", direction)

	return ctx, &run{
		o:        o,
		id:       id,
		result:   &Result{RunID: id, Direction: direction, Counts: map[string]int{}, Warnings: []report.Warning{}},
		tracker:  progress.NewTracker(sink, id, direction, o.logger),
		warnings: report.NewCollector(),
		started:  o.opts.Now(),
	}
}

// phaseFunc runs one phase. logger writes to the phase log; toolLog is the
// sibling file handed to an external tool.
type phaseFunc func(ctx context.Context, logger ectologger.Logger, toolLog string) error

// step runs fn as phase name and reports the next milestone on success.
func (r *run) step(ctx context.Context, name string, fn phaseFunc) (err error) {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.KindCanceled, err, name+" canceled")
	}

	ctx = mosscontext.SetPhase(ctx, name)
	ctx, span := tracing.StartSpan(ctx, "orchestrator."+name, attribute.String("run_id", r.id))
	defer span.End()

	phase, err := r.o.opts.Logs.Phase(r.id, name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := phase.Close(); cerr != nil {
			r.o.logger.WithContext(ctx).WithError(cerr).Warnf("failed to close %s", phase.Path)
		}
	}()
	r.result.LogPath = phase.Path

	logger := phase.Logger
	start := time.Now()
	err = fn(ctx, logger, r.o.opts.Logs.Path(r.id, name+"-tool"))
	r.result.Warnings = append(r.result.Warnings, r.warnings.Flush(ctx, logger)...)

	if err != nil {
		span.RecordError(err)
		logger.WithContext(ctx).WithError(err).Errorf("%s failed", name)
		var e *errors.Error
		if stderrors.As(err, &e) {
			e.WithLog(phase.Path)
			return err
		}
		return errors.Wrap(errors.KindOf(err), err, name+" failed").WithLog(phase.Path)
	}

	logger.WithContext(ctx).Infof("%s done in %s", name, time.Since(start).Round(time.Millisecond))
	r.tracker.Next(ctx, name+" done")
	return nil
}

// finish closes the progress sink and records the outcome.
func (r *run) finish(ctx context.Context, err error) *Result {
	res := r.result
	res.Status = StatusOf(err)
	res.Err = err
	if err != nil {
		res.Error = err.Error()
		if path := errors.LogPathOf(err); path != "" {
			res.LogPath = path
		}
	} else {
		r.tracker.Step(ctx, 100, "done")
	}
	r.tracker.Close()

	elapsed := r.o.opts.Now().Sub(r.started)
	res.Duration = elapsed.Round(time.Millisecond).String()

	metrics.RunsInFlight.Dec()
	metrics.ObserveRun(res.Direction, string(res.Status), elapsed)
	metrics.ObserveRows(res.Direction, res.Counts)
	metrics.ObserveWarnings(res.Direction, res.Warnings)

	logger := r.o.logger.WithContext(ctx).WithFields(map[string]any{
		"run_id":   res.RunID,
		"status":   string(res.Status),
		"log":      res.LogPath,
		"warnings": len(res.Warnings),
		"duration": res.Duration,
	})
	if err != nil {
		logger.WithError(err).Errorf("%s run failed", res.Direction)
	} else {
		logger.Infof("%s run finished", res.Direction)
	}
	return res
}

func addCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}

func canceled(ctx context.Context, what string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.KindCanceled, err, fmt.Sprintf("%s canceled", what))
	}
	return nil
}
