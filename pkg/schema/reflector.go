package schema

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/tracing"
)

// Source reads the raw relational catalog.
type Source interface {
	Columns(ctx context.Context, schemaName string) ([]ColumnRow, error)
	Constraints(ctx context.Context, schemaName string) ([]ConstraintRow, error)
	Geometries(ctx context.Context, schemaName string) ([]GeometryRow, error)
}

// Reflector reflects each schema once and caches the result for the
// lifetime of a run.
type Reflector struct {
	source  Source
	logger  ectologger.Logger
	parents map[string]map[string]string
	mu      sync.Mutex
	cache   map[string]*Catalog
}

func NewReflector(source Source, logger ectologger.Logger) *Reflector {
	return &Reflector{
		source:  source,
		logger:  logger,
		parents: map[string]map[string]string{},
		cache:   map[string]*Catalog{},
	}
}

// SetParents declares inheritance links for a schema that lacks the
// primary key constraints used for detection.
func (r *Reflector) SetParents(schemaName string, parents map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parents[schemaName] = parents
	delete(r.cache, schemaName)
}

// Forget drops the cached catalog of a schema that was recreated.
func (r *Reflector) Forget(schemaName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, schemaName)
}

// Reflect returns the catalog of schemaName and fails with a schema error
// naming the first of required that is missing.
func (r *Reflector) Reflect(ctx context.Context, schemaName string, required ...string) (*Catalog, error) {
	ctx, span := tracing.StartSpan(ctx, "schema.Reflect")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	catalog, ok := r.cache[schemaName]
	if !ok {
		var err error
		catalog, err = r.reflect(ctx, schemaName)
		if err != nil {
			return nil, err
		}
		r.cache[schemaName] = catalog
	}

	if err := catalog.Require(required...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("schema is missing a required table")
		return nil, err
	}
	return catalog, nil
}

func (r *Reflector) reflect(ctx context.Context, schemaName string) (*Catalog, error) {
	log := r.logger.WithContext(ctx).WithField("schema", schemaName)

	columns, err := r.source.Columns(ctx, schemaName)
	if err != nil {
		log.WithError(err).Error("failed to read columns")
		return nil, errors.Wrapf(errors.KindSchemaError, err, "failed to read columns of %s", schemaName)
	}
	if len(columns) == 0 {
		return nil, errors.SchemaError("schema %s does not exist or has no tables", schemaName)
	}

	constraints, err := r.source.Constraints(ctx, schemaName)
	if err != nil {
		log.WithError(err).Error("failed to read constraints")
		return nil, errors.Wrapf(errors.KindSchemaError, err, "failed to read constraints of %s", schemaName)
	}

	geometries, err := r.source.Geometries(ctx, schemaName)
	if err != nil {
		log.WithError(err).Error("failed to read geometry columns")
		return nil, errors.Wrapf(errors.KindSchemaError, err, "failed to read geometry columns of %s", schemaName)
	}

	catalog, err := Build(schemaName, columns, constraints, geometries, r.parents[schemaName])
	if err != nil {
		return nil, err
	}

	log.Debugf("reflected %d tables", len(catalog.entities))
	return catalog, nil
}
