package orchestrator

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/moss/internal/repositories/catalog"
	"github.com/Ramsey-B/moss/internal/repositories/network"
	"github.com/Ramsey-B/moss/internal/repositories/valuelist"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/hooks"
	"github.com/Ramsey-B/moss/pkg/report"
	"github.com/Ramsey-B/moss/pkg/schema"
	"github.com/Ramsey-B/moss/pkg/selection"
	"github.com/Ramsey-B/moss/pkg/session"
	"github.com/Ramsey-B/moss/pkg/source"
	vl "github.com/Ramsey-B/moss/pkg/valuelist"
)

// Store is the database side of a run.
type Store interface {
	// Catalog reflects schemaName, failing when a required table is missing.
	Catalog(ctx context.Context, schemaName string, required ...string) (*schema.Catalog, error)
	// Forget drops the cached catalog of a schema the run recreated.
	Forget(schemaName string)
	Reader(catalog *schema.Catalog, srid int) source.Reader
	ValueLists(ctx context.Context, schemaName, codeColumn string) ([]vl.Entry, error)
	// Edges serves the network pairs of the application schema.
	Edges(reader source.Reader) selection.EdgeSource
	Begin(ctx context.Context) (Unit, error)
	// RunHook runs hook outside of any unit, one transaction per step.
	RunHook(ctx context.Context, hook *hooks.Hook, warnings *report.Collector) int
}

// Unit is the writing transaction of a run.
type Unit interface {
	Writer() session.Writer
	Exec(ctx context.Context, hook *hooks.Hook) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SQLStore is the PostgreSQL store. Source and target share one connection
// pool; the unit is the only writer.
type SQLStore struct {
	db        database.DB
	reflector *schema.Reflector
	logger    ectologger.Logger
}

func NewSQLStore(db database.DB, logger ectologger.Logger) *SQLStore {
	return newSQLStore(db, catalog.NewRepository(db, logger), logger)
}

func newSQLStore(db database.DB, src schema.Source, logger ectologger.Logger) *SQLStore {
	return &SQLStore{db: db, reflector: schema.NewReflector(src, logger), logger: logger}
}

// Catalog reflects each schema once. The orchestrator forgets the transfer
// schema whenever it recreates it.
func (s *SQLStore) Catalog(ctx context.Context, schemaName string, required ...string) (*schema.Catalog, error) {
	return s.reflector.Reflect(ctx, schemaName, required...)
}

func (s *SQLStore) Forget(schemaName string) {
	s.reflector.Forget(schemaName)
}

func (s *SQLStore) Reader(c *schema.Catalog, srid int) source.Reader {
	return source.NewSQLReader(s.db, c, srid, s.logger)
}

func (s *SQLStore) ValueLists(ctx context.Context, schemaName, codeColumn string) ([]vl.Entry, error) {
	c, err := s.Catalog(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	return valuelist.NewRepository(s.db, s.logger).LoadAll(ctx, c, codeColumn)
}

func (s *SQLStore) Edges(reader source.Reader) selection.EdgeSource {
	return network.NewRepository(s.db, reader.Catalog().Schema, s.logger)
}

func (s *SQLStore) Begin(ctx context.Context) (Unit, error) {
	tx, err := database.Begin(ctx, s.db, s.logger)
	if err != nil {
		return nil, err
	}
	return &sqlUnit{tx: tx, writer: session.NewSQLWriter(tx, s.logger)}, nil
}

func (s *SQLStore) RunHook(ctx context.Context, hook *hooks.Hook, warnings *report.Collector) int {
	return hook.Run(ctx, s.db, warnings)
}

type sqlUnit struct {
	tx     database.Tx
	writer *session.SQLWriter
}

func (u *sqlUnit) Writer() session.Writer {
	return u.writer
}

func (u *sqlUnit) Exec(ctx context.Context, hook *hooks.Hook) error {
	return hook.Exec(ctx, u.tx)
}

func (u *sqlUnit) Commit(ctx context.Context) error {
	if err := u.tx.Commit(ctx); err != nil {
		return errors.Wrap(errors.KindIntegrityError, err, "failed to commit")
	}
	return nil
}

func (u *sqlUnit) Rollback(ctx context.Context) error {
	return u.tx.Rollback(ctx)
}
