package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"

	mosscontext "github.com/Ramsey-B/moss/pkg/context"
	"github.com/Ramsey-B/moss/pkg/errors"
)

// Tx is the writing transaction of a run phase.
type Tx interface {
	Querier
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transaction wraps sqlx.Tx and tracks whether it has been closed. Closing it
// twice is a no-op, so a deferred rollback after a commit is safe.
type Transaction struct {
	*sqlx.Tx
	logger   ectologger.Logger
	started  time.Time
	isClosed bool
}

func NewTx(tx *sqlx.Tx, logger ectologger.Logger) Tx {
	return &Transaction{
		Tx:      tx,
		logger:  logger,
		started: time.Now(),
	}
}

// Begin opens a transaction on db.
func Begin(ctx context.Context, db DB, logger ectologger.Logger) (Tx, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		logger.WithContext(ctx).WithFields(mosscontext.Fields(ctx)).WithError(err).Error("failed to begin transaction")
		return nil, errors.Wrap(errors.KindSchemaError, err, "failed to begin transaction")
	}
	return NewTx(tx, logger), nil
}

// InTx runs fn in a transaction of its own. The transaction commits when fn
// succeeds and rolls back otherwise.
func InTx(ctx context.Context, db DB, logger ectologger.Logger, fn func(ctx context.Context, tx Tx) error) (err error) {
	tx, err := Begin(ctx, db, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t *Transaction) IsOpen() bool {
	return !t.isClosed
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	err := t.Tx.Rollback()
	t.isClosed = true
	if err != nil && !stderrors.Is(err, sql.ErrTxDone) {
		t.log(ctx).WithError(err).Error("failed to roll back transaction")
		return errors.Wrap(errors.KindIntegrityError, err, "failed to roll back transaction")
	}

	t.log(ctx).Debug("transaction rolled back")
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	err := t.Tx.Commit()
	t.isClosed = true
	if err != nil {
		t.log(ctx).WithError(err).Error("failed to commit transaction")
		return errors.Wrap(errors.KindIntegrityError, err, "failed to commit transaction")
	}

	t.log(ctx).Debug("transaction committed")
	return nil
}

func (t *Transaction) log(ctx context.Context) ectologger.Logger {
	fields := mosscontext.Fields(ctx)
	fields["held"] = time.Since(t.started).Round(time.Millisecond).String()
	return t.logger.WithContext(ctx).WithFields(fields)
}
