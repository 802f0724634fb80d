package database_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/moss/internal/testdb"
	mosscontext "github.com/Ramsey-B/moss/pkg/context"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/Ramsey-B/moss/pkg/errors"
)

type captured struct {
	mu       sync.Mutex
	messages []ectologger.EctoLogMessage
}

func (c *captured) logger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.messages = append(c.messages, msg)
	})
}

func (c *captured) find(message string) (ectologger.EctoLogMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.messages {
		if m.Message == message {
			return m, true
		}
	}
	return ectologger.EctoLogMessage{}, false
}

func TestInTxCommitsStep(t *testing.T) {
	db := testdb.Open(t)
	schemaName := testdb.Schema(t, db, "CREATE TABLE %s.steps (name text)")
	logs := &captured{}

	ctx := mosscontext.SetPhase(mosscontext.SetRunID(context.Background(), "run-1"), "post_import")
	err := database.InTx(ctx, db, logs.logger(), func(ctx context.Context, tx database.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO "+schemaName+".steps VALUES ('refresh')")
		return err
	})
	require.NoError(t, err)

	names := []string{}
	require.NoError(t, db.SelectContext(context.Background(), &names, "SELECT name FROM "+schemaName+".steps"))
	assert.Equal(t, []string{"refresh"}, names)

	msg, ok := logs.find("transaction committed")
	require.True(t, ok)
	assert.Equal(t, "run-1", msg.Fields["run_id"])
	assert.Equal(t, "post_import", msg.Fields["phase"])
	assert.Contains(t, msg.Fields, "held")
}

func TestInTxRollsBackFailedStep(t *testing.T) {
	db := testdb.Open(t)
	schemaName := testdb.Schema(t, db, "CREATE TABLE %s.steps (name text)")
	logs := &captured{}
	boom := stderrors.New("trigger missing")

	err := database.InTx(context.Background(), db, logs.logger(), func(ctx context.Context, tx database.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO "+schemaName+".steps VALUES ('symbology')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, db.GetContext(context.Background(), &count, "SELECT count(*) FROM "+schemaName+".steps"))
	assert.Zero(t, count)

	_, ok := logs.find("transaction rolled back")
	assert.True(t, ok)
}

func TestTransactionClosesOnce(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	tx, err := database.Begin(ctx, db, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	require.NoError(t, err)
	assert.True(t, tx.IsOpen())

	require.NoError(t, tx.Commit(ctx))
	assert.False(t, tx.IsOpen())
	assert.NoError(t, tx.Commit(ctx))
	assert.NoError(t, tx.Rollback(ctx), "a deferred rollback after commit is a no-op")
}

func TestBeginCanceled(t *testing.T) {
	db := testdb.Open(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := database.Begin(ctx, db, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.KindSchemaError))
}
