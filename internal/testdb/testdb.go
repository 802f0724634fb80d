// Package testdb provides a PostGIS database for integration tests. It uses
// MOSS_TEST_DSN when set and starts a container otherwise.
package testdb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/moss/pkg/database"
	"github.com/jmoiron/sqlx"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "postgis/postgis:16-3.4"

var (
	once      sync.Once
	sharedDSN string
	startErr  error
)

// Open connects to the integration database, skipping the test in short
// mode or when no database can be started.
func Open(t *testing.T) database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}

	once.Do(func() {
		if dsn := os.Getenv("MOSS_TEST_DSN"); dsn != "" {
			sharedDSN = dsn
			return
		}
		sharedDSN, startErr = start(context.Background())
	})
	if startErr != nil {
		t.Skipf("no database available: %v", startErr)
	}

	db, err := sqlx.Connect("postgres", sharedDSN)
	if err != nil {
		t.Fatalf("failed to connect to %s: %v", sharedDSN, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return database.NewDatabaseInstance(db, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

// Schema creates a fresh schema named after the test and drops it on cleanup.
func Schema(t *testing.T, db database.DB, ddl ...string) string {
	t.Helper()
	name := fmt.Sprintf("moss_test_%d", time.Now().UnixNano())
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA "+name); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), "DROP SCHEMA "+name+" CASCADE")
	})
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, fmt.Sprintf(stmt, name)); err != nil {
			t.Fatalf("failed to run %q: %v", stmt, err)
		}
	}
	return name
}

func start(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        image,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "moss",
			"POSTGRES_PASSWORD": "moss",
			"POSTGRES_DB":       "moss",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(120 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://moss:moss@%s:%s/moss?sslmode=disable", host, port.Port()), nil
}
