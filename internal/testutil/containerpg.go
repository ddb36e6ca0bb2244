package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// ContainerPG starts a throwaway PostgreSQL container, runs all migrations,
// and returns the *sql.DB plus a cleanup function that terminates the
// container. Skips the test when Docker is not available or -short is set.
//
// Prefer PGTest with POSTGRES_URL in CI where a shared database is cheaper;
// ContainerPG is for local runs with nothing but Docker installed.
func ContainerPG(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in -short mode")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("sentra_test"),
		tcpostgres.WithUsername("sentra"),
		tcpostgres.WithPassword("sentra"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("could not start postgres container (is Docker running?): %v", err)
	}

	terminate := func() {
		_ = testcontainers.TerminateContainer(ctr)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		t.Fatalf("containerpg: connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		terminate()
		t.Fatalf("containerpg: open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		terminate()
		t.Fatalf("containerpg: connect to database: %v", err)
	}

	migrationsDir := findMigrationsDir(t)
	if err := runMigrations(ctx, db, migrationsDir); err != nil {
		_ = db.Close()
		terminate()
		t.Fatalf("containerpg: run migrations: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		terminate()
	}

	return db, cleanup
}
