//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/safar/kavach-store/internal/database"
	"github.com/safar/kavach-store/internal/kavach"
	"github.com/safar/kavach-store/internal/seed"
	"github.com/safar/kavach-store/internal/store"
	"github.com/safar/kavach-store/migrations"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Product ids as assigned by the serial column when the default fixture is
// loaded into an empty database.
const (
	mala    int64 = 1 // 299, stock 25
	pyramid int64 = 2 // 899, stock 10
	yantra  int64 = 3 // 1499, stock 4
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:14-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgres, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	host, err := postgres.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := postgres.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	if _, err := database.Migrate(ctx, db, migrations.FS, database.Up); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close database: %v", err)
		}
		if err := postgres.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// setupSeeded starts a database loaded with the default fixture and returns
// the store and a kavach service on top of it.
func setupSeeded(t *testing.T, opts ...store.Option) (*store.Store, *kavach.Service, func()) {
	db, cleanup := setupTestDB(t)

	s := store.New(db, opts...)

	fixture, err := seed.Default()
	if err != nil {
		cleanup()
		t.Fatalf("Load fixture: %v", err)
	}
	if err := fixture.Apply(context.Background(), s.Repositories(), nil); err != nil {
		cleanup()
		t.Fatalf("Apply fixture: %v", err)
	}

	svc := kavach.NewService(s.Repositories(), kavach.WithClock(func() time.Time { return testNow }))
	return s, svc, cleanup
}
