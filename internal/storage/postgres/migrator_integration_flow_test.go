package postgres

import (
	"context"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Чистое состояние: откатываем всё, что могли оставить прошлые прогоны.
	if err := store.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("reset: %v", err)
	}

	steps := []struct {
		name        string
		run         func() error
		wantVersion int64
		wantCount   int
	}{
		{name: "status on empty", run: func() error { return nil }},
		{name: "up one", run: func() error { return store.MigrateUp(ctx, 1) }, wantVersion: 1, wantCount: 1},
		{name: "up rest", run: func() error { return store.MigrateUp(ctx, 0) }, wantVersion: 2, wantCount: 2},
		{name: "up is idempotent", run: func() error { return store.EnsureSchema(ctx) }, wantVersion: 2, wantCount: 2},
		{name: "down one", run: func() error { return store.MigrateDown(ctx, 1) }, wantVersion: 1, wantCount: 1},
		{name: "down default step", run: func() error { return store.MigrateDown(ctx, 0) }},
		{name: "down on empty is no-op", run: func() error { return store.MigrateDown(ctx, 1) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		version, count, err := store.MigrationStatus(ctx)
		if err != nil {
			t.Fatalf("%s: status: %v", step.name, err)
		}
		if version != step.wantVersion || count != step.wantCount {
			t.Fatalf("%s: version=%d count=%d, want version=%d count=%d", step.name, version, count, step.wantVersion, step.wantCount)
		}
	}
}

func TestMigrator_NilStore(t *testing.T) {
	var store *Store
	ctx := context.Background()

	if err := store.MigrateUp(ctx, 0); err != errStoreNotInitialized {
		t.Fatalf("MigrateUp: expected errStoreNotInitialized, got %v", err)
	}
	if err := store.MigrateDown(ctx, 1); err != errStoreNotInitialized {
		t.Fatalf("MigrateDown: expected errStoreNotInitialized, got %v", err)
	}
	if _, _, err := store.MigrationStatus(ctx); err != errStoreNotInitialized {
		t.Fatalf("MigrationStatus: expected errStoreNotInitialized, got %v", err)
	}
	if err := store.Ping(ctx); err != errStoreNotInitialized {
		t.Fatalf("Ping: expected errStoreNotInitialized, got %v", err)
	}
}

func TestMigrator_UnsupportedDirection(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)
	if err := store.migrate(context.Background(), migrationDirection("sideways"), 0); err == nil {
		t.Fatal("expected unsupported direction error")
	}
}
