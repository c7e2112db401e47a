package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) < 2 {
			t.Fatalf("expected at least two migrations, got %d", len(migrations))
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		if migrations[0].Name != "create_rankings" {
			t.Errorf("expected first migration name create_rankings, got %q", migrations[0].Name)
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		applied, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if applied != 2 {
			t.Errorf("expected 2 migrations applied, got %d", applied)
		}

		for _, table := range []string{"videos", "video_daily_views", "runs", "run_plans"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM runs LIMIT 1"); err == nil {
			t.Error("runs table should be dropped after rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM videos LIMIT 1"); err != nil {
			t.Errorf("videos table should survive rollback of the latest migration: %v", err)
		}

		list, err := AppliedMigrations(db)
		if err != nil {
			t.Fatalf("failed to list applied migrations: %v", err)
		}
		if len(list) != 1 || list[0].Version != 0 {
			t.Errorf("expected only version 0 applied, got %+v", list)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		applied, err := RunMigrations(db)
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if applied != 0 {
			t.Errorf("expected no migrations on second run, got %d", applied)
		}
	})

	t.Run("Rollback Without Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := createMigrationsTable(db); err != nil {
			t.Fatalf("failed to create migrations table: %v", err)
		}
		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing to rollback")
		}
	})
}

func TestSplitStatements(t *testing.T) {
	script := `-- header; with a semicolon
CREATE TABLE a (id INTEGER); -- trailing
CREATE TABLE b (id INTEGER);

`
	got := splitStatements(script)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (id INTEGER)" {
		t.Errorf("unexpected first statement %q", got[0])
	}
}
