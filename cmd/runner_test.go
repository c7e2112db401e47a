package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/repositories"
	"github.com/desertthunder/plsync/internal/shared"
	tu "github.com/desertthunder/plsync/internal/testing"
)

type fixture struct {
	runner *Runner
	svc    *tu.MockPlaylistService
	db     *sql.DB
	output *bytes.Buffer
}

func testConfig() *shared.Config {
	config := &shared.Config{
		Pacing: shared.PacingConfig{
			Mutation: shared.Duration{Duration: -1},
			ListPage: shared.Duration{Duration: -1},
		},
		Targets: []models.PlaylistTarget{
			{Name: "shorts", PlaylistID: "PL-shorts", Kind: "shorts", Limit: 3},
		},
	}
	config.ApplyDefaults()
	return config
}

// newFixture wires a runner to an in-memory database ranking s1 > s2 > s3
// and a playlist currently holding [old s1].
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ranking := repositories.NewRankingRepository(db)
	for i, id := range []models.VideoID{"s1", "s2", "s3"} {
		v := repositories.Video{ID: id, Kind: "shorts", ViewCount: int64(300 - i*100)}
		if err := ranking.UpsertVideo(context.Background(), v); err != nil {
			t.Fatalf("failed to seed video: %v", err)
		}
	}

	svc := tu.NewMockPlaylistService(0)
	svc.Seed("PL-shorts", "old", "s1")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:  testConfig(),
		DB:      db,
		Service: svc,
		Clock:   func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) },
		Logger:  shared.DiscardLogger(),
		Output:  output,
	})

	return &fixture{runner: runner, svc: svc, db: db, output: output}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil service factory uses YouTube", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			_, err := runner.newService(context.Background(), shared.YouTubeConfig{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := []string{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}
		for _, want := range []string{"setup", "config", "reconcile", "plan", "history"} {
			if !slices.Contains(names, want) {
				t.Errorf("expected %s command, got %v", want, names)
			}
		}
	})
}

func TestReconcileCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("applies changes and records the run", func(t *testing.T) {
		f := newFixture(t)

		if err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile"}); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}

		want := []models.VideoID{"s1", "s2", "s3"}
		if got := f.svc.Contents("PL-shorts"); !slices.Equal(got, want) {
			t.Errorf("expected playlist %v, got %v", want, got)
		}
		if f.svc.Deletes != 1 || f.svc.Inserts != 2 {
			t.Errorf("expected 1 delete and 2 inserts, got %d and %d", f.svc.Deletes, f.svc.Inserts)
		}

		output := f.output.String()
		if !strings.Contains(output, "planned") || !strings.Contains(output, "shorts") {
			t.Errorf("expected report in output, got:\n%s", output)
		}

		runs, err := repositories.NewRunRepository(f.db).List(ctx, 10)
		if err != nil {
			t.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) != 1 || runs[0].Metrics.API.Insert != 2 || runs[0].DryRun {
			t.Errorf("unexpected recorded runs %+v", runs)
		}
	})

	t.Run("second run is identical", func(t *testing.T) {
		f := newFixture(t)
		if err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile"}); err != nil {
			t.Fatalf("first reconcile failed: %v", err)
		}
		f.output.Reset()

		if err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile", "--format", "json"}); err != nil {
			t.Fatalf("second reconcile failed: %v", err)
		}

		var result models.ExecutionResult
		if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
			t.Fatalf("expected JSON output, got %v:\n%s", err, f.output.String())
		}
		if len(result.Plans) != 1 || result.Plans[0].Status != models.StatusSkipIdentical {
			t.Errorf("expected skip_identical, got %+v", result.Plans)
		}
		if result.Metrics.API.Mutations() != 0 {
			t.Errorf("expected no mutations, got %+v", result.Metrics.API)
		}
	})

	t.Run("dry run leaves the playlist untouched", func(t *testing.T) {
		f := newFixture(t)

		if err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile", "--dry-run", "--no-save"}); err != nil {
			t.Fatalf("dry run failed: %v", err)
		}

		if got := f.svc.Contents("PL-shorts"); !slices.Equal(got, []models.VideoID{"old", "s1"}) {
			t.Errorf("expected playlist unchanged, got %v", got)
		}
		if f.svc.Inserts+f.svc.Deletes != 0 {
			t.Errorf("expected no mutating calls, got %d inserts and %d deletes", f.svc.Inserts, f.svc.Deletes)
		}

		runs, _ := repositories.NewRunRepository(f.db).List(ctx, 10)
		if len(runs) != 0 {
			t.Errorf("expected --no-save to skip recording, got %d runs", len(runs))
		}
	})

	t.Run("plan is a dry run", func(t *testing.T) {
		f := newFixture(t)

		if err := planCommand(f.runner).Run(ctx, []string{"plan", "--format", "markdown"}); err != nil {
			t.Fatalf("plan failed: %v", err)
		}

		if f.svc.Inserts+f.svc.Deletes != 0 {
			t.Error("expected plan not to mutate")
		}
		output := f.output.String()
		if !strings.Contains(output, "**Dry run**: true") || !strings.Contains(output, "- add `s2`") {
			t.Errorf("unexpected markdown:\n%s", output)
		}
	})

	t.Run("max-changes caps each direction", func(t *testing.T) {
		f := newFixture(t)

		if err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile", "--max-changes", "1"}); err != nil {
			t.Fatalf("reconcile failed: %v", err)
		}

		if got := f.svc.Contents("PL-shorts"); !slices.Equal(got, []models.VideoID{"s1", "s2"}) {
			t.Errorf("expected [s1 s2], got %v", got)
		}
	})

	t.Run("writes a report file", func(t *testing.T) {
		f := newFixture(t)
		path := filepath.Join(t.TempDir(), "report.md")

		if err := planCommand(f.runner).Run(ctx, []string{"plan", "--output", path}); err != nil {
			t.Fatalf("plan failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "### shorts") {
			t.Errorf("unexpected report:\n%s", content)
		}
	})

	t.Run("remote failure is recorded and returned", func(t *testing.T) {
		f := newFixture(t)
		f.runner.config.Targets[0].PlaylistID = "PL-missing"

		err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile"})
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
		}

		runs, _ := repositories.NewRunRepository(f.db).List(ctx, 10)
		if len(runs) != 1 || runs[0].Error == "" {
			t.Errorf("expected failed run to be recorded, got %+v", runs)
		}
		if !strings.Contains(f.output.String(), "failed") {
			t.Errorf("expected failure in report, got:\n%s", f.output.String())
		}
	})

	t.Run("rejects bad arguments before any remote call", func(t *testing.T) {
		tests := []struct {
			name string
			args []string
		}{
			{"negative max-changes", []string{"reconcile", "--max-changes=-1"}},
			{"partial window", []string{"reconcile", "--window-start", "2025-03-01"}},
			{"unknown target", []string{"reconcile", "--only", "vods"}},
			{"unknown format", []string{"reconcile", "--format", "csv"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFixture(t)

				err := reconcileCommand(f.runner).Run(ctx, tt.args)
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				if f.svc.Lists != 0 {
					t.Errorf("expected no remote calls, got %d list calls", f.svc.Lists)
				}

				runs, _ := repositories.NewRunRepository(f.db).List(ctx, 10)
				if len(runs) != 0 {
					t.Errorf("expected nothing recorded, got %d runs", len(runs))
				}
			})
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	if err := reconcileCommand(f.runner).Run(ctx, []string{"reconcile", "--format", "json"}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	var result models.ExecutionResult
	if err := json.Unmarshal(f.output.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode run: %v", err)
	}

	t.Run("list", func(t *testing.T) {
		f.output.Reset()
		if err := historyCommand(f.runner).Run(ctx, []string{"history", "list"}); err != nil {
			t.Fatalf("history list failed: %v", err)
		}
		if !strings.Contains(f.output.String(), result.RunID[:8]) {
			t.Errorf("expected run id in history, got:\n%s", f.output.String())
		}
	})

	t.Run("list target as JSON", func(t *testing.T) {
		f.output.Reset()
		if err := historyCommand(f.runner).Run(ctx, []string{"history", "list", "--target", "shorts", "--json"}); err != nil {
			t.Fatalf("history list failed: %v", err)
		}

		var records []repositories.PlanRecord
		if err := json.Unmarshal(f.output.Bytes(), &records); err != nil {
			t.Fatalf("expected JSON, got %v", err)
		}
		if len(records) != 1 || records[0].Inserted != 2 {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("show by prefix", func(t *testing.T) {
		f.output.Reset()
		if err := historyCommand(f.runner).Run(ctx, []string{"history", "show", "--format", "json", result.RunID[:8]}); err != nil {
			t.Fatalf("history show failed: %v", err)
		}

		var shown models.ExecutionResult
		if err := json.Unmarshal(f.output.Bytes(), &shown); err != nil {
			t.Fatalf("expected JSON, got %v", err)
		}
		if shown.RunID != result.RunID {
			t.Errorf("expected run %s, got %s", result.RunID, shown.RunID)
		}
	})

	t.Run("show unknown run", func(t *testing.T) {
		err := historyCommand(f.runner).Run(ctx, []string{"history", "show", "does-not-exist"})
		if !errors.Is(err, shared.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("prune", func(t *testing.T) {
		f.output.Reset()
		if err := historyCommand(f.runner).Run(ctx, []string{"history", "prune", "--keep", "0"}); err != nil {
			t.Fatalf("history prune failed: %v", err)
		}
		if !strings.Contains(f.output.String(), "Removed 1 runs") {
			t.Errorf("unexpected output %q", f.output.String())
		}
	})
}

func TestConfigCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("init and validate", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: output})

		if err := configCommand(runner).Run(ctx, []string{"config", "init", "--config", path}); err != nil {
			t.Fatalf("config init failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if err := configCommand(runner).Run(ctx, []string{"config", "init", "--config", path}); err == nil {
			t.Error("expected error when config already exists")
		}

		if err := configCommand(runner).Run(ctx, []string{"config", "validate", "--config", path}); err != nil {
			t.Fatalf("config validate failed: %v", err)
		}
		for _, want := range []string{"Configuration OK", "shorts", "recent", "ordered-rebuild", "window=00:00-00:30"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("validate output missing %q, got:\n%s", want, output.String())
			}
		}
	})

	t.Run("validate missing file", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})
		path := filepath.Join(t.TempDir(), "missing.toml")

		err := configCommand(runner).Run(ctx, []string{"config", "validate", "--config", path})
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})
}

func TestSetupCommand(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	f.runner.config = nil

	if err := setupCommand(f.runner).Run(context.Background(), []string{"setup", "--config", path}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, path)
	output := f.output.String()
	for _, want := range []string{"Created", "migration 0000", "migration 0001", "shorts", "3 videos"} {
		if !strings.Contains(output, want) {
			t.Errorf("setup output missing %q, got:\n%s", want, output)
		}
	}
}
