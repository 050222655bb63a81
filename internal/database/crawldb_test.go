package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/webindex/internal/model"
)

func setupTestDB(t *testing.T) *CrawlDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func startRun(t *testing.T, db *CrawlDB, seeds ...string) int64 {
	t.Helper()

	id, err := db.StartRun(context.Background(), RunConfig{Seeds: seeds, MaxDepth: 1, PageLimit: 50})
	if err != nil {
		t.Fatalf("failed to start run: %v", err)
	}
	return id
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "data")
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("expected database file to exist: %v", err)
		}
		if db.Path() != filepath.Join(dir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("reopens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		id := startRun(t, db, "https://example.com/")
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("unexpected error on reopen: %v", err)
		}
		defer db.Close()

		if _, err := db.GetRun(context.Background(), id); err != nil {
			t.Errorf("expected run to survive reopen, got %v", err)
		}
	})
}

func TestRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("start and finish", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		id := startRun(t, db, "https://a.example/", "https://b.example/")

		run, err := db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Status != RunRunning {
			t.Errorf("expected status running, got %s", run.Status)
		}
		if len(run.Seeds) != 2 || run.Seeds[1] != "https://b.example/" {
			t.Errorf("unexpected seeds %v", run.Seeds)
		}
		if run.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
		if time.Since(run.StartedAt) > time.Hour || time.Since(run.StartedAt) < -time.Hour {
			t.Errorf("StartedAt looks wrong: %v", run.StartedAt)
		}
		if !run.FinishedAt.IsZero() || run.Duration() != 0 {
			t.Error("expected unfinished run")
		}

		if err := db.FinishRun(ctx, id, 7, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		run, err = db.GetRun(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if run.Status != RunCompleted {
			t.Errorf("expected status completed, got %s", run.Status)
		}
		if run.Documents != 7 {
			t.Errorf("expected 7 documents, got %d", run.Documents)
		}
		if run.FinishedAt.IsZero() {
			t.Error("expected FinishedAt to be set")
		}
	})

	t.Run("finish status follows the error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		tests := []struct {
			err  error
			want RunStatus
		}{
			{context.Canceled, RunCanceled},
			{errors.New("disk full"), RunFailed},
		}
		for _, tt := range tests {
			id := startRun(t, db, "https://example.com/")
			if err := db.FinishRun(ctx, id, 0, tt.err); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			run, err := db.GetRun(ctx, id)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if run.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, run.Status)
			}
			if run.Error != tt.err.Error() {
				t.Errorf("expected error text %q, got %q", tt.err.Error(), run.Error)
			}
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.GetRun(ctx, 42); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
		if err := db.FinishRun(ctx, 42, 0, nil); !errors.Is(err, ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("list is newest first and limited", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		first := startRun(t, db, "https://1.example/")
		second := startRun(t, db, "https://2.example/")
		third := startRun(t, db, "https://3.example/")

		runs, err := db.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != third || runs[1].ID != second || runs[2].ID != first {
			t.Errorf("unexpected order: %d %d %d", runs[0].ID, runs[1].ID, runs[2].ID)
		}

		runs, err = db.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 2 {
			t.Errorf("expected 2 runs, got %d", len(runs))
		}
	})
}

func TestOutcomes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	id := startRun(t, db, "https://example.com/")

	outcomes := []model.Outcome{
		{URL: "https://example.com/", State: model.StateExtracted, StatusCode: 200,
			ContentType: "text/html", ContentHash: "abc", Duration: 120 * time.Millisecond},
		{URL: "https://example.com/private/", Depth: 1, State: model.StateRobotsDenied},
		{URL: "https://example.com/slow", Depth: 1, State: model.StateFetchError, Reason: "timeout"},
		{URL: "https://example.com/deep", Depth: 2, State: model.StateDepthExceeded},
	}
	for _, o := range outcomes {
		if err := db.InsertOutcome(ctx, id, o); err != nil {
			t.Fatalf("failed to insert outcome: %v", err)
		}
	}

	t.Run("duplicate URL in the same run is ignored", func(t *testing.T) {
		t.Parallel()

		other := startRun(t, db, "https://example.com/")
		o := model.Outcome{URL: "https://example.com/", State: model.StateExtracted}
		for range 2 {
			if err := db.InsertOutcome(ctx, other, o); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		got, err := db.ListOutcomes(ctx, other)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("expected 1 outcome, got %d", len(got))
		}
	})

	t.Run("list preserves order and fields", func(t *testing.T) {
		t.Parallel()

		got, err := db.ListOutcomes(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(outcomes) {
			t.Fatalf("expected %d outcomes, got %d", len(outcomes), len(got))
		}
		for i := range outcomes {
			if got[i] != outcomes[i] {
				t.Errorf("outcome %d: expected %+v, got %+v", i, outcomes[i], got[i])
			}
		}
	})

	t.Run("count by state", func(t *testing.T) {
		t.Parallel()

		counts, err := db.CountStates(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if counts[model.StateExtracted] != 1 || counts[model.StateRobotsDenied] != 1 ||
			counts[model.StateFetchError] != 1 || counts[model.StateDepthExceeded] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
		if counts[model.StateNonHTML] != 0 {
			t.Errorf("expected no non-html outcomes, got %d", counts[model.StateNonHTML])
		}
	})

	t.Run("recorder writes through", func(t *testing.T) {
		t.Parallel()

		run := startRun(t, db, "https://example.com/")
		rec := db.Recorder(ctx, run, nil)
		rec.RecordOutcome(model.Outcome{URL: "https://example.com/a", State: model.StateNonHTML})

		got, err := db.ListOutcomes(ctx, run)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].State != model.StateNonHTML {
			t.Errorf("unexpected outcomes %+v", got)
		}
	})
}

func TestCompareRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)

	insert := func(run int64, url, hash string, state model.State) {
		t.Helper()
		o := model.Outcome{URL: url, State: state, ContentHash: hash}
		if err := db.InsertOutcome(ctx, run, o); err != nil {
			t.Fatalf("failed to insert outcome: %v", err)
		}
	}

	from := startRun(t, db, "https://example.com/")
	insert(from, "https://example.com/", "h1", model.StateExtracted)
	insert(from, "https://example.com/a", "h2", model.StateExtracted)
	insert(from, "https://example.com/gone", "h3", model.StateExtracted)

	to := startRun(t, db, "https://example.com/")
	insert(to, "https://example.com/", "h1", model.StateExtracted)
	insert(to, "https://example.com/a", "h2-new", model.StateExtracted)
	insert(to, "https://example.com/new", "h4", model.StateExtracted)
	insert(to, "https://example.com/gone", "", model.StateFetchError)

	diff, err := db.CompareRuns(ctx, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diff.HasChanges() {
		t.Error("expected changes")
	}
	if len(diff.Added) != 1 || diff.Added[0] != "https://example.com/new" {
		t.Errorf("unexpected added %v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0] != "https://example.com/gone" {
		t.Errorf("unexpected removed %v", diff.Removed)
	}
	if len(diff.Changed) != 1 || diff.Changed[0] != "https://example.com/a" {
		t.Errorf("unexpected changed %v", diff.Changed)
	}
	if diff.Unchanged != 1 {
		t.Errorf("expected 1 unchanged, got %d", diff.Unchanged)
	}

	if _, err := db.CompareRuns(ctx, from, 999); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{"formatted", "2026-01-02 03:04:05.678", false},
		{"sqlite default", "2026-01-02 03:04:05", false},
		{"rfc3339", "2026-01-02T03:04:05Z", false},
		{"rfc3339 nano", "2026-01-02T03:04:05.123456789Z", false},
		{"garbage", "yesterday", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v", tt.input, got)
			}
		})
	}

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := parseTimestamp(formatTimestamp(now)); !got.Equal(now) {
		t.Errorf("expected round trip to %v, got %v", now, got)
	}
}
