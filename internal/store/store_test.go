package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/firecheck/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	// File-backed so each test gets its own database
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(id string, verdict model.OverallVerdict, started time.Time) *model.StatementResult {
	return &model.StatementResult{
		RunID:          id,
		Statement:      "statement " + id,
		Claims:         []string{"a", "b"},
		OverallVerdict: verdict,
		Confidence:     0.8,
		Judgments: []model.Judgment{
			{Claim: "a", Verdict: model.VerdictSupported, SearchQueries: []string{"q"}, IterationsUsed: 2},
			model.FailedJudgment("b", errors.New("timeout")),
		},
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := sampleResult("run-1", model.OverallContainsUnsupported, time.Now().UTC().Truncate(time.Second))

	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Statement != want.Statement || got.OverallVerdict != want.OverallVerdict {
		t.Errorf("Got %+v", got)
	}
	if len(got.Judgments) != 2 || got.Judgments[1].Verdict != model.VerdictError || got.Judgments[1].Error != "timeout" {
		t.Errorf("Judgments not preserved: %+v", got.Judgments)
	}
	if !got.StartedAt.Equal(want.StartedAt) || got.Duration != want.Duration {
		t.Errorf("Timing not preserved: %v %v", got.StartedAt, got.Duration)
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveReplaces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := sampleResult("run-1", model.OverallSupported, time.Now())

	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	r.OverallVerdict = model.OverallContainsRefuted
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 run, got %d (%v)", n, err)
	}
	got, _ := s.Get(ctx, "run-1")
	if got.OverallVerdict != model.OverallContainsRefuted {
		t.Errorf("Expected replaced verdict, got %s", got.OverallVerdict)
	}
}

func TestStore_List(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, v := range []model.OverallVerdict{model.OverallSupported, model.OverallContainsRefuted, model.OverallSupported} {
		id := string(rune('a' + i))
		if err := s.Save(ctx, sampleResult(id, v, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 3 || runs[0].RunID != "c" || runs[2].RunID != "a" {
		t.Fatalf("Expected newest first, got %+v", runs)
	}
	if runs[0].Claims != 2 || runs[0].Errors != 1 {
		t.Errorf("Unexpected counts: %+v", runs[0])
	}

	supported, err := s.List(ctx, ListOptions{Verdict: model.OverallSupported, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(supported) != 1 || supported[0].RunID != "c" {
		t.Errorf("Expected filtered newest run, got %+v", supported)
	}
}

func TestStore_SaveRequiresRunID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(context.Background(), &model.StatementResult{}); err == nil {
		t.Error("Expected error for missing run ID")
	}
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if err := s.Save(context.Background(), sampleResult("mem", model.OverallSupported, time.Now())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Get(context.Background(), "mem"); err != nil {
		t.Errorf("Get: %v", err)
	}
}
