package evalstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, maxRecords int) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "evals.db")
	s, err := Open(path, maxRecords, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndRecent(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	rec := Record{
		RequestID:           "req-1",
		EventID:             "ev-1",
		EventType:           "purchase",
		MatchedRuleCodes:    []string{"R1", "R2"},
		PredicatesEvaluated: 3,
		LatencyNanos:        1200,
		CreatedAt:           time.Now().UTC(),
	}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Recent returned %d records, want 1", len(got))
	}
	r := got[0]
	if r.RequestID != "req-1" || r.EventID != "ev-1" || r.EventType != "purchase" {
		t.Errorf("record = %+v", r)
	}
	if len(r.MatchedRuleCodes) != 2 || r.MatchedRuleCodes[0] != "R1" {
		t.Errorf("matched codes = %v, want [R1 R2]", r.MatchedRuleCodes)
	}
	if r.PredicatesEvaluated != 3 || r.LatencyNanos != 1200 {
		t.Errorf("record = %+v", r)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.Insert(ctx, Record{RequestID: fmt.Sprintf("req-%d", i), CreatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 || got[0].RequestID != "req-4" || got[1].RequestID != "req-3" {
		t.Errorf("Recent order wrong: %+v", got)
	}
}

func TestEmptyMatchedCodesRoundTrip(t *testing.T) {
	s := newTestStore(t, 0)
	ctx := context.Background()

	if err := s.Insert(ctx, Record{RequestID: "req-1", CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	got, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if got[0].MatchedRuleCodes != nil {
		t.Errorf("matched codes = %v, want nil", got[0].MatchedRuleCodes)
	}
}

func TestPruneBoundsRecordCount(t *testing.T) {
	s := newTestStore(t, 10)
	ctx := context.Background()

	// Enough inserts to pass a prune boundary.
	for i := 0; i < pruneEvery+5; i++ {
		if err := s.Insert(ctx, Record{RequestID: fmt.Sprintf("req-%d", i), CreatedAt: time.Now().UTC()}); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	// One prune ran at the boundary; at most maxRecords plus the inserts
	// since then remain.
	if n > 10+5 {
		t.Errorf("Count = %d, prune did not bound the store", n)
	}
}
