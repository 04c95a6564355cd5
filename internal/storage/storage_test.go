package storage

import (
	"testing"
	"time"

	"rpg/internal/graph"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := openTestDB(t)
	// Schema creation is idempotent.
	if err := db.initSchema(); err != nil {
		t.Errorf("re-init failed: %v", err)
	}
}

func TestRebuildFTSAndPrefilter(t *testing.T) {
	db := openTestDB(t)
	g := graph.New("rust")
	for i := 0; i < 3; i++ {
		id := string(rune('a'+i)) + ".rs:f"
		g.UpsertEntity(&graph.Entity{
			ID: id, Kind: graph.KindFunction, Name: "f", Language: "rust",
			File: id[:4], StartLine: 1, EndLine: 2,
			Features: []string{"enforce rate limit"},
		})
	}
	if err := db.RebuildFTS(g); err != nil {
		t.Fatal(err)
	}

	// Small graphs skip the prefilter entirely.
	if ids := db.Prefilter(g, "rate", 10); ids != nil {
		t.Errorf("small graph should bypass prefilter, got %v", ids)
	}
}

func TestMetrics(t *testing.T) {
	db := openTestDB(t)
	db.RecordSearch(SearchMetric{Query: "rate limit", Mode: "features", ResultCount: 3, Duration: 12 * time.Millisecond})
	db.RecordSearch(SearchMetric{Query: "nothing", Mode: "features", ResultCount: 0, Duration: 4 * time.Millisecond})

	s := db.Summary()
	if s.TotalSearches != 2 {
		t.Errorf("total = %d", s.TotalSearches)
	}
	if s.ZeroResultPct != 50.0 {
		t.Errorf("zero result pct = %v", s.ZeroResultPct)
	}
}
