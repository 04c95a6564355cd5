package graph

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"rpg/internal/paths"
)

// TestRandomMutationInvariants drives a seeded random mutation sequence and
// checks the global invariants after every operation: no dangling edges, no
// empty interior nodes, path consistency, normalized features, and a
// revision that never decreases (no-op operations leave it unchanged).
func TestRandomMutationInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := New("rust")

	var ids []string
	hierarchyPaths := []string{
		"Auth/token validation logic/jwt claim checks",
		"Auth/session handling code/cookie issue path",
		"Billing/invoice total math/tax rate lookup",
		"Storage/record persistence layer/atomic file writes",
	}
	prevRevision := g.Revision

	for step := 0; step < 400; step++ {
		switch rng.Intn(5) {
		case 0: // upsert
			file := fmt.Sprintf("src/f%d.rs", rng.Intn(20))
			name := fmt.Sprintf("fn%d", rng.Intn(40))
			id := file + ":" + name
			g.UpsertEntity(&Entity{
				ID: id, Kind: KindFunction, Name: name,
				Language: "rust", File: file,
				StartLine: 1, EndLine: 10,
				Features: []string{fmt.Sprintf("  Do Thing %d.  ", rng.Intn(10))},
			})
			ids = append(ids, id)
		case 1: // attach
			if len(ids) > 0 {
				_ = g.AttachEntity(ids[rng.Intn(len(ids))], hierarchyPaths[rng.Intn(len(hierarchyPaths))])
			}
		case 2: // edge
			if len(ids) >= 2 {
				_ = g.AddEdge(ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))], EdgeInvokes)
			}
		case 3: // remove
			if len(ids) > 0 {
				i := rng.Intn(len(ids))
				_ = g.RemoveEntity(ids[i])
				ids = append(ids[:i], ids[i+1:]...)
			}
		case 4: // detach
			if len(ids) > 0 {
				_ = g.DetachEntity(ids[rng.Intn(len(ids))])
			}
		}

		if problems := g.CheckInvariants(); len(problems) != 0 {
			t.Fatalf("step %d: invariant violations: %v", step, problems)
		}
		if g.Revision < prevRevision {
			t.Fatalf("step %d: revision went backwards", step)
		}
		prevRevision = g.Revision

		// Stored features stay normalized.
		for _, e := range g.Entities {
			for _, f := range e.Features {
				if f != NormalizeFeature(f) {
					t.Fatalf("step %d: unnormalized feature %q", step, f)
				}
			}
		}
	}

	// The surviving graph still round-trips byte-stably.
	root := t.TempDir()
	g.AggregateFeatures()
	g.RefreshMetadata()
	if err := g.Save(root, false); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(paths.GraphFile(root))
	loaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.Save(root, false); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(paths.GraphFile(root))
	if !bytes.Equal(first, second) {
		t.Error("randomized graph does not reserialize byte-identically")
	}
}
