package evolution

import (
	"testing"

	"rpg/internal/config"
	"rpg/internal/graph"
	"rpg/internal/hierarchy"
	"rpg/internal/identity"
	"rpg/internal/lifting"
	"rpg/internal/parser"
)

func entity(id, file, name string, features ...string) *graph.Entity {
	return &graph.Entity{
		ID: id, Kind: graph.KindFunction, Name: name, Language: "rust",
		File: file, StartLine: 1, EndLine: 10, Features: features,
	}
}

func TestParseNameStatus(t *testing.T) {
	out := "A\tsrc/new.rs\nM\tsrc/mod.rs\nD\tsrc/old.rs\nR095\tsrc/a.rs\tsrc/auth/a.rs\n\n"
	changes := parseNameStatus(out)
	if len(changes) != 4 {
		t.Fatalf("changes = %+v", changes)
	}
	byPath := make(map[string]FileChange)
	for _, c := range changes {
		byPath[c.Path] = c
	}
	if byPath["src/new.rs"].Kind != ChangeAdded {
		t.Error("added misparsed")
	}
	if byPath["src/auth/a.rs"].Kind != ChangeRenamed || byPath["src/auth/a.rs"].OldPath != "src/a.rs" {
		t.Errorf("rename misparsed: %+v", byPath["src/auth/a.rs"])
	}
}

func TestPairRenames(t *testing.T) {
	content := map[string][]byte{
		"old.rs":   []byte("fn foo() {\n  body();\n}\n"),
		"new.rs":   []byte("fn foo() {\n  body();\n}\n"),
		"other.rs": []byte("totally different\n"),
	}
	read := func(p string) ([]byte, error) { return content[p], nil }
	changes := []FileChange{
		{Kind: ChangeDeleted, Path: "old.rs"},
		{Kind: ChangeAdded, Path: "new.rs"},
		{Kind: ChangeAdded, Path: "other.rs"},
	}
	paired := PairRenames(changes, read, read, identity.LineOverlap)

	var rename *FileChange
	for i := range paired {
		if paired[i].Kind == ChangeRenamed {
			rename = &paired[i]
		}
	}
	if rename == nil || rename.OldPath != "old.rs" || rename.Path != "new.rs" {
		t.Fatalf("paired = %+v", paired)
	}
	// other.rs stays an addition
	found := false
	for _, c := range paired {
		if c.Kind == ChangeAdded && c.Path == "other.rs" {
			found = true
		}
	}
	if !found {
		t.Error("unmatched addition lost")
	}
}

func TestApplyDeletionsPrunes(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	g.UpsertEntity(entity("src/b.rs:bar", "src/b.rs", "bar"))
	_ = g.AddEdge("src/b.rs:bar", "src/a.rs:foo", graph.EdgeInvokes)
	_ = g.AttachEntity("src/a.rs:foo", "Auth/token validation logic/jwt claim checks")

	removed := ApplyDeletions(g, []string{"src/a.rs"})
	if removed != 1 {
		t.Errorf("removed = %d", removed)
	}
	if g.Entity("src/a.rs:foo") != nil {
		t.Error("entity survived deletion")
	}
	if len(g.Edges) != 0 {
		t.Errorf("edges survived deletion: %+v", g.Edges)
	}
	if g.Node("Auth") != nil {
		t.Error("emptied hierarchy chain not pruned")
	}
}

func TestApplyRenameRekeys(t *testing.T) {
	// S2: moving src/a.rs to src/auth/a.rs unchanged must carry features and
	// hierarchy path onto the new id.
	g := graph.New("rust")
	e := entity("src/a.rs:foo", "src/a.rs", "foo", "validate request", "reject expired tokens")
	g.UpsertEntity(e)
	g.UpsertEntity(entity("src/c.rs:caller", "src/c.rs", "caller"))
	_ = g.AddEdge("src/c.rs:caller", "src/a.rs:foo", graph.EdgeInvokes)
	_ = g.AttachEntity("src/a.rs:foo", "Auth/token validation logic/jwt claim checks")

	result := &parser.FileResult{
		File: "src/auth/a.rs",
		Entities: []*graph.Entity{
			entity("src/auth/a.rs:foo", "src/auth/a.rs", "foo"),
		},
	}
	renamed, inserted := ApplyRename(g, "src/a.rs", result)
	if renamed != 1 || len(inserted) != 0 {
		t.Fatalf("renamed=%d inserted=%v", renamed, inserted)
	}

	moved := g.Entity("src/auth/a.rs:foo")
	if moved == nil {
		t.Fatal("rekeyed entity missing")
	}
	if len(moved.Features) != 2 {
		t.Errorf("features lost: %v", moved.Features)
	}
	if moved.HierarchyPath != "Auth/token validation logic/jwt claim checks" {
		t.Errorf("hierarchy path lost: %q", moved.HierarchyPath)
	}
	if g.Entity("src/a.rs:foo") != nil {
		t.Error("old id still present")
	}
	// Dependency edge follows the rekey.
	down := g.Neighbors("src/c.rs:caller", graph.Downstream, nil)
	if len(down) != 1 || down[0].Target != "src/auth/a.rs:foo" {
		t.Errorf("edge not rewired: %+v", down)
	}
	if problems := g.CheckInvariants(); len(problems) != 0 {
		t.Errorf("invariants: %v", problems)
	}
}

func TestApplyModification(t *testing.T) {
	g := graph.New("rust")
	foo := entity("src/a.rs:foo", "src/a.rs", "foo", "validate request")
	foo.Source = "fn foo() { old }"
	g.UpsertEntity(foo)
	g.UpsertEntity(entity("src/a.rs:gone", "src/a.rs", "gone"))
	_ = g.AttachEntity("src/a.rs:foo", "Auth/token validation logic/jwt claim checks")

	newFoo := entity("src/a.rs:foo", "src/a.rs", "foo")
	newFoo.Source = "fn foo() { new }"
	newFresh := entity("src/a.rs:fresh", "src/a.rs", "fresh")
	result := &parser.FileResult{
		File:     "src/a.rs",
		Entities: []*graph.Entity{newFoo, newFresh},
	}

	updated, added, removed, needsRelift, inserted := ApplyModification(g, result)
	if updated != 1 || added != 1 || removed != 1 {
		t.Errorf("updated=%d added=%d removed=%d", updated, added, removed)
	}
	if len(needsRelift) != 1 || needsRelift[0] != "src/a.rs:foo" {
		t.Errorf("needsRelift = %v", needsRelift)
	}
	if len(inserted) != 1 || inserted[0] != "src/a.rs:fresh" {
		t.Errorf("inserted = %v", inserted)
	}
	// Features preserved through structural refresh.
	if len(g.Entity("src/a.rs:foo").Features) != 1 {
		t.Error("features lost on modification")
	}
	// New sibling inherits the hierarchy placement.
	if g.Entity("src/a.rs:fresh").HierarchyPath != "Auth/token validation logic/jwt claim checks" {
		t.Errorf("sibling inheritance failed: %q", g.Entity("src/a.rs:fresh").HierarchyPath)
	}
}

func TestCandidatePathsDeterministic(t *testing.T) {
	g := graph.New("rust")
	targets := map[string][]string{
		"Auth/token validation logic/jwt claim checks": {"validate token", "check claims"},
		"Auth/session handling code/cookie issue path": {"issue cookie", "manage session"},
		"Billing/invoice total math/tax rate lookup":   {"compute tax", "lookup rates"},
	}
	i := 0
	for path, feats := range targets {
		id := entityIDFor(i)
		g.UpsertEntity(entity(id, "f.rs", "f", feats...))
		_ = g.AttachEntity(id, path)
		i++
	}
	g.AggregateFeatures()

	got := CandidatePaths(g, []string{"validate token", "check claims"}, 3)
	if len(got) != 3 {
		t.Fatalf("candidates = %+v", got)
	}
	if got[0].Path != "Auth/token validation logic/jwt claim checks" {
		t.Errorf("best candidate = %+v", got[0])
	}
	// Repeated calls return the same order.
	again := CandidatePaths(g, []string{"validate token", "check claims"}, 3)
	for j := range got {
		if got[j].Path != again[j].Path {
			t.Error("candidate order not deterministic")
		}
	}
}

func entityIDFor(i int) string {
	return "src/x.rs:fn" + string(rune('a'+i))
}

func TestApplyDecisionsStaleRejected(t *testing.T) {
	// S6: a decision stored at revision R is rejected once the graph moved on.
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	pending := &graph.PendingQueue{}
	pending.Upsert(graph.NewPendingEntry("src/a.rs:foo", graph.PendingBorderline, 0.5, g.Revision))

	// Concurrent mutation advances the revision.
	g.UpsertEntity(entity("src/b.rs:bar", "src/b.rs", "bar"))

	outcome := ApplyDecisions(g, pending, map[string]string{"src/a.rs:foo": "keep"})
	if len(outcome.Applied) != 0 {
		t.Errorf("stale decision applied: %v", outcome.Applied)
	}
	if pending.Find("src/a.rs:foo") == nil {
		t.Error("entity must stay pending after stale rejection")
	}
}

func TestApplyDecisions(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	g.UpsertEntity(entity("src/b.rs:anchor", "src/b.rs", "anchor", "issue cookie"))
	_ = g.AttachEntity("src/b.rs:anchor", "Auth/session handling code/cookie issue path")
	g.AggregateFeatures()

	pending := &graph.PendingQueue{}
	pending.Upsert(graph.NewPendingEntry("src/a.rs:foo", graph.PendingBorderline, 0.5, g.Revision))

	outcome := ApplyDecisions(g, pending, map[string]string{
		"src/a.rs:foo": "Auth/session handling code/cookie issue path",
	})
	if len(outcome.Applied) != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if g.Entity("src/a.rs:foo").HierarchyPath != "Auth/session handling code/cookie issue path" {
		t.Error("decision not applied")
	}
	if pending.Find("src/a.rs:foo") != nil {
		t.Error("entity should leave the queue")
	}
}

func TestApplyDecisionsInvalid(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	pending := &graph.PendingQueue{}

	// Auto-flagged entities may not keep their placement.
	pending.Upsert(graph.NewPendingEntry("src/a.rs:foo", graph.PendingAuto, 1.0, g.Revision))
	outcome := ApplyDecisions(g, pending, map[string]string{"src/a.rs:foo": "keep"})
	if len(outcome.Rejected) != 1 {
		t.Errorf("keep on auto should be rejected: %+v", outcome)
	}

	// Nonexistent path is rejected and the entity stays pending.
	outcome = ApplyDecisions(g, pending, map[string]string{"src/a.rs:foo": "Ghost/some made up/path segments here"})
	if len(outcome.Applied) != 0 || pending.Find("src/a.rs:foo") == nil {
		t.Errorf("invalid path must leave entity pending: %+v", outcome)
	}
}

func TestFinalizeDrains(t *testing.T) {
	// S3 tail: finalize without agent routing drains deterministically.
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo"))
	g.UpsertEntity(entity("src/b.rs:anchor", "src/b.rs", "anchor", "issue session cookie"))
	_ = g.AttachEntity("src/b.rs:anchor", "Auth/session handling code/cookie issue path")

	cfg := config.DefaultConfig().Encoding
	outcome := lifting.ApplySubmission(g, map[string][]string{
		"src/a.rs:foo": {"issue session cookie", "set csrf token"},
	}, cfg)
	_ = outcome

	pending := &graph.PendingQueue{}
	pending.Upsert(graph.NewPendingEntry("src/a.rs:foo", graph.PendingAuto, 1.0, g.Revision))

	drained := Finalize(g, pending)
	if len(drained) != 1 || len(pending.Entries) != 0 {
		t.Fatalf("drained = %v, pending = %+v", drained, pending.Entries)
	}
	if g.Entity("src/a.rs:foo").HierarchyPath != "Auth/session handling code/cookie issue path" {
		t.Errorf("finalize routed to %q", g.Entity("src/a.rs:foo").HierarchyPath)
	}
}

func TestFinalizeStructuralFallback(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/util/strings.rs:trim", "src/util/strings.rs", "trim", "trim whitespace"))
	pending := &graph.PendingQueue{}
	pending.Upsert(graph.NewPendingEntry("src/util/strings.rs:trim", graph.PendingInsert, 0, g.Revision))

	drained := Finalize(g, pending)
	if len(drained) != 1 {
		t.Fatal("finalize did not drain")
	}
	want := hierarchy.StructuralPath("src/util/strings.rs")
	if g.Entity("src/util/strings.rs:trim").HierarchyPath != want {
		t.Errorf("fallback path = %q, want %q", g.Entity("src/util/strings.rs:trim").HierarchyPath, want)
	}
}
