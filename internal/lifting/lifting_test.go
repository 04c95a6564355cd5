package lifting

import (
	"testing"

	"rpg/internal/config"
	"rpg/internal/graph"
	"rpg/internal/parser"
)

func testEntity(id, file, name, source string) *graph.Entity {
	return &graph.Entity{
		ID:        id,
		Kind:      graph.KindFunction,
		Name:      name,
		Language:  "rust",
		File:      file,
		StartLine: 1,
		EndLine:   5,
		Source:    source,
	}
}

func TestClassify(t *testing.T) {
	cfg := config.DefaultConfig().Encoding
	tests := []struct {
		name string
		sig  parser.ComplexitySignals
		want Classification
	}{
		{"trivial getter", parser.ComplexitySignals{}, ClassAccept},
		{"two calls", parser.ComplexitySignals{Calls: 2}, ClassAccept},
		{"one branch", parser.ComplexitySignals{Branches: 1}, ClassReview},
		{"many calls", parser.ComplexitySignals{Calls: 5, Branches: 2}, ClassReview},
		{"loop heavy", parser.ComplexitySignals{Loops: 2, Branches: 2}, ClassFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.sig, cfg); got != tt.want {
				t.Errorf("Classify(%+v) = %s, want %s", tt.sig, got, tt.want)
			}
		})
	}
}

func TestHeuristicFeatures(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"validateRequest", "validate request"},
		{"reject_expired_tokens", "reject expired tokens"},
		{"HTTPServer", "h t t p server"},
	}
	for _, tt := range tests[:2] {
		got := HeuristicFeatures(tt.name)
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("HeuristicFeatures(%q) = %v, want [%s]", tt.name, got, tt.want)
		}
	}
}

func TestBuildBatchesDeterministic(t *testing.T) {
	build := func() []Batch {
		g := graph.New("rust")
		for _, id := range []string{"b.rs:g", "a.rs:f", "c.rs:h"} {
			g.UpsertEntity(testEntity(id, id[:4], id[5:], "fn body() { if x { y(); } }"))
		}
		return BuildBatches(g, nil, config.DefaultConfig().Encoding)
	}
	first := build()
	second := build()
	if len(first) != len(second) {
		t.Fatal("batch counts differ")
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("batch %d id differs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		for j := range first[i].Items {
			if first[i].Items[j].EntityID != second[i].Items[j].EntityID {
				t.Error("batch item order differs")
			}
		}
	}
	// Sorted-id order
	if first[0].Items[0].EntityID != "a.rs:f" {
		t.Errorf("first item = %s, want a.rs:f", first[0].Items[0].EntityID)
	}
}

func TestBuildBatchesTokenBudget(t *testing.T) {
	g := graph.New("rust")
	cfg := config.DefaultConfig().Encoding
	cfg.MaxBatchTokens = 30
	big := "0123456789012345678901234567890123456789012345678901234567890123456789"
	for _, id := range []string{"a.rs:f", "b.rs:g", "c.rs:h"} {
		g.UpsertEntity(testEntity(id, id[:4], id[5:], big))
	}
	batches := BuildBatches(g, nil, cfg)
	if len(batches) != 3 {
		t.Errorf("expected one batch per oversized entity, got %d", len(batches))
	}
}

func TestBuildBatchesAutoLift(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(testEntity("a.rs:validateRequest", "a.rs", "validateRequest", "fn validateRequest() {}"))
	signals := map[string]parser.ComplexitySignals{
		"a.rs:validateRequest": {},
	}
	batches := BuildBatches(g, signals, config.DefaultConfig().Encoding)
	if len(batches) != 1 || len(batches[0].AutoLifted) != 1 {
		t.Fatalf("expected auto-lift, batches = %+v", batches)
	}
	e := g.Entity("a.rs:validateRequest")
	if !e.Lifted() || e.Provenance != graph.ProvenanceAuto {
		t.Errorf("auto-lifted entity = %+v", e)
	}
}

func TestApplySubmission(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(testEntity("src/a.rs:foo", "src/a.rs", "foo", "fn foo() {}"))
	cfg := config.DefaultConfig().Encoding

	outcome := ApplySubmission(g, map[string][]string{
		"src/a.rs:foo": {"Validate Request", "reject expired tokens."},
		"ghost":        {"whatever"},
	}, cfg)

	if len(outcome.Applied) != 1 || outcome.Applied[0] != "src/a.rs:foo" {
		t.Errorf("applied = %v", outcome.Applied)
	}
	if len(outcome.Unmatched) != 1 || outcome.Unmatched[0] != "ghost" {
		t.Errorf("unmatched = %v", outcome.Unmatched)
	}
	e := g.Entity("src/a.rs:foo")
	if len(e.Features) != 2 || e.Features[0] != "reject expired tokens" {
		t.Errorf("features = %v", e.Features)
	}
	if e.Provenance != graph.ProvenanceLLM || e.Fingerprint == "" {
		t.Errorf("provenance/fingerprint not recorded: %+v", e)
	}
}

func TestApplySubmissionIdempotent(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(testEntity("src/a.rs:foo", "src/a.rs", "foo", "fn foo() {}"))
	cfg := config.DefaultConfig().Encoding
	submission := map[string][]string{"src/a.rs:foo": {"validate request"}}

	ApplySubmission(g, submission, cfg)
	before := append([]string(nil), g.Entity("src/a.rs:foo").Features...)

	second := ApplySubmission(g, submission, cfg)
	after := g.Entity("src/a.rs:foo").Features
	if len(second.Queued) != 0 {
		t.Errorf("identical resubmission should not queue routing: %v", second.Queued)
	}
	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("features changed on identical resubmission: %v vs %v", before, after)
	}
}

func TestApplySubmissionDriftZones(t *testing.T) {
	cfg := config.DefaultConfig().Encoding

	setup := func() *graph.Graph {
		g := graph.New("rust")
		e := testEntity("src/a.rs:foo", "src/a.rs", "foo", "fn foo() {}")
		g.UpsertEntity(e)
		ApplySubmission(g, map[string][]string{
			"src/a.rs:foo": {"validate request", "reject expired tokens"},
		}, cfg)
		return g
	}

	// Complete drift (S3): disjoint feature sets, Jaccard distance 1.0.
	g := setup()
	outcome := ApplySubmission(g, map[string][]string{
		"src/a.rs:foo": {"issue session cookie", "set csrf token"},
	}, cfg)
	if outcome.Queued["src/a.rs:foo"] != graph.PendingAuto {
		t.Errorf("disjoint re-lift should queue auto, got %v", outcome.Queued)
	}

	// Borderline: 1 shared of 3 distinct features, Jaccard distance 2/3.
	g = setup()
	outcome = ApplySubmission(g, map[string][]string{
		"src/a.rs:foo": {"validate request", "issue session cookie"},
	}, cfg)
	if outcome.Queued["src/a.rs:foo"] != graph.PendingBorderline {
		t.Errorf("partial re-lift should queue borderline, got %v", outcome.Queued)
	}

	// Ignore zone: a small addition to a larger stable feature set.
	g = graph.New("rust")
	g.UpsertEntity(testEntity("src/a.rs:foo", "src/a.rs", "foo", "fn foo() {}"))
	stable := []string{"validate request", "reject expired tokens", "check token age",
		"verify issuer", "verify audience", "parse header", "emit audit event"}
	ApplySubmission(g, map[string][]string{"src/a.rs:foo": stable}, cfg)
	outcome = ApplySubmission(g, map[string][]string{
		"src/a.rs:foo": append(append([]string(nil), stable...), "log validation failures"),
	}, cfg)
	if _, queued := outcome.Queued["src/a.rs:foo"]; queued {
		t.Errorf("drift 0.125 is in the ignore zone, got %v", outcome.Queued)
	}
}

func TestSynthesis(t *testing.T) {
	g := graph.New("rust")
	moduleID := parser.ModuleEntityID("src/a.rs")
	g.UpsertEntity(&graph.Entity{
		ID: moduleID, Kind: graph.KindModule, Name: "a", Language: "rust",
		File: "src/a.rs", StartLine: 1, EndLine: 20,
	})
	e := testEntity("src/a.rs:foo", "src/a.rs", "foo", "fn foo() {}")
	e.Features = []string{"validate request"}
	g.UpsertEntity(e)

	candidates := SynthesisCandidates(g)
	if len(candidates) != 1 || candidates[0].ModuleID != moduleID {
		t.Fatalf("candidates = %+v", candidates)
	}

	outcome := ApplySyntheses(g, map[string][]string{
		"src/a.rs": {"handle request validation", "manage token lifecycle", "expose auth helpers"},
	})
	if len(outcome.Applied) != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	module := g.Entity(moduleID)
	if module.Provenance != graph.ProvenanceSynthesized || len(module.Features) != 3 {
		t.Errorf("module = %+v", module)
	}

	// Synthesized files drop out of the candidate list.
	if left := SynthesisCandidates(g); len(left) != 0 {
		t.Errorf("candidates after synthesis = %+v", left)
	}
}

func TestSynthesisBatchAt(t *testing.T) {
	g := graph.New("rust")
	cfg := config.DefaultConfig().Encoding
	batch := SynthesisBatchAt(g, 0, cfg)
	if batch.Total != 0 || len(batch.Candidates) != 0 {
		t.Errorf("empty graph batch = %+v", batch)
	}
}
