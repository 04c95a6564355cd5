package hierarchy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rpg/internal/graph"
)

func entity(id, file, name string, features ...string) *graph.Entity {
	return &graph.Entity{
		ID: id, Kind: graph.KindFunction, Name: name, Language: "rust",
		File: file, StartLine: 1, EndLine: 5, Features: features,
	}
}

func TestValidatePath(t *testing.T) {
	areas := map[string]bool{"Auth": true, "Billing": true}
	tests := []struct {
		path string
		ok   bool
	}{
		{"Auth/token validation logic/jwt claim checks", true},
		{"Auth/token validation/jwt claim checks", false},           // category only 2 words
		{"auth/token validation logic/jwt claim checks", false},     // lowercase area
		{"Payments/token validation logic/jwt claim checks", false}, // ad-hoc area
		{"Auth/token validation logic", false},                      // missing level
		{"Auth/Token Validation Logic/jwt claim checks", false},     // uppercase category
		{"Billing/invoice total calculation/per line tax rounding", true},
	}
	for _, tt := range tests {
		err := ValidatePath(tt.path, areas)
		if (err == nil) != tt.ok {
			t.Errorf("ValidatePath(%q) err=%v, want ok=%v", tt.path, err, tt.ok)
		}
	}
}

func TestApplyAssignments(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	g.UpsertEntity(entity("src/a.rs:bar", "src/a.rs", "bar", "refresh token"))
	g.UpsertEntity(entity("src/b.rs:baz", "src/b.rs", "baz"))

	areas := map[string]bool{"Auth": true}
	outcome := Apply(g, map[string]string{
		"src/a.rs":     "Auth/token validation logic/jwt claim checks",
		"src/b.rs:baz": "Auth/session handling code/cookie issue path",
		"missing.rs":   "Auth/session handling code/cookie issue path",
		"src/a.rs:foo": "keep",
	}, areas)

	if len(outcome.Applied) != 3 {
		t.Errorf("applied = %v", outcome.Applied)
	}
	if _, ok := outcome.Rejected["missing.rs"]; !ok {
		t.Errorf("rejected = %v", outcome.Rejected)
	}
	// File key assigns every entity in the file.
	for _, id := range []string{"src/a.rs:foo", "src/a.rs:bar"} {
		if g.Entity(id).HierarchyPath != "Auth/token validation logic/jwt claim checks" {
			t.Errorf("%s path = %q", id, g.Entity(id).HierarchyPath)
		}
	}
	if !g.Metadata.SemanticHierarchy {
		t.Error("semantic hierarchy flag not set")
	}
	// Aggregation ran: area carries leaf features.
	if len(g.Node("Auth").Features) == 0 {
		t.Error("area features not aggregated")
	}
	if problems := g.CheckInvariants(); len(problems) != 0 {
		t.Errorf("invariants: %v", problems)
	}
}

func TestApplyRejectsAdHocArea(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo"))
	outcome := Apply(g, map[string]string{
		"src/a.rs:foo": "Rogue/made up category here/some sub category",
	}, map[string]bool{"Auth": true})
	if len(outcome.Applied) != 0 || len(outcome.Rejected) != 1 {
		t.Errorf("outcome = %+v", outcome)
	}
	if g.Entity("src/a.rs:foo").HierarchyPath != "" {
		t.Error("rejected row must not modify the graph")
	}
}

func TestStructuralPath(t *testing.T) {
	tests := []struct {
		file, want string
	}{
		{"main.rs", "main"},
		{"src/lib.rs", "src/lib"},
		{"src/auth/jwt.rs", "src/auth/jwt"},
		{"src/auth/deep/nested/jwt.rs", "src/auth/deep"},
	}
	for _, tt := range tests {
		if got := StructuralPath(tt.file); got != tt.want {
			t.Errorf("StructuralPath(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestBuildStructuralFallback(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/auth/jwt.rs:verify", "src/auth/jwt.rs", "verify"))
	BuildStructuralFallback(g)
	if g.Metadata.SemanticHierarchy {
		t.Error("structural fallback must not claim semantic hierarchy")
	}
	if g.Entity("src/auth/jwt.rs:verify").HierarchyPath != "src/auth/jwt" {
		t.Errorf("path = %q", g.Entity("src/auth/jwt.rs:verify").HierarchyPath)
	}
}

func TestClusterFiles(t *testing.T) {
	g := graph.New("rust")
	for i := 0; i < 150; i++ {
		id := entityID(i)
		g.UpsertEntity(entity(id+":f", id, "f"))
	}
	clusters := ClusterFiles(g, 70, 100)
	if len(clusters) < 2 {
		t.Fatalf("expected multiple clusters for 150 files, got %d", len(clusters))
	}
	total := 0
	for _, c := range clusters {
		total += len(c.Files)
		if len(c.Representatives) == 0 || len(c.Representatives) > 3 {
			t.Errorf("representatives = %v", c.Representatives)
		}
	}
	if total != 150 {
		t.Errorf("clusters cover %d files, want 150", total)
	}

	// Small repos get a single cluster.
	small := graph.New("rust")
	small.UpsertEntity(entity("a.rs:f", "a.rs", "f"))
	if got := ClusterFiles(small, 70, 100); len(got) != 1 {
		t.Errorf("small repo clusters = %d", len(got))
	}
}

func entityID(i int) string {
	return "src/file" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + ".rs"
}

func TestLoadAreaSeeds(t *testing.T) {
	root := t.TempDir()
	if _, err := LoadAreaSeeds(root); err != nil {
		t.Fatalf("missing areas.toml should not error: %v", err)
	}

	dir := filepath.Join(root, ".rpg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
[[area]]
name = "Auth"
description = "authentication and sessions"

[[area]]
name = "Billing"
`
	if err := os.WriteFile(filepath.Join(dir, "areas.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	seeds, err := LoadAreaSeeds(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(seeds) != 2 || seeds[0].Name != "Auth" {
		t.Errorf("seeds = %+v", seeds)
	}
}

func TestDiscoveryPromptIncludesSeeds(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	cluster := ClusterFiles(g, 70, 100)[0]
	prompt := DiscoveryPrompt(g, cluster, []AreaSeed{{Name: "Auth", Description: "auth"}})
	if !strings.Contains(prompt, "Auth") || !strings.Contains(prompt, "src/a.rs") {
		t.Errorf("prompt missing content:\n%s", prompt)
	}
}

func TestExportImportYAML(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:foo", "src/a.rs", "foo", "validate request"))
	_ = g.AttachEntity("src/a.rs:foo", "Auth/token validation logic/jwt claim checks")
	g.AggregateFeatures()

	data, err := ExportYAML(g)
	if err != nil {
		t.Fatal(err)
	}
	assignments, err := ImportYAML(data)
	if err != nil {
		t.Fatal(err)
	}
	if assignments["src/a.rs:foo"] != "Auth/token validation logic/jwt claim checks" {
		t.Errorf("assignments = %v", assignments)
	}
}
