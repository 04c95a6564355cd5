package grounding

import (
	"testing"

	"rpg/internal/graph"
	"rpg/internal/parser"
)

func entity(id, file, name string) *graph.Entity {
	return &graph.Entity{
		ID:        id,
		Kind:      graph.KindFunction,
		Name:      name,
		Language:  "rust",
		File:      file,
		StartLine: 1,
		EndLine:   5,
	}
}

func TestGroundHierarchyAnchors(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/auth/jwt.rs:verify", "src/auth/jwt.rs", "verify"))
	g.UpsertEntity(entity("src/auth/jwt/verify.rs:check", "src/auth/jwt/verify.rs", "check"))
	_ = g.AttachEntity("src/auth/jwt.rs:verify", "Auth/token validation/jwt")
	_ = g.AttachEntity("src/auth/jwt/verify.rs:check", "Auth/token validation/jwt")

	GroundHierarchy(g)

	node := g.Node("Auth/token validation/jwt")
	if node.AnchorDir != "src/auth" {
		t.Errorf("anchor = %q, want src/auth", node.AnchorDir)
	}
	// Ancestors cover the same leaves, so they share the anchor.
	if g.Node("Auth").AnchorDir != "src/auth" {
		t.Errorf("area anchor = %q", g.Node("Auth").AnchorDir)
	}
}

func TestGroundHierarchySingleLeaf(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/billing/invoice.rs:render", "src/billing/invoice.rs", "render"))
	_ = g.AttachEntity("src/billing/invoice.rs:render", "Billing/invoice generation/pdf")

	GroundHierarchy(g)

	if got := g.Node("Billing/invoice generation/pdf").AnchorDir; got != "src/billing" {
		t.Errorf("single-leaf anchor = %q, want parent directory", got)
	}
}

func TestResolveHints(t *testing.T) {
	g := graph.New("rust")
	g.UpsertEntity(entity("src/a.rs:caller", "src/a.rs", "caller"))
	g.UpsertEntity(entity("src/a.rs:local", "src/a.rs", "local"))
	g.UpsertEntity(entity("src/b.rs:remote", "src/b.rs", "remote"))
	g.UpsertEntity(entity("src/c.rs:dup", "src/c.rs", "dup"))
	g.UpsertEntity(entity("src/d.rs:dup", "src/d.rs", "dup"))

	hints := []parser.DepHint{
		{SourceID: "src/a.rs:caller", SourceFile: "src/a.rs", TargetSymbol: "local", Kind: graph.EdgeInvokes},
		{SourceID: "src/a.rs:caller", SourceFile: "src/a.rs", TargetSymbol: "remote", Kind: graph.EdgeInvokes},
		{SourceID: "src/a.rs:caller", SourceFile: "src/a.rs", TargetSymbol: "dup", Kind: graph.EdgeInvokes},
		{SourceID: "src/a.rs:caller", SourceFile: "src/a.rs", TargetSymbol: "missing", Kind: graph.EdgeInvokes},
		{SourceID: "ghost", SourceFile: "x.rs", TargetSymbol: "remote", Kind: graph.EdgeInvokes},
	}

	resolved, dropped := ResolveHints(g, hints, nil)
	if resolved != 2 {
		t.Errorf("resolved = %d, want 2 (same-file + unambiguous cross-file)", resolved)
	}
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3 (ambiguous, missing, ghost source)", dropped)
	}
	if problems := g.CheckInvariants(); len(problems) != 0 {
		t.Errorf("invariants violated: %v", problems)
	}
}

func TestResolveHintsQualifiedSymbols(t *testing.T) {
	g := graph.New("python")
	g.UpsertEntity(entity("app.py:handler", "app.py", "handler"))
	g.UpsertEntity(entity("lib.py:helper", "lib.py", "helper"))

	hints := []parser.DepHint{
		{SourceID: "app.py:handler", SourceFile: "app.py", TargetSymbol: "lib.helper", Kind: graph.EdgeInvokes},
	}
	resolved, _ := ResolveHints(g, hints, nil)
	if resolved != 1 {
		t.Errorf("dotted symbol should resolve by final segment, resolved = %d", resolved)
	}
}
