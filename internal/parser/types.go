// Package parser is the source-parsing collaborator: it turns file bytes plus
// a language tag into entity tuples and raw dependency hints. The core is
// language-agnostic beyond the fixed entity and edge kinds.
package parser

import (
	"rpg/internal/graph"
)

// DepHint is a symbolic dependency reference extracted from source. The
// grounding component resolves hints into concrete edges; hints whose target
// cannot be located are dropped.
type DepHint struct {
	// SourceID is the entity id the dependency originates from.
	SourceID string
	// SourceFile qualifies same-file resolution.
	SourceFile string
	// TargetSymbol is the referenced symbol name (unresolved).
	TargetSymbol string
	Kind         graph.EdgeKind
}

// FileResult is the parser output for one file.
type FileResult struct {
	File     string
	Language string
	Entities []*graph.Entity
	Hints    []DepHint
	// Signals holds per-entity control-flow counts keyed by entity id.
	Signals map[string]ComplexitySignals
}

// ComplexitySignals summarizes the control-flow shape of an entity body,
// driving the auto-lift heuristics.
type ComplexitySignals struct {
	Branches int
	Loops    int
	Calls    int
}
