package grounding

import (
	"fmt"
	"log/slog"
	"strings"

	"rpg/internal/graph"
	"rpg/internal/parser"
)

// GroundHierarchy computes the anchor directory of every hierarchy node as
// the LCA of the files of all leaves transitively under it, then prunes
// nodes left without leaves.
func GroundHierarchy(g *graph.Graph) {
	g.PruneEmpty()
	for _, nodePath := range g.NodePaths() {
		node := g.Node(nodePath)
		ids := g.EntitiesUnder(nodePath)
		files := make([]string, 0, len(ids))
		seen := make(map[string]struct{})
		for _, id := range ids {
			e := g.Entity(id)
			if e == nil {
				continue
			}
			if _, ok := seen[e.File]; ok {
				continue
			}
			seen[e.File] = struct{}{}
			files = append(files, e.File)
		}
		node.AnchorDir = AnchorDir(files)
	}
}

// MaterializeContainment rebuilds all Contains edges from hierarchy
// membership and re-aggregates node features.
func MaterializeContainment(g *graph.Graph) {
	g.MaterializeContainment()
	g.AggregateFeatures()
}

// ResolveHints turns symbolic dependency hints into concrete edges.
//
// Resolution order mirrors how readers disambiguate by hand: a symbol
// defined in the same file wins; otherwise a name defined exactly once
// elsewhere in the repository is accepted. Ambiguous or unknown targets are
// dropped and counted, never guessed.
func ResolveHints(g *graph.Graph, hints []parser.DepHint, logger *slog.Logger) (resolved, dropped int) {
	qualified := make(map[string]string, len(g.Entities))
	byName := make(map[string][]string)
	for id, e := range g.Entities {
		qualified[e.File+":"+e.Name] = id
		byName[e.Name] = append(byName[e.Name], id)
	}

	for _, hint := range hints {
		if g.Entity(hint.SourceID) == nil {
			dropped++
			continue
		}
		target := resolveTarget(hint, qualified, byName)
		if target == "" || target == hint.SourceID {
			dropped++
			continue
		}
		if err := g.AddEdge(hint.SourceID, target, hint.Kind); err != nil {
			dropped++
			continue
		}
		resolved++
	}

	if logger != nil && dropped > 0 {
		logger.Debug("dropped unresolvable dependency hints", "dropped", dropped, "resolved", resolved)
	}
	return resolved, dropped
}

func resolveTarget(hint parser.DepHint, qualified map[string]string, byName map[string][]string) string {
	symbol := hint.TargetSymbol
	// Qualified names like Type::method or pkg.symbol resolve by final segment.
	if i := strings.LastIndex(symbol, "::"); i >= 0 {
		symbol = symbol[i+2:]
	} else if i := strings.LastIndex(symbol, "."); i >= 0 {
		symbol = symbol[i+1:]
	}
	if symbol == "" {
		return ""
	}

	if id, ok := qualified[hint.SourceFile+":"+symbol]; ok {
		return id
	}

	var crossFile []string
	for _, id := range byName[symbol] {
		if !strings.HasPrefix(id, hint.SourceFile+":") {
			crossFile = append(crossFile, id)
		}
	}
	if len(crossFile) == 1 {
		return crossFile[0]
	}
	return ""
}

// Describe renders a short grounding report used by rpg_info.
func Describe(g *graph.Graph) string {
	var b strings.Builder
	for _, area := range g.Areas() {
		node := g.Node(area)
		fmt.Fprintf(&b, "%s -> %s (%d entities)\n", area, node.AnchorDir, len(g.EntitiesUnder(area)))
	}
	return b.String()
}
