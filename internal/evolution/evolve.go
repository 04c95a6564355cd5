package evolution

import (
	"sort"

	"rpg/internal/graph"
	"rpg/internal/identity"
	"rpg/internal/parser"
)

// Summary reports what an incremental update did.
type Summary struct {
	EntitiesAdded   int `json:"entitiesAdded"`
	EntitiesUpdated int `json:"entitiesUpdated"`
	EntitiesRemoved int `json:"entitiesRemoved"`
	FilesRenamed    int `json:"filesRenamed"`
	// NeedsRelift lists entities whose features predate the modification and
	// must be re-lifted through the interactive protocol.
	NeedsRelift []string `json:"needsRelift,omitempty"`
	// Inserted lists entities queued for lifting then routing.
	Inserted []string `json:"inserted,omitempty"`
}

// ApplyDeletions removes every leaf defined in the deleted files; incident
// edges and Contains edges go with them and emptied hierarchy nodes are
// pruned recursively.
func ApplyDeletions(g *graph.Graph, deletedFiles []string) int {
	removed := 0
	for _, file := range deletedFiles {
		for _, id := range g.EntitiesInFile(file) {
			if g.RemoveEntity(id) == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		g.AggregateFeatures()
	}
	return removed
}

// ApplyRename rekeys the entities of a renamed file. Entities are matched
// against the prior revision by (symbol, span); matches keep their features,
// provenance, and hierarchy path under the new id. Unmatched old entities
// are removed; unmatched new ones are returned as insertions.
func ApplyRename(g *graph.Graph, oldPath string, result *parser.FileResult) (renamed int, inserted []string) {
	oldIDs := g.EntitiesInFile(oldPath)

	oldKeys := make([]identity.RekeyEntity, 0, len(oldIDs))
	for _, id := range oldIDs {
		e := g.Entity(id)
		oldKeys = append(oldKeys, identity.RekeyEntity{
			ID: id,
			Key: identity.RekeyKey{
				Symbol: e.Name, ParentClass: e.ParentClass,
				StartLine: e.StartLine, EndLine: e.EndLine,
			},
		})
	}
	newKeys := make([]identity.RekeyEntity, 0, len(result.Entities))
	newByID := make(map[string]*graph.Entity, len(result.Entities))
	for _, e := range result.Entities {
		newByID[e.ID] = e
		newKeys = append(newKeys, identity.RekeyEntity{
			ID: e.ID,
			Key: identity.RekeyKey{
				Symbol: e.Name, ParentClass: e.ParentClass,
				StartLine: e.StartLine, EndLine: e.EndLine,
			},
		})
	}

	matches := identity.MatchRenamed(oldKeys, newKeys)

	// Rekey matched entities: carry features and hierarchy path to the new id.
	for _, oldID := range oldIDs {
		newID, ok := matches[oldID]
		if !ok {
			continue
		}
		old := g.Entity(oldID)
		replacement := newByID[newID].Clone()
		replacement.Features = old.Features
		replacement.Provenance = old.Provenance
		replacement.Fingerprint = old.Fingerprint
		formerPath := old.HierarchyPath

		movedEdges := g.Neighbors(oldID, graph.Both, allEdgeKinds())
		_ = g.RemoveEntity(oldID)
		g.UpsertEntity(replacement)
		for _, edge := range movedEdges {
			if edge.Source == oldID {
				_ = g.AddEdge(newID, edge.Target, edge.Kind)
			} else {
				_ = g.AddEdge(edge.Source, newID, edge.Kind)
			}
		}
		if formerPath != "" {
			_ = g.AttachEntity(newID, formerPath)
		}
		renamed++
	}

	// Old entities with no successor vanish with the rename.
	for _, oldID := range oldIDs {
		if _, ok := matches[oldID]; !ok {
			_ = g.RemoveEntity(oldID)
		}
	}

	// New entities with no predecessor are plain insertions.
	matchedNew := make(map[string]bool, len(matches))
	for _, newID := range matches {
		matchedNew[newID] = true
	}
	for _, e := range result.Entities {
		if !matchedNew[e.ID] {
			g.UpsertEntity(e.Clone())
			inserted = append(inserted, e.ID)
		}
	}
	sort.Strings(inserted)
	return renamed, inserted
}

func allEdgeKinds() []graph.EdgeKind {
	return []graph.EdgeKind{
		graph.EdgeImports, graph.EdgeInvokes, graph.EdgeInherits, graph.EdgeComposes,
		graph.EdgeRenders, graph.EdgeReadsState, graph.EdgeWritesState,
		graph.EdgeDispatches, graph.EdgeDataFlow,
	}
}

// ApplyModification reconciles one modified file against its fresh parse.
// Vanished entities are removed, surviving ones keep their features with
// refreshed structure, and new ones are inserted (inheriting a sibling's
// hierarchy path when one exists). Entities that had features and whose
// source changed are returned for interactive re-lifting.
func ApplyModification(g *graph.Graph, result *parser.FileResult) (updated, added, removed int, needsRelift, inserted []string) {
	oldIDs := g.EntitiesInFile(result.File)
	newByID := make(map[string]*graph.Entity, len(result.Entities))
	for _, e := range result.Entities {
		newByID[e.ID] = e
	}

	// Remove entities that no longer exist in the file.
	for _, oldID := range oldIDs {
		if _, ok := newByID[oldID]; !ok {
			if g.RemoveEntity(oldID) == nil {
				removed++
			}
		}
	}

	// A surviving sibling's placement seeds new entities in the same file.
	siblingPath := ""
	for _, oldID := range oldIDs {
		if e := g.Entity(oldID); e != nil && e.HierarchyPath != "" {
			siblingPath = e.HierarchyPath
			break
		}
	}

	oldSet := make(map[string]bool, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = true
	}

	for _, e := range result.Entities {
		if oldSet[e.ID] {
			prev := g.Entity(e.ID)
			hadFeatures := prev != nil && prev.Lifted() && prev.Kind != graph.KindModule
			sourceChanged := prev != nil && prev.Source != e.Source
			g.UpsertEntity(e.Clone()) // merge preserves features and path
			updated++
			if hadFeatures && sourceChanged {
				needsRelift = append(needsRelift, e.ID)
			}
			continue
		}
		clone := e.Clone()
		g.UpsertEntity(clone)
		if siblingPath != "" {
			_ = g.AttachEntity(e.ID, siblingPath)
		}
		added++
		if e.Kind != graph.KindModule {
			inserted = append(inserted, e.ID)
		}
	}

	sort.Strings(needsRelift)
	sort.Strings(inserted)
	return updated, added, removed, needsRelift, inserted
}

// ApplyInsertion inserts the entities of a newly added file. While no
// semantic hierarchy is installed they get the structural file-path
// placement; otherwise they stay unattached. Every non-module entity is
// queued for lifting and subsequent routing.
func ApplyInsertion(g *graph.Graph, result *parser.FileResult, structuralPath func(string) string) (added int, inserted []string) {
	for _, e := range result.Entities {
		g.UpsertEntity(e.Clone())
		if path := structuralPath(e.File); path != "" && !g.Metadata.SemanticHierarchy {
			_ = g.AttachEntity(e.ID, path)
		}
		added++
		if e.Kind != graph.KindModule {
			inserted = append(inserted, e.ID)
		}
	}
	sort.Strings(inserted)
	return added, inserted
}
