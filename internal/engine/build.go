package engine

import (
	"context"
	"os"
	"path/filepath"

	"rpg/internal/evolution"
	"rpg/internal/graph"
	"rpg/internal/grounding"
	"rpg/internal/hierarchy"
	"rpg/internal/identity"
	"rpg/internal/parser"
	"rpg/internal/scipload"
)

// BuildSummary reports what build_rpg produced.
type BuildSummary struct {
	Files         int `json:"files"`
	Entities      int `json:"entities"`
	Edges         int `json:"edges"`
	HintsResolved int `json:"hintsResolved"`
	HintsDropped  int `json:"hintsDropped"`
	// FeaturesPreserved counts entities whose features survived the rebuild
	// because their source did not change.
	FeaturesPreserved int `json:"featuresPreserved"`
}

// Build parses the repository and constructs the graph from scratch,
// preserving features of entities whose source is unchanged from the prior
// revision. Cancellation between files leaves no partial graph: the old
// graph stays installed until the build commits.
func (e *Engine) Build(ctx context.Context) (*BuildSummary, error) {
	files, err := parser.DiscoverFiles(e.repoRoot)
	if err != nil {
		return nil, err
	}

	var results []*parser.FileResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		source, err := os.ReadFile(filepath.Join(e.repoRoot, file))
		if err != nil {
			e.logger.Warn("skipping unreadable file", "file", file, "error", err.Error())
			continue
		}
		lang, ok := parser.LanguageFromExtension(filepath.Ext(file))
		if !ok {
			continue
		}
		result, err := e.parser.ParseFile(ctx, file, source, lang)
		if err != nil {
			e.logger.Warn("parse failed", "file", file, "error", err.Error())
			continue
		}
		results = append(results, result)
	}

	return e.install(results)
}

// BuildFromSCIP constructs the graph from a SCIP index instead of parsing
// source directly.
func (e *Engine) BuildFromSCIP(indexPath string) (*BuildSummary, error) {
	index, err := scipload.Load(indexPath)
	if err != nil {
		return nil, err
	}
	return e.install(scipload.Convert(index))
}

// install swaps the parsed results in as the new graph under the write lock.
func (e *Engine) install(results []*parser.FileResult) (*BuildSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.g
	language := dominantLanguage(results)
	g := graph.New(language)

	summary := &BuildSummary{Files: len(results)}
	var hints []parser.DepHint
	signals := make(map[string]parser.ComplexitySignals)

	for _, result := range results {
		for _, entity := range result.Entities {
			clone := entity.Clone()
			if old != nil {
				if prev := old.Entity(clone.ID); prev != nil && prev.Lifted() && prev.Source == clone.Source {
					clone.Features = prev.Features
					clone.Provenance = prev.Provenance
					clone.Fingerprint = prev.Fingerprint
					summary.FeaturesPreserved++
				}
			}
			g.UpsertEntity(clone)
		}
		hints = append(hints, result.Hints...)
		for id, sig := range result.Signals {
			signals[id] = sig
		}
	}

	// Carry the prior semantic hierarchy over for entities that still exist;
	// otherwise fall back to the structural file-path placement.
	if old != nil && old.Metadata.SemanticHierarchy {
		for id := range g.Entities {
			if prev := old.Entity(id); prev != nil && prev.HierarchyPath != "" {
				_ = g.AttachEntity(id, prev.HierarchyPath)
			}
		}
		g.Metadata.SemanticHierarchy = true
	} else {
		hierarchy.BuildStructuralFallback(g)
	}

	resolved, dropped := grounding.ResolveHints(g, hints, e.logger)
	summary.HintsResolved = resolved
	summary.HintsDropped = dropped

	grounding.GroundHierarchy(g)
	g.AggregateFeatures()
	g.MaterializeContainment()
	grounding.GroundHierarchy(g)
	g.BaseCommit = e.probe.Head()
	g.RefreshMetadata()

	summary.Entities = len(g.Entities)
	summary.Edges = len(g.Edges)

	e.g = g
	e.signals = signals
	e.reliftNeeded = make(map[string]bool)
	e.discoveredAreas = make(map[string]bool)
	for _, area := range g.Areas() {
		e.discoveredAreas[area] = true
	}

	if err := e.persistLocked(); err != nil {
		e.g = old
		return nil, err
	}
	if e.db != nil {
		if err := e.db.RebuildFTS(g); err != nil {
			e.logger.Warn("FTS rebuild failed", "error", err.Error())
		}
	}
	e.logger.Info("graph built", "files", summary.Files, "entities", summary.Entities, "edges", summary.Edges)
	return summary, nil
}

func dominantLanguage(results []*parser.FileResult) string {
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.Language]++
	}
	best, bestCount := "unknown", 0
	for lang, count := range counts {
		if count > bestCount || (count == bestCount && lang < best) {
			best, bestCount = lang, count
		}
	}
	return best
}

// Update reconciles the graph with the current filesystem state from the
// graph's base commit (or an explicit since commit).
func (e *Engine) Update(ctx context.Context, since string) (*evolution.Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	base := since
	if base == "" {
		base = e.g.BaseCommit
	}
	changes, err := e.probe.DetectChanges(base)
	if err != nil {
		return nil, err
	}
	changes = e.filterIgnored(changes)
	changes = evolution.PairRenames(changes,
		func(p string) ([]byte, error) { return e.probe.ShowAt(base, p) },
		func(p string) ([]byte, error) { return os.ReadFile(filepath.Join(e.repoRoot, p)) },
		identity.LineOverlap)

	if len(changes) == 0 {
		return &evolution.Summary{}, nil
	}

	if _, err := graph.Backup(e.repoRoot); err != nil {
		e.logger.Warn("graph backup failed", "error", err.Error())
	}

	summary := &evolution.Summary{}
	var deleted []string
	var hints []parser.DepHint

	parse := func(file string) (*parser.FileResult, error) {
		source, err := os.ReadFile(filepath.Join(e.repoRoot, file))
		if err != nil {
			return nil, err
		}
		lang, ok := parser.LanguageFromExtension(filepath.Ext(file))
		if !ok {
			return nil, nil
		}
		return e.parser.ParseFile(ctx, file, source, lang)
	}

	for _, change := range changes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch change.Kind {
		case evolution.ChangeDeleted:
			deleted = append(deleted, change.Path)
		case evolution.ChangeRenamed:
			result, err := parse(change.Path)
			if err != nil || result == nil {
				continue
			}
			renamed, inserted := evolution.ApplyRename(e.g, change.OldPath, result)
			summary.FilesRenamed++
			summary.EntitiesUpdated += renamed
			summary.Inserted = append(summary.Inserted, inserted...)
			hints = append(hints, result.Hints...)
			e.mergeSignals(result)
		case evolution.ChangeModified:
			result, err := parse(change.Path)
			if err != nil || result == nil {
				continue
			}
			updated, added, removed, needsRelift, inserted := evolution.ApplyModification(e.g, result)
			summary.EntitiesUpdated += updated
			summary.EntitiesAdded += added
			summary.EntitiesRemoved += removed
			summary.NeedsRelift = append(summary.NeedsRelift, needsRelift...)
			summary.Inserted = append(summary.Inserted, inserted...)
			hints = append(hints, result.Hints...)
			e.mergeSignals(result)
		case evolution.ChangeAdded:
			result, err := parse(change.Path)
			if err != nil || result == nil {
				continue
			}
			added, inserted := evolution.ApplyInsertion(e.g, result, hierarchy.StructuralPath)
			summary.EntitiesAdded += added
			summary.Inserted = append(summary.Inserted, inserted...)
			hints = append(hints, result.Hints...)
			e.mergeSignals(result)
		}
	}

	summary.EntitiesRemoved += evolution.ApplyDeletions(e.g, deleted)

	grounding.ResolveHints(e.g, hints, e.logger)
	grounding.GroundHierarchy(e.g)
	e.g.AggregateFeatures()
	e.g.MaterializeContainment()
	grounding.GroundHierarchy(e.g)
	e.g.BaseCommit = e.probe.Head()
	e.g.RefreshMetadata()

	// Queue inserted entities for routing once the semantic hierarchy
	// exists; modified entities wait for their re-lift to classify drift.
	for _, id := range summary.NeedsRelift {
		e.reliftNeeded[id] = true
	}
	if e.g.Metadata.SemanticHierarchy {
		for _, id := range summary.Inserted {
			e.pending.Upsert(graph.NewPendingEntry(id, graph.PendingInsert, 0, e.g.Revision))
		}
	}

	if err := e.persistLocked(); err != nil {
		return nil, err
	}
	if e.db != nil {
		if err := e.db.RebuildFTS(e.g); err != nil {
			e.logger.Warn("FTS rebuild failed", "error", err.Error())
		}
	}
	e.logger.Info("graph updated",
		"added", summary.EntitiesAdded, "updated", summary.EntitiesUpdated,
		"removed", summary.EntitiesRemoved, "renamedFiles", summary.FilesRenamed)
	return summary, nil
}

func (e *Engine) mergeSignals(result *parser.FileResult) {
	for id, sig := range result.Signals {
		e.signals[id] = sig
	}
}

func (e *Engine) filterIgnored(changes []evolution.FileChange) []evolution.FileChange {
	matcher, err := parser.LoadIgnore(e.repoRoot)
	if err != nil {
		return changes
	}
	var out []evolution.FileChange
	for _, c := range changes {
		if _, ok := parser.LanguageFromExtension(filepath.Ext(c.Path)); !ok {
			continue
		}
		if matcher.Ignored(c.Path, false) {
			continue
		}
		out = append(out, c)
	}
	return out
}
