package engine

import (
	"sort"

	rpgerr "rpg/internal/errors"
	"rpg/internal/evolution"
	"rpg/internal/graph"
	"rpg/internal/grounding"
	"rpg/internal/hierarchy"
	"rpg/internal/lifting"
)

// LiftingStatus reports coverage and queue sizes.
func (e *Engine) LiftingStatus() (*lifting.Status, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	s := lifting.CurrentStatus(e.g, len(e.pending.Entries))
	return &s, nil
}

// GetEntitiesForLifting returns the batch at batchIndex over the current
// unlifted set plus any entities flagged for re-lift after modification.
// scope, when non-empty, restricts to entities under that hierarchy path.
func (e *Engine) GetEntitiesForLifting(scope string, batchIndex int) (*lifting.Batch, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, 0, err
	}

	batches := lifting.BuildBatches(e.g, e.signals, e.cfg.Encoding)
	batches = e.appendReliftItems(batches)
	if scope != "" {
		batches = filterBatchesByScope(e.g, batches, scope)
	}

	// Auto-lift mutates the graph, so persist before handing out work.
	if err := e.persistLocked(); err != nil {
		return nil, 0, err
	}

	if len(batches) == 0 {
		return &lifting.Batch{Index: 0}, 0, nil
	}
	if batchIndex < 0 || batchIndex >= len(batches) {
		return nil, len(batches), rpgerr.Newf(rpgerr.InvalidDecision,
			"batch index %d out of range (0..%d)", batchIndex, len(batches)-1)
	}
	return &batches[batchIndex], len(batches), nil
}

// appendReliftItems adds modified-but-lifted entities as full-review items.
func (e *Engine) appendReliftItems(batches []lifting.Batch) []lifting.Batch {
	if len(e.reliftNeeded) == 0 {
		return batches
	}
	ids := make([]string, 0, len(e.reliftNeeded))
	for id := range e.reliftNeeded {
		if e.g.Entity(id) != nil {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return batches
	}
	sort.Strings(ids)

	batch := lifting.Batch{Index: len(batches)}
	for _, id := range ids {
		ent := e.g.Entity(id)
		batch.Items = append(batch.Items, lifting.BatchItem{
			EntityID:  id,
			Kind:      ent.Kind,
			Name:      ent.Name,
			File:      ent.File,
			Source:    ent.Source,
			Status:    lifting.ClassFull,
			Prefilled: ent.Features,
		})
		batch.TokenEstimate += lifting.EstimateTokens(ent.Source)
	}
	return append(batches, batch)
}

func filterBatchesByScope(g *graph.Graph, batches []lifting.Batch, scope string) []lifting.Batch {
	allowed := make(map[string]bool)
	for _, id := range g.EntitiesUnder(scope) {
		allowed[id] = true
	}
	var out []lifting.Batch
	index := 0
	for _, b := range batches {
		filtered := lifting.Batch{ID: b.ID, Index: index, AutoLifted: b.AutoLifted}
		for _, item := range b.Items {
			if allowed[item.EntityID] {
				filtered.Items = append(filtered.Items, item)
				filtered.TokenEstimate += lifting.EstimateTokens(item.Source)
			}
		}
		if len(filtered.Items) > 0 {
			out = append(out, filtered)
			index++
		}
	}
	return out
}

// SubmitLiftResults validates and applies a feature submission, queues
// drifted entities for routing, bumps graph_revision, and persists
// immediately. Invalid keys are reported and do not modify the graph.
func (e *Engine) SubmitLiftResults(results map[string][]string) (*lifting.SubmitOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	outcome := lifting.ApplySubmission(e.g, results, e.cfg.Encoding)

	for _, id := range outcome.Applied {
		delete(e.reliftNeeded, id)
		if e.embedder != nil {
			e.embedder.Invalidate(id)
		}
	}
	for id, reason := range outcome.Queued {
		entry := graph.NewPendingEntry(id, reason, 0, e.g.Revision)
		if existing := e.pending.Find(id); existing != nil && existing.Reason == graph.PendingAuto {
			entry.Reason = graph.PendingAuto
		}
		e.pending.Upsert(entry)
	}

	if len(outcome.Applied) > 0 {
		if err := e.persistLocked(); err != nil {
			return nil, err
		}
	}
	return &outcome, nil
}

// GetFilesForSynthesis returns the synthesis batch at batchIndex.
func (e *Engine) GetFilesForSynthesis(batchIndex int) (*lifting.SynthesisBatch, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	batch := lifting.SynthesisBatchAt(e.g, batchIndex, e.cfg.Encoding)
	return &batch, nil
}

// SubmitFileSyntheses stores holistic per-file features on Module entities.
func (e *Engine) SubmitFileSyntheses(results map[string][]string) (*lifting.SubmitOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	outcome := lifting.ApplySyntheses(e.g, results)
	if len(outcome.Applied) > 0 {
		if err := e.persistLocked(); err != nil {
			return nil, err
		}
	}
	return &outcome, nil
}

// HierarchyProposal is the payload for the hierarchy construction dialog.
type HierarchyProposal struct {
	Clusters []hierarchy.FileCluster `json:"clusters"`
	// Prompts holds one domain-discovery prompt per cluster.
	Prompts []string             `json:"prompts"`
	Seeds   []hierarchy.AreaSeed `json:"seeds,omitempty"`
}

// BuildSemanticHierarchy assembles the domain-discovery dialog: file
// clusters (sharded for large repositories) plus prompts that fold in any
// declared area seeds.
func (e *Engine) BuildSemanticHierarchy() (*HierarchyProposal, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	seeds, err := hierarchy.LoadAreaSeeds(e.repoRoot)
	if err != nil {
		return nil, err
	}
	clusters := hierarchy.ClusterFiles(e.g, e.cfg.Encoding.HierarchyClusterSize, e.cfg.Encoding.HierarchySizeThreshold)

	proposal := &HierarchyProposal{Clusters: clusters, Seeds: seeds}
	for _, cluster := range clusters {
		proposal.Prompts = append(proposal.Prompts, hierarchy.DiscoveryPrompt(e.g, cluster, seeds))
	}
	return proposal, nil
}

// SubmitHierarchy validates the discovered areas, applies assignments,
// refreshes Contains edges and grounding, and persists.
func (e *Engine) SubmitHierarchy(areas []string, assignments map[string]string) (*hierarchy.ApplyOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	known := make(map[string]bool)
	for _, area := range areas {
		if err := hierarchy.ValidateAreaName(area); err != nil {
			return nil, err
		}
		known[area] = true
	}
	if len(known) == 0 {
		return nil, rpgerr.New(rpgerr.InvalidHierarchyPath, "no areas supplied")
	}

	outcome := hierarchy.Apply(e.g, assignments, known)
	if len(outcome.Applied) > 0 {
		e.discoveredAreas = known
		e.g.MaterializeContainment()
		e.refreshGroundingLocked()
		if err := e.persistLocked(); err != nil {
			return nil, err
		}
	}
	return &outcome, nil
}

// GetRoutingCandidates lists pending entities with their top-three candidate
// paths. Entries are re-stamped to the current revision so a decision made
// against this listing is valid unless a mutation intervenes.
func (e *Engine) GetRoutingCandidates() ([]evolution.RoutingItem, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	for i := range e.pending.Entries {
		e.pending.Entries[i].Revision = e.g.Revision
	}
	if err := e.pending.Save(e.repoRoot); err != nil {
		return nil, err
	}
	return evolution.RoutingCandidates(e.g, e.pending), nil
}

// SubmitRoutingDecisions applies agent routing decisions; stale and invalid
// decisions are rejected per entity and leave the graph unchanged.
func (e *Engine) SubmitRoutingDecisions(decisions map[string]string) (*evolution.DecisionOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	outcome := evolution.ApplyDecisions(e.g, e.pending, decisions)
	if len(outcome.Applied) > 0 {
		e.refreshGroundingLocked()
		if err := e.persistLocked(); err != nil {
			return nil, err
		}
	}
	return &outcome, nil
}

// FinalizeLifting drains the pending queue deterministically without the
// agent and persists the result.
func (e *Engine) FinalizeLifting() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	if len(e.pending.Entries) > 0 {
		if _, err := graph.Backup(e.repoRoot); err != nil {
			e.logger.Warn("graph backup failed", "error", err.Error())
		}
	}
	drained := evolution.Finalize(e.g, e.pending)
	if len(drained) > 0 {
		e.refreshGroundingLocked()
		if err := e.persistLocked(); err != nil {
			return nil, err
		}
		if e.db != nil {
			if err := e.db.RebuildFTS(e.g); err != nil {
				e.logger.Warn("FTS rebuild failed", "error", err.Error())
			}
		}
	}
	return drained, nil
}

func (e *Engine) refreshGroundingLocked() {
	e.g.AggregateFeatures()
	e.g.MaterializeContainment()
	// Grounding runs after containment so anchors reflect final membership.
	grounding.GroundHierarchy(e.g)
	e.g.RefreshMetadata()
}
