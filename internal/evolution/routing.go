package evolution

import (
	"sort"
	"strings"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
	"rpg/internal/hierarchy"
)

// RoutingCandidate pairs a hierarchy path with its aggregate-feature overlap
// against the entity being routed.
type RoutingCandidate struct {
	Path    string  `json:"path"`
	Overlap float64 `json:"overlap"`
}

// CandidatePaths ranks the existing three-segment hierarchy paths by
// aggregate-feature Jaccard overlap with the given features and returns the
// top n. Ties break lexicographically so candidate lists are deterministic.
func CandidatePaths(g *graph.Graph, features []string, n int) []RoutingCandidate {
	var candidates []RoutingCandidate
	for _, path := range g.NodePaths() {
		if len(graph.SplitPath(path)) != 3 {
			continue
		}
		node := g.Node(path)
		candidates = append(candidates, RoutingCandidate{
			Path:    path,
			Overlap: graph.FeatureOverlap(features, node.Features),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Overlap != candidates[j].Overlap {
			return candidates[i].Overlap > candidates[j].Overlap
		}
		return candidates[i].Path < candidates[j].Path
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// RoutingItem is one pending entity presented to the agent with its
// candidate paths.
type RoutingItem struct {
	EntityID   string              `json:"entityId"`
	Features   []string            `json:"features"`
	Reason     graph.PendingReason `json:"reason"`
	Drift      float64             `json:"drift,omitempty"`
	Revision   int64               `json:"revision"`
	Candidates []RoutingCandidate  `json:"candidates"`
}

// RoutingCandidates builds the agent payload for every pending entity.
func RoutingCandidates(g *graph.Graph, pending *graph.PendingQueue) []RoutingItem {
	items := make([]RoutingItem, 0, len(pending.Entries))
	for _, entry := range pending.Entries {
		e := g.Entity(entry.EntityID)
		if e == nil {
			continue
		}
		items = append(items, RoutingItem{
			EntityID:   entry.EntityID,
			Features:   e.Features,
			Reason:     entry.Reason,
			Drift:      entry.Drift,
			Revision:   entry.Revision,
			Candidates: CandidatePaths(g, e.Features, 3),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EntityID < items[j].EntityID })
	return items
}

// DecisionOutcome reports applied and rejected routing decisions.
type DecisionOutcome struct {
	Applied  []string          `json:"applied"`
	Rejected map[string]string `json:"rejected,omitempty"`
}

// ApplyDecisions applies agent routing decisions against the pending queue.
//
// A decision is either "keep" or a strict three-segment path that already
// exists. Stale decisions (queue entry revision differs from the current
// graph revision) are rejected with StaleRevision and the graph is left
// unchanged. Invalid decisions leave the entity pending.
func ApplyDecisions(g *graph.Graph, pending *graph.PendingQueue, decisions map[string]string) DecisionOutcome {
	outcome := DecisionOutcome{Rejected: make(map[string]string)}

	ids := make([]string, 0, len(decisions))
	for id := range decisions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	// Staleness is judged against the revision current when the call started,
	// not against revisions advanced by earlier decisions in the same call.
	current := g.Revision

	for _, id := range ids {
		entry := pending.Find(id)
		if entry == nil {
			outcome.Rejected[id] = rpgerr.Newf(rpgerr.UnknownEntity, "entity %q is not pending", id).Error()
			continue
		}
		if entry.Revision != current {
			outcome.Rejected[id] = rpgerr.Newf(rpgerr.StaleRevision,
				"decision for %q stored at revision %d, graph is at %d", id, entry.Revision, current).Error()
			continue
		}

		decision := strings.TrimSpace(decisions[id])
		if strings.EqualFold(decision, "keep") {
			if entry.Reason == graph.PendingAuto {
				outcome.Rejected[id] = rpgerr.Newf(rpgerr.InvalidDecision,
					"entity %q drifted past the auto threshold, keep is not allowed", id).Error()
				continue
			}
			pending.Remove(id)
			outcome.Applied = append(outcome.Applied, id)
			continue
		}

		if len(graph.SplitPath(decision)) != 3 {
			outcome.Rejected[id] = rpgerr.Newf(rpgerr.InvalidDecision,
				"%q is neither keep nor a three-segment path", decision).Error()
			continue
		}
		if g.Node(decision) == nil {
			outcome.Rejected[id] = rpgerr.Newf(rpgerr.InvalidDecision,
				"path %q does not exist", decision).Error()
			continue
		}
		if err := g.AttachEntity(id, decision); err != nil {
			outcome.Rejected[id] = err.Error()
			continue
		}
		pending.Remove(id)
		outcome.Applied = append(outcome.Applied, id)
	}

	if len(outcome.Applied) > 0 {
		g.AggregateFeatures()
	}
	return outcome
}

// Finalize drains the pending queue without the agent: each entity goes to
// its Jaccard-nearest existing path (lexicographic tie-break), falling back
// to the structural file-path placement when the hierarchy has no
// three-segment nodes. Guarantees progress regardless of agent availability.
func Finalize(g *graph.Graph, pending *graph.PendingQueue) []string {
	var drained []string
	entries := append([]graph.PendingEntry(nil), pending.Entries...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].EntityID < entries[j].EntityID })

	for _, entry := range entries {
		e := g.Entity(entry.EntityID)
		if e == nil {
			pending.Remove(entry.EntityID)
			continue
		}
		target := ""
		if candidates := CandidatePaths(g, e.Features, 1); len(candidates) > 0 {
			target = candidates[0].Path
		} else if structural := hierarchy.StructuralPath(e.File); structural != "" {
			target = structural
		}
		if target != "" && target != e.HierarchyPath {
			_ = g.AttachEntity(entry.EntityID, target)
		}
		pending.Remove(entry.EntityID)
		drained = append(drained, entry.EntityID)
	}

	if len(drained) > 0 {
		g.AggregateFeatures()
	}
	return drained
}
