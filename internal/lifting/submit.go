package lifting

import (
	"sort"

	"rpg/internal/config"
	"rpg/internal/graph"
	"rpg/internal/identity"
)

// DriftZone classifies a re-lift's feature drift.
type DriftZone string

const (
	ZoneIgnore     DriftZone = "ignore"
	ZoneBorderline DriftZone = "borderline"
	ZoneAuto       DriftZone = "auto"
)

// ClassifyDrift maps a Jaccard distance onto the configured drift zones.
func ClassifyDrift(drift float64, cfg config.EncodingConfig) DriftZone {
	switch {
	case drift < cfg.DriftIgnoreThreshold:
		return ZoneIgnore
	case drift > cfg.DriftAutoThreshold:
		return ZoneAuto
	default:
		return ZoneBorderline
	}
}

// SubmitOutcome reports what a feature submission did.
type SubmitOutcome struct {
	Applied   []string `json:"applied"`
	Unmatched []string `json:"unmatched,omitempty"`
	// Queued holds entities appended to pending-routing with the reason.
	Queued map[string]graph.PendingReason `json:"queued,omitempty"`
	// Warnings carries non-blocking feature quality critique; the features
	// are applied regardless.
	Warnings []QualityWarning `json:"warnings,omitempty"`
}

// ApplySubmission validates and applies a map of entity id to features.
//
// Valid keys are applied atomically per call; invalid keys are reported in
// Unmatched and never modify the graph. Re-lifts of already-lifted entities
// are classified by drift: ignore replaces in place, borderline and auto
// zones additionally queue the entity for routing. First lifts whose
// features diverge from their hierarchy node's aggregate are queued too.
func ApplySubmission(g *graph.Graph, results map[string][]string, cfg config.EncodingConfig) SubmitOutcome {
	outcome := SubmitOutcome{Queued: make(map[string]graph.PendingReason)}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := g.Entity(id)
		if e == nil || e.Kind == graph.KindModule {
			outcome.Unmatched = append(outcome.Unmatched, id)
			continue
		}

		newFeatures := graph.NormalizeFeatures(results[id])
		if len(newFeatures) == 0 {
			outcome.Unmatched = append(outcome.Unmatched, id)
			continue
		}

		outcome.Warnings = append(outcome.Warnings, Critique(id, results[id])...)

		oldFeatures := e.Features
		wasLifted := e.Lifted() && e.Provenance != graph.ProvenanceAuto

		clone := e.Clone()
		clone.Features = newFeatures
		clone.Provenance = graph.ProvenanceLLM
		clone.Fingerprint = identity.FeatureFingerprint(newFeatures)
		g.UpsertEntity(clone)
		outcome.Applied = append(outcome.Applied, id)

		if wasLifted {
			drift := graph.FeatureDrift(oldFeatures, newFeatures)
			switch ClassifyDrift(drift, cfg) {
			case ZoneBorderline:
				outcome.Queued[id] = graph.PendingBorderline
			case ZoneAuto:
				outcome.Queued[id] = graph.PendingAuto
			}
			continue
		}

		// First lift: flag entities that no longer resemble their node.
		if g.Metadata.SemanticHierarchy && clone.HierarchyPath != "" {
			if node := g.Node(clone.HierarchyPath); node != nil && len(node.Features) > 0 {
				if graph.FeatureDrift(newFeatures, node.Features) > cfg.DriftThreshold {
					outcome.Queued[id] = graph.PendingSubmit
				}
			}
		}
	}

	if len(outcome.Applied) > 0 {
		g.AggregateFeatures()
	}
	return outcome
}

// Status summarizes lifting progress for the agent.
type Status struct {
	Lifted      int      `json:"lifted"`
	Total       int      `json:"total"`
	Unlifted    []string `json:"unlifted,omitempty"`
	PendingSize int      `json:"pendingSize"`
}

// CurrentStatus computes lifting coverage over the graph.
func CurrentStatus(g *graph.Graph, pendingSize int) Status {
	lifted, total := g.LiftingCoverage()
	s := Status{Lifted: lifted, Total: total, PendingSize: pendingSize}
	if unlifted := g.UnliftedIDs(); len(unlifted) <= 50 {
		s.Unlifted = unlifted
	}
	return s
}
