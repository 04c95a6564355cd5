// Package lifting hands the agent batches of entities needing semantic
// features, validates submissions, and tracks per-entity status.
package lifting

import (
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"rpg/internal/config"
	"rpg/internal/graph"
	"rpg/internal/parser"
)

// Classification is the auto-lift heuristic outcome for one entity.
type Classification string

const (
	// ClassAccept: trivial body, features are assigned silently.
	ClassAccept Classification = "accept"
	// ClassReview: features are pre-filled but the agent confirms them.
	ClassReview Classification = "review"
	// ClassFull: the agent writes features from scratch.
	ClassFull Classification = "full"
)

// Classify applies the auto-lift decision line to an entity's control-flow
// signals. Zero branches, zero loops, and at most autolift_max_calls calls
// is trivial; exactly one branch or review_min_calls+ calls is a review
// candidate; everything else needs full review.
func Classify(sig parser.ComplexitySignals, cfg config.EncodingConfig) Classification {
	if sig.Branches == 0 && sig.Loops == 0 && sig.Calls <= cfg.AutoliftMaxCalls {
		return ClassAccept
	}
	if sig.Branches == 1 || sig.Calls >= cfg.ReviewMinCalls {
		return ClassReview
	}
	return ClassFull
}

// HeuristicFeatures derives a verb-object phrase from an identifier by
// splitting camelCase and snake_case. "validateRequest" becomes
// ["validate request"].
func HeuristicFeatures(name string) []string {
	words := splitIdentifier(name)
	if len(words) == 0 {
		return nil
	}
	return graph.NormalizeFeatures([]string{strings.Join(words, " ")})
}

func splitIdentifier(name string) []string {
	var words []string
	var current []rune
	flush := func() {
		if len(current) > 0 {
			words = append(words, strings.ToLower(string(current)))
			current = nil
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r):
			flush()
			current = append(current, r)
		default:
			current = append(current, r)
		}
	}
	flush()
	return words
}

// BatchItem is one entity presented to the agent for lifting.
type BatchItem struct {
	EntityID  string           `json:"entityId"`
	Kind      graph.EntityKind `json:"kind"`
	Name      string           `json:"name"`
	File      string           `json:"file"`
	Source    string           `json:"source"`
	Status    Classification   `json:"status"`
	Prefilled []string         `json:"prefilled,omitempty"`
}

// Batch is a deterministic slice of the unlifted set bounded by both an
// entity count and a token budget.
type Batch struct {
	ID            string      `json:"id"`
	Index         int         `json:"index"`
	Items         []BatchItem `json:"items"`
	TokenEstimate int         `json:"tokenEstimate"`
	// AutoLifted lists entities assigned features silently while the batch
	// was assembled.
	AutoLifted []string `json:"autoLifted,omitempty"`
}

// EstimateTokens approximates the token count of a source snippet
// (~4 characters per token).
func EstimateTokens(s string) int {
	return len(s)/4 + 1
}

// BuildBatches partitions the unlifted entities into batches. Entities whose
// signals classify as accept get heuristic features applied immediately and
// are reported on the enclosing batch instead of occupying a slot.
//
// Batches are deterministic given the same unlifted set: entities are
// processed in sorted-id order and the split points depend only on sizes.
func BuildBatches(g *graph.Graph, signals map[string]parser.ComplexitySignals, cfg config.EncodingConfig) []Batch {
	unlifted := g.UnliftedIDs()
	if len(unlifted) == 0 {
		return nil
	}

	var batches []Batch
	current := Batch{Index: 0}
	var autoLifted []string

	flush := func() {
		if len(current.Items) == 0 && len(autoLifted) == 0 {
			return
		}
		current.ID = batchID(current.Index, current.Items)
		current.AutoLifted = autoLifted
		autoLifted = nil
		batches = append(batches, current)
		current = Batch{Index: current.Index + 1}
	}

	for _, id := range unlifted {
		e := g.Entity(id)
		if e == nil {
			continue
		}

		status := ClassFull
		if sig, ok := signals[id]; ok {
			status = Classify(sig, cfg)
		}

		if status == ClassAccept {
			feats := HeuristicFeatures(e.Name)
			if len(feats) > 0 {
				clone := e.Clone()
				clone.Features = feats
				clone.Provenance = graph.ProvenanceAuto
				g.UpsertEntity(clone)
				autoLifted = append(autoLifted, id)
				continue
			}
			status = ClassFull
		}

		item := BatchItem{
			EntityID: id,
			Kind:     e.Kind,
			Name:     e.Name,
			File:     e.File,
			Source:   e.Source,
			Status:   status,
		}
		if status == ClassReview {
			item.Prefilled = HeuristicFeatures(e.Name)
		}

		cost := EstimateTokens(e.Source)
		if len(current.Items) > 0 &&
			(current.TokenEstimate+cost > cfg.MaxBatchTokens || len(current.Items) >= cfg.BatchSize) {
			flush()
		}
		current.Items = append(current.Items, item)
		current.TokenEstimate += cost
	}
	flush()

	return batches
}

// batchID derives a stable identifier from the batch contents so repeated
// calls over an unchanged unlifted set return the same ids.
func batchID(index int, items []BatchItem) string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.EntityID)
	}
	sort.Strings(ids)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(ids, "\n"))).String()
}
