package search

import (
	"context"

	"rpg/internal/graph"
	"rpg/internal/lifting"
)

// PackEntry is one entity's contribution to a context pack.
type PackEntry struct {
	EntityID  string   `json:"entityId"`
	Name      string   `json:"name"`
	File      string   `json:"file"`
	StartLine int      `json:"startLine"`
	EndLine   int      `json:"endLine"`
	Features  []string `json:"features,omitempty"`
	Source    string   `json:"source,omitempty"`
	Neighbors []string `json:"neighbors,omitempty"`
}

// ContextPack is a budgeted bundle of search results plus neighbor context.
type ContextPack struct {
	Query      string      `json:"query"`
	Entries    []PackEntry `json:"entries"`
	TokenCount int         `json:"tokenCount"`
	// Evicted counts fields removed to fit the budget.
	EvictedSources  int `json:"evictedSources,omitempty"`
	EvictedFeatures int `json:"evictedFeatures,omitempty"`
	EvictedEntries  int `json:"evictedEntries,omitempty"`
}

// BuildContextPack searches, fetches neighbor context, and prunes the result
// to the caller's token budget. Eviction removes whole-entity source before
// features, and features before identity: sources go first from the lowest
// ranked entry up, then feature lists, then entire entries.
func BuildContextPack(ctx context.Context, g *graph.Graph, query string, budget int, opts Options, semantic SemanticIndex) *ContextPack {
	if budget <= 0 {
		budget = 4000
	}
	opts.Query = query
	results := Search(ctx, g, opts, semantic, nil)

	pack := &ContextPack{Query: query}
	for _, r := range results {
		e := g.Entity(r.EntityID)
		if e == nil {
			continue
		}
		entry := PackEntry{
			EntityID:  e.ID,
			Name:      e.Name,
			File:      e.File,
			StartLine: e.StartLine,
			EndLine:   e.EndLine,
			Features:  e.Features,
			Source:    e.Source,
		}
		for _, edge := range g.Neighbors(e.ID, graph.Both, nil) {
			other := edge.Target
			if other == e.ID {
				other = edge.Source
			}
			entry.Neighbors = append(entry.Neighbors, other)
		}
		pack.Entries = append(pack.Entries, entry)
	}

	pack.TokenCount = packTokens(pack)

	// Evict sources from the bottom of the ranking upward.
	for i := len(pack.Entries) - 1; i >= 0 && pack.TokenCount > budget; i-- {
		if pack.Entries[i].Source != "" {
			pack.Entries[i].Source = ""
			pack.EvictedSources++
			pack.TokenCount = packTokens(pack)
		}
	}
	// Then feature lists.
	for i := len(pack.Entries) - 1; i >= 0 && pack.TokenCount > budget; i-- {
		if len(pack.Entries[i].Features) > 0 {
			pack.Entries[i].Features = nil
			pack.EvictedFeatures++
			pack.TokenCount = packTokens(pack)
		}
	}
	// Identity goes last: drop whole entries from the bottom.
	for pack.TokenCount > budget && len(pack.Entries) > 1 {
		pack.Entries = pack.Entries[:len(pack.Entries)-1]
		pack.EvictedEntries++
		pack.TokenCount = packTokens(pack)
	}

	return pack
}

func packTokens(pack *ContextPack) int {
	total := lifting.EstimateTokens(pack.Query)
	for _, e := range pack.Entries {
		total += lifting.EstimateTokens(e.EntityID) + lifting.EstimateTokens(e.Name) + lifting.EstimateTokens(e.File)
		for _, f := range e.Features {
			total += lifting.EstimateTokens(f)
		}
		total += lifting.EstimateTokens(e.Source)
		for _, n := range e.Neighbors {
			total += lifting.EstimateTokens(n)
		}
	}
	return total
}
