package lifting

import (
	"sort"

	"rpg/internal/config"
	"rpg/internal/graph"
	"rpg/internal/identity"
	"rpg/internal/parser"
)

// SynthesisCandidate is a fully-lifted file whose Module entity still needs
// holistic features.
type SynthesisCandidate struct {
	File     string `json:"file"`
	ModuleID string `json:"moduleId"`
	// FeatureBag is the union of the file's entity features, the raw
	// material the agent abstracts into 3-6 holistic features.
	FeatureBag []string `json:"featureBag"`
}

// SynthesisBatch groups candidates for one agent round-trip.
type SynthesisBatch struct {
	Index      int                  `json:"index"`
	Total      int                  `json:"total"`
	Candidates []SynthesisCandidate `json:"candidates"`
}

// SynthesisCandidates lists files where every non-module entity is lifted
// and the Module entity has no synthesized features yet, sorted by file.
func SynthesisCandidates(g *graph.Graph) []SynthesisCandidate {
	var out []SynthesisCandidate
	for _, file := range g.Files() {
		ids := g.EntitiesInFile(file)
		moduleID := parser.ModuleEntityID(file)
		module := g.Entity(moduleID)
		if module == nil || module.Lifted() {
			continue
		}

		var bag []string
		complete := true
		for _, id := range ids {
			e := g.Entity(id)
			if e == nil || e.Kind == graph.KindModule {
				continue
			}
			if !e.Lifted() {
				complete = false
				break
			}
			bag = append(bag, e.Features...)
		}
		if !complete || len(bag) == 0 {
			continue
		}
		out = append(out, SynthesisCandidate{
			File:       file,
			ModuleID:   moduleID,
			FeatureBag: graph.NormalizeFeatures(bag),
		})
	}
	return out
}

// SynthesisBatchAt slices the candidate list into fixed-size batches and
// returns the batch at the given index along with the total batch count.
func SynthesisBatchAt(g *graph.Graph, index int, cfg config.EncodingConfig) SynthesisBatch {
	candidates := SynthesisCandidates(g)
	size := cfg.BatchSize
	if size <= 0 {
		size = 50
	}
	total := (len(candidates) + size - 1) / size
	batch := SynthesisBatch{Index: index, Total: total}
	start := index * size
	if start >= len(candidates) {
		return batch
	}
	end := start + size
	if end > len(candidates) {
		end = len(candidates)
	}
	batch.Candidates = candidates[start:end]
	return batch
}

// ApplySyntheses stores agent-abstracted holistic features on Module
// entities. Keys may be file paths or module entity ids; unknown keys and
// empty feature lists are reported unmatched.
func ApplySyntheses(g *graph.Graph, results map[string][]string) SubmitOutcome {
	outcome := SubmitOutcome{}

	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		moduleID := key
		if e := g.Entity(moduleID); e == nil {
			moduleID = parser.ModuleEntityID(key)
		}
		module := g.Entity(moduleID)
		if module == nil || module.Kind != graph.KindModule {
			outcome.Unmatched = append(outcome.Unmatched, key)
			continue
		}
		features := graph.NormalizeFeatures(results[key])
		if len(features) == 0 {
			outcome.Unmatched = append(outcome.Unmatched, key)
			continue
		}
		clone := module.Clone()
		clone.Features = features
		clone.Provenance = graph.ProvenanceSynthesized
		clone.Fingerprint = identity.FeatureFingerprint(features)
		g.UpsertEntity(clone)
		outcome.Applied = append(outcome.Applied, moduleID)
	}

	if len(outcome.Applied) > 0 {
		g.AggregateFeatures()
	}
	return outcome
}
