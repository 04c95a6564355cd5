package search

import (
	"context"
	"math"
	"path"
	"sort"
	"strings"

	"rpg/internal/graph"
)

// Mode selects which signals a search uses.
type Mode string

const (
	// ModeFeatures blends the semantic and lexical signals (the default).
	ModeFeatures Mode = "features"
	// ModeSnippets matches entity names, file paths, and hierarchy paths only.
	ModeSnippets Mode = "snippets"
)

// Filters restrict the candidate pool before ranking. Every returned entity
// satisfies every filter regardless of which signal surfaced it.
type Filters struct {
	// Scope is a hierarchy path prefix.
	Scope string
	// FilePattern is a glob over entity file paths.
	FilePattern string
	// LineStart/LineEnd restrict to entities overlapping the range (0 = off).
	LineStart int
	LineEnd   int
	Kinds     []graph.EntityKind
}

// Options parameterizes one search call.
type Options struct {
	Query          string
	Mode           Mode
	Limit          int
	Filters        Filters
	SinceCommit    string
	SemanticWeight float64
	LexicalWeight  float64
}

// Result is one ranked hit.
type Result struct {
	EntityID        string   `json:"entityId"`
	Name            string   `json:"name"`
	File            string   `json:"file"`
	StartLine       int      `json:"startLine"`
	Score           float64  `json:"score"`
	MatchedFeatures []string `json:"matchedFeatures,omitempty"`
	Lifted          bool     `json:"lifted"`
	Changed         bool     `json:"changed,omitempty"`
}

// SemanticIndex is the embedding collaborator surface the search engine
// consumes: a query vector plus per-feature vectors per entity.
type SemanticIndex interface {
	QueryVector(ctx context.Context, query string) ([]float32, error)
	// FeatureVectors returns one vector per stored feature, or nil when the
	// entity has no embeddings.
	FeatureVectors(entityID string) [][]float32
}

// Search runs a scored query. semantic may be nil, in which case scoring
// degrades to lexical-only. changedFiles (from the diff probe) enables the
// proximity boost when SinceCommit was supplied.
func Search(ctx context.Context, g *graph.Graph, opts Options, semantic SemanticIndex, changedFiles map[string]bool) []Result {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.SemanticWeight == 0 && opts.LexicalWeight == 0 {
		opts.SemanticWeight, opts.LexicalWeight = 0.6, 0.4
	}

	candidates := filterCandidates(g, opts.Filters)
	if len(candidates) == 0 {
		return nil
	}

	var lexical map[string]float64
	if opts.Mode == ModeSnippets {
		lexical = snippetScores(candidates, opts.Query)
	} else {
		lexical = lexicalScores(candidates, opts.Query)
	}

	var semanticScores map[string]float64
	if opts.Mode != ModeSnippets && semantic != nil {
		if qv, err := semantic.QueryVector(ctx, opts.Query); err == nil && len(qv) > 0 {
			semanticScores = make(map[string]float64)
			for _, e := range candidates {
				vectors := semantic.FeatureVectors(e.ID)
				if len(vectors) == 0 {
					continue
				}
				// Max over per-feature vectors, never a centroid.
				best := -1.0
				for _, v := range vectors {
					if s := cosine(qv, v); s > best {
						best = s
					}
				}
				if best > 0 {
					semanticScores[e.ID] = best
				}
			}
		}
	}

	// Rank-normalize each signal over the candidate pool, then blend.
	poolSize := len(candidates)
	lexRank := rankNormalize(lexical, poolSize)
	semRank := rankNormalize(semanticScores, poolSize)

	blended := make(map[string]float64)
	if len(semRank) == 0 {
		// No embeddings: degrade to lexical-only.
		for id, s := range lexRank {
			blended[id] = s
		}
	} else {
		for id, s := range lexRank {
			blended[id] += opts.LexicalWeight * s
		}
		for id, s := range semRank {
			blended[id] += opts.SemanticWeight * s
		}
	}
	if len(blended) == 0 {
		return nil
	}

	// Diff-aware boost over an enlarged pool so low-ranked changed entities
	// can rise into the returned results.
	changed := make(map[string]bool)
	if opts.SinceCommit != "" && len(changedFiles) > 0 {
		for _, e := range candidates {
			if changedFiles[e.File] {
				changed[e.ID] = true
			}
		}
		pool := boostPoolSize(opts.Limit)
		applyDiffBoost(g, blended, changed, pool)
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(blended))
	for id, s := range blended {
		ranked = append(ranked, scored{id, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}

	queryTokens := Tokenize(opts.Query)
	results := make([]Result, 0, len(ranked))
	for _, r := range ranked {
		e := g.Entity(r.id)
		results = append(results, Result{
			EntityID:        r.id,
			Name:            e.Name,
			File:            e.File,
			StartLine:       e.StartLine,
			Score:           r.score,
			MatchedFeatures: matchedFeatures(e, queryTokens),
			Lifted:          e.Lifted(),
			Changed:         changed[r.id],
		})
	}
	return results
}

func boostPoolSize(limit int) int {
	pool := limit * 10
	if pool < 100 {
		pool = 100
	}
	return pool
}

// applyDiffBoost multiplies scores by graph proximity to changed entities:
// 3x for changed, 2x for 1-hop neighbors, 1.5x for 2-hop neighbors. Only the
// top pool entries are considered, which is already at least 10x the final
// limit.
func applyDiffBoost(g *graph.Graph, scores map[string]float64, changed map[string]bool, pool int) {
	if len(changed) == 0 {
		return
	}

	oneHop := make(map[string]bool)
	for id := range changed {
		for _, edge := range g.Neighbors(id, graph.Both, nil) {
			oneHop[edge.Source] = true
			oneHop[edge.Target] = true
		}
	}
	twoHop := make(map[string]bool)
	for id := range oneHop {
		for _, edge := range g.Neighbors(id, graph.Both, nil) {
			twoHop[edge.Source] = true
			twoHop[edge.Target] = true
		}
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, scored{id, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > pool {
		ranked = ranked[:pool]
	}

	for _, r := range ranked {
		switch {
		case changed[r.id]:
			scores[r.id] = r.score * 3.0
		case oneHop[r.id]:
			scores[r.id] = r.score * 2.0
		case twoHop[r.id]:
			scores[r.id] = r.score * 1.5
		}
	}
}

// rankNormalize maps raw scores onto [0, 1] by rank over the pool:
// 1 - (rank-1)/poolSize. Entities without a score contribute nothing.
func rankNormalize(scores map[string]float64, poolSize int) map[string]float64 {
	if len(scores) == 0 || poolSize == 0 {
		return nil
	}
	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, scored{id, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	out := make(map[string]float64, len(ranked))
	for i, r := range ranked {
		out[r.id] = 1.0 - float64(i)/float64(poolSize)
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// snippetScores matches entity names, files, and hierarchy paths only.
func snippetScores(entities []*graph.Entity, query string) map[string]float64 {
	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil
	}
	scores := make(map[string]float64)
	for _, e := range entities {
		name := strings.ToLower(e.Name)
		file := strings.ToLower(e.File)
		hpath := strings.ToLower(e.HierarchyPath)
		score := 0.0
		for _, t := range terms {
			if strings.Contains(name, t) {
				score += 2.0
			}
			if strings.Contains(file, t) {
				score += 1.0
			}
			if strings.Contains(hpath, t) {
				score += 0.5
			}
		}
		if score > 0 {
			scores[e.ID] = score / float64(len(terms))
		}
	}
	return scores
}

// filterCandidates applies scope, file pattern, line range, and kind filters
// before any ranking happens.
func filterCandidates(g *graph.Graph, f Filters) []*graph.Entity {
	var scoped map[string]bool
	if f.Scope != "" {
		ids := g.EntitiesUnder(f.Scope)
		scoped = make(map[string]bool, len(ids))
		for _, id := range ids {
			scoped[id] = true
		}
	}

	var out []*graph.Entity
	for _, id := range sortedEntityIDs(g) {
		e := g.Entity(id)
		if scoped != nil && !scoped[id] {
			continue
		}
		if f.FilePattern != "" && !matchFilePattern(f.FilePattern, e.File) {
			continue
		}
		if f.LineEnd > 0 && (e.EndLine < f.LineStart || e.StartLine > f.LineEnd) {
			continue
		}
		if len(f.Kinds) > 0 && !kindAllowed(e.Kind, f.Kinds) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func sortedEntityIDs(g *graph.Graph) []string {
	ids := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func kindAllowed(kind graph.EntityKind, allowed []graph.EntityKind) bool {
	for _, k := range allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// matchFilePattern supports plain globs plus a trailing "/**" directory form.
func matchFilePattern(pattern, file string) bool {
	if strings.HasSuffix(pattern, "/**") {
		return strings.HasPrefix(file, strings.TrimSuffix(pattern, "/**")+"/")
	}
	if ok, _ := path.Match(pattern, file); ok {
		return true
	}
	ok, _ := path.Match(pattern, path.Base(file))
	return ok
}

func matchedFeatures(e *graph.Entity, queryTokens []string) []string {
	var out []string
	for _, f := range e.Features {
		for _, t := range queryTokens {
			if strings.Contains(f, t) {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
