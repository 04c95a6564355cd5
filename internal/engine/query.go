package engine

import (
	"context"
	"time"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
	"rpg/internal/search"
	"rpg/internal/storage"
)

// SearchNode answers an intent query. since, when non-empty, enables the
// diff-aware proximity boost against that commit.
func (e *Engine) SearchNode(ctx context.Context, opts search.Options) ([]search.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	if opts.Limit <= 0 {
		opts.Limit = e.cfg.Navigation.SearchResultLimit
	}
	if opts.SemanticWeight == 0 && opts.LexicalWeight == 0 {
		opts.SemanticWeight = e.cfg.Navigation.SemanticWeight
		opts.LexicalWeight = e.cfg.Navigation.LexicalWeight
	}

	var changedFiles map[string]bool
	if opts.SinceCommit != "" {
		set, err := e.probe.ChangedFiles(opts.SinceCommit)
		if err != nil {
			return nil, err
		}
		changedFiles = set
	}

	var semantic search.SemanticIndex
	if e.embedder != nil && e.embedder.Enabled() && e.cfg.Navigation.EmbeddingEnabled {
		semantic = e.embedder
	}

	start := time.Now()
	results := search.Search(ctx, e.g, opts, semantic, changedFiles)
	if e.db != nil {
		e.db.RecordSearch(storage.SearchMetric{
			Query:       opts.Query,
			Mode:        string(opts.Mode),
			ResultCount: len(results),
			Duration:    time.Since(start),
		})
	}
	return results, nil
}

// NodeDetail is the fetch_node payload.
type NodeDetail struct {
	Entity   *graph.Entity          `json:"entity,omitempty"`
	Node     *graph.HierarchyNode   `json:"node,omitempty"`
	Incoming []graph.DependencyEdge `json:"incoming,omitempty"`
	Outgoing []graph.DependencyEdge `json:"outgoing,omitempty"`
}

// FetchNode returns one entity or hierarchy node with its incident edges.
// fields, when non-empty, trims the entity payload ("features" drops source,
// "identity" drops features too).
func (e *Engine) FetchNode(id string, fields string) (*NodeDetail, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	if entity := e.g.Entity(id); entity != nil {
		detail := &NodeDetail{
			Entity:   entity.Clone(),
			Incoming: e.g.Neighbors(id, graph.Upstream, nil),
			Outgoing: e.g.Neighbors(id, graph.Downstream, nil),
		}
		switch fields {
		case "features":
			detail.Entity.Source = ""
		case "identity":
			detail.Entity.Source = ""
			detail.Entity.Features = nil
		}
		return detail, nil
	}
	if node := e.g.Node(id); node != nil {
		return &NodeDetail{Node: node}, nil
	}
	return nil, rpgerr.Newf(rpgerr.UnknownEntity, "no entity or hierarchy node %q", id)
}

// Explore walks the dependency structure from an entity.
func (e *Engine) Explore(id string, dir graph.Direction, depth int, kinds []graph.EdgeKind) (*search.Neighborhood, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	hood := search.Explore(e.g, id, dir, depth, kinds)
	if hood == nil {
		return nil, rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", id)
	}
	return hood, nil
}

// ImpactRadius groups the entities affected by a change to id by distance.
func (e *Engine) ImpactRadius(id string, dir graph.Direction) ([]search.ImpactRing, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	if e.g.Entity(id) == nil {
		return nil, rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", id)
	}
	if dir == "" {
		dir = graph.Upstream
	}
	return search.ImpactRadius(e.g, id, dir), nil
}

// FindPaths runs Yen's k-shortest loopless paths between two entities.
func (e *Engine) FindPaths(a, b string, k, maxHops int, kinds []graph.EdgeKind) ([]search.Path, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	for _, id := range []string{a, b} {
		if e.g.Entity(id) == nil {
			return nil, rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", id)
		}
	}
	if k <= 0 {
		k = 3
	}
	return search.FindPaths(e.g, a, b, k, maxHops, kinds), nil
}

// SliceBetween extracts the minimal connecting subgraph of two entities.
func (e *Engine) SliceBetween(a, b string) (*search.Slice, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	return search.SliceBetween(e.g, a, b)
}

// ContextPack searches and bundles neighbor context under a token budget.
func (e *Engine) ContextPack(ctx context.Context, query string, budget int) (*search.ContextPack, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	var semantic search.SemanticIndex
	if e.embedder != nil && e.embedder.Enabled() && e.cfg.Navigation.EmbeddingEnabled {
		semantic = e.embedder
	}
	opts := search.Options{
		Limit:          e.cfg.Navigation.SearchResultLimit,
		SemanticWeight: e.cfg.Navigation.SemanticWeight,
		LexicalWeight:  e.cfg.Navigation.LexicalWeight,
	}
	return search.BuildContextPack(ctx, e.g, query, budget, opts, semantic), nil
}

// PlanChange orders the entities relevant to a goal dependency-first.
func (e *Engine) PlanChange(ctx context.Context, goal string) (*search.ChangePlan, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}
	var semantic search.SemanticIndex
	if e.embedder != nil && e.embedder.Enabled() && e.cfg.Navigation.EmbeddingEnabled {
		semantic = e.embedder
	}
	opts := search.Options{
		Limit:          e.cfg.Navigation.SearchResultLimit,
		SemanticWeight: e.cfg.Navigation.SemanticWeight,
		LexicalWeight:  e.cfg.Navigation.LexicalWeight,
	}
	return search.PlanChange(ctx, e.g, goal, opts, semantic), nil
}

// SyncEmbeddings brings the vector index up to date with current features.
func (e *Engine) SyncEmbeddings(ctx context.Context) (int, error) {
	e.mu.RLock()
	g := e.g
	embedder := e.embedder
	e.mu.RUnlock()
	if g == nil {
		return 0, rpgerr.New(rpgerr.CorruptStore, "no graph built yet, run build_rpg first")
	}
	if embedder == nil {
		return 0, nil
	}
	return embedder.Sync(ctx, g)
}
