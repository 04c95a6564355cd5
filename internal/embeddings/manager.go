package embeddings

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"

	"rpg/internal/graph"
	"rpg/internal/identity"
	"rpg/internal/paths"
)

// Manager ties the provider, the binary index, and the fingerprint metadata
// together and serves the search engine's SemanticIndex surface.
type Manager struct {
	repoRoot string
	provider Provider
	logger   *slog.Logger

	mu    sync.RWMutex
	index *Index
	meta  Meta

	queryCache map[string][]float32
}

// NewManager loads the on-disk index. A corrupt index is deleted and
// rebuilt lazily; that is always recoverable state.
func NewManager(repoRoot string, provider Provider, dimension int, logger *slog.Logger) *Manager {
	idx, err := LoadIndex(repoRoot, dimension)
	if err != nil {
		if logger != nil {
			logger.Warn("embedding index corrupt, rebuilding", "error", err.Error())
		}
		_ = os.Remove(paths.EmbeddingsFile(repoRoot))
		_ = os.Remove(paths.EmbeddingsMetaFile(repoRoot))
		idx = NewIndex(dimension)
	}
	return &Manager{
		repoRoot:   repoRoot,
		provider:   provider,
		logger:     logger,
		index:      idx,
		meta:       LoadMeta(repoRoot),
		queryCache: make(map[string][]float32),
	}
}

// Enabled reports whether a provider is available.
func (m *Manager) Enabled() bool { return m.provider != nil }

// ProviderName names the active provider, or "none".
func (m *Manager) ProviderName() string {
	if m.provider == nil {
		return "none"
	}
	return m.provider.Name()
}

// Sync brings the index up to date with the graph: entities whose feature
// fingerprint changed are re-embedded (one vector per feature), vanished
// entities are dropped. Cancellation between batches leaves a valid index.
func (m *Manager) Sync(ctx context.Context, g *graph.Graph) (int, error) {
	if m.provider == nil {
		return 0, nil
	}

	type work struct {
		id          string
		fingerprint string
		features    []string
	}
	var pendingWork []work

	m.mu.RLock()
	for id, e := range g.Entities {
		if !e.Lifted() {
			continue
		}
		fp := identity.FeatureFingerprint(e.Features)
		if m.meta[id] != fp {
			pendingWork = append(pendingWork, work{id: id, fingerprint: fp, features: e.Features})
		}
	}
	var stale []string
	for id := range m.index.Vectors {
		if e := g.Entity(id); e == nil || !e.Lifted() {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	sort.Slice(pendingWork, func(i, j int) bool { return pendingWork[i].id < pendingWork[j].id })

	updated := 0
	for _, w := range pendingWork {
		select {
		case <-ctx.Done():
			return updated, ctx.Err()
		default:
		}
		vectors, err := m.provider.Embed(ctx, w.features)
		if err != nil {
			return updated, err
		}
		m.mu.Lock()
		m.index.Vectors[w.id] = vectors
		m.meta[w.id] = w.fingerprint
		m.mu.Unlock()
		updated++
	}

	m.mu.Lock()
	for _, id := range stale {
		delete(m.index.Vectors, id)
		delete(m.meta, id)
	}
	err := m.index.Save(m.repoRoot)
	if err == nil {
		err = SaveMeta(m.repoRoot, m.meta)
	}
	m.mu.Unlock()

	return updated, err
}

// Invalidate drops an entity's cached vectors after a feature mutation.
func (m *Manager) Invalidate(entityID string) {
	m.mu.Lock()
	delete(m.index.Vectors, entityID)
	delete(m.meta, entityID)
	m.mu.Unlock()
}

// QueryVector embeds a search query, caching per-process.
func (m *Manager) QueryVector(ctx context.Context, query string) ([]float32, error) {
	if m.provider == nil {
		return nil, ErrNoProvider
	}
	m.mu.RLock()
	cached, ok := m.queryCache[query]
	m.mu.RUnlock()
	if ok {
		return cached, nil
	}
	vectors, err := m.provider.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return nil, err
	}
	m.mu.Lock()
	m.queryCache[query] = vectors[0]
	m.mu.Unlock()
	return vectors[0], nil
}

// FeatureVectors returns the per-feature vectors for an entity, or nil.
func (m *Manager) FeatureVectors(entityID string) [][]float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Vectors[entityID]
}
