// Package engine is the core behind the protocol facade: it owns the graph,
// serializes all mutations through one exclusive section, and exposes the
// operation surface the tool transport and CLI call into.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"rpg/internal/config"
	"rpg/internal/embeddings"
	rpgerr "rpg/internal/errors"
	"rpg/internal/evolution"
	"rpg/internal/graph"
	"rpg/internal/parser"
	"rpg/internal/paths"
	"rpg/internal/slogutil"
	"rpg/internal/storage"
)

// Engine is the single-writer, multiple-reader core. Readers hold the read
// lock for the duration of their call and observe a consistent graph;
// writers are fully serialized and every public operation either completes
// or fails atomically.
type Engine struct {
	mu sync.RWMutex

	repoRoot string
	cfg      *config.Config
	logger   *slog.Logger

	g       *graph.Graph
	pending *graph.PendingQueue

	// signals carries per-entity control-flow counts from the last parse;
	// process-scoped, rebuilt on the next build or update.
	signals map[string]parser.ComplexitySignals
	// reliftNeeded tracks modified entities whose features predate their
	// current source, awaiting re-lift through the interactive protocol.
	reliftNeeded map[string]bool
	// discoveredAreas is the validated area set from the last hierarchy
	// submission; assignments must cite one of these.
	discoveredAreas map[string]bool

	parser   *parser.Parser
	probe    *evolution.GitProbe
	embedder *embeddings.Manager
	db       *storage.DB
}

// Open loads the engine state for a repository. A missing graph is fine
// (build_rpg creates it); corrupt embeddings are recovered automatically.
func Open(repoRoot string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	cfg, err := config.Load(repoRoot)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		repoRoot:        repoRoot,
		cfg:             cfg,
		logger:          logger,
		pending:         &graph.PendingQueue{},
		signals:         make(map[string]parser.ComplexitySignals),
		reliftNeeded:    make(map[string]bool),
		discoveredAreas: make(map[string]bool),
		parser:          parser.NewParser(),
		probe:           &evolution.GitProbe{RepoRoot: repoRoot},
	}

	if paths.Exists(repoRoot) {
		g, err := graph.Load(repoRoot)
		if err != nil {
			return nil, err
		}
		e.g = g
		for _, area := range g.Areas() {
			e.discoveredAreas[area] = true
		}
	}

	pending, err := graph.LoadPending(repoRoot)
	if err != nil {
		logger.Warn("pending_routing.json unreadable, starting empty", "error", err.Error())
		pending = &graph.PendingQueue{}
	}
	e.pending = pending

	if db, err := storage.Open(repoRoot, logger); err != nil {
		logger.Warn("rpg.db unavailable, FTS prefilter and metrics disabled", "error", err.Error())
	} else {
		e.db = db
	}

	return e, nil
}

// AttachEmbedder wires the embedding collaborator; nil is allowed and
// degrades search to lexical-only.
func (e *Engine) AttachEmbedder(m *embeddings.Manager) {
	e.mu.Lock()
	e.embedder = m
	e.mu.Unlock()
}

// Close flushes in-flight persistence and releases the database.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Graph returns the current graph for read-only use. Callers must not
// mutate it; mutations go through engine operations.
func (e *Engine) Graph() *graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.g
}

// Revision returns the current graph_revision, or 0 when no graph exists.
func (e *Engine) Revision() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.g == nil {
		return 0
	}
	return e.g.Revision
}

func (e *Engine) requireGraph() error {
	if e.g == nil {
		return rpgerr.New(rpgerr.CorruptStore, "no graph built yet, run build_rpg first")
	}
	return nil
}

// persistLocked writes the graph and pending queue; callers hold the write
// lock. A persistence failure aborts the operation and leaves the previous
// on-disk state intact.
func (e *Engine) persistLocked() error {
	if err := e.g.Save(e.repoRoot, e.cfg.Storage.Compress); err != nil {
		return err
	}
	e.pending.Revision = e.g.Revision
	if err := e.pending.Save(e.repoRoot); err != nil {
		e.logger.Error("failed to persist pending queue", "error", err.Error())
		return err
	}
	return nil
}

// Info summarizes the graph state for rpg_info.
type Info struct {
	Revision       int64                   `json:"revision"`
	BaseCommit     string                  `json:"baseCommit,omitempty"`
	Metadata       graph.Metadata          `json:"metadata"`
	LiftedPct      float64                 `json:"liftedPct"`
	PendingRouting int                     `json:"pendingRouting"`
	Stale          bool                    `json:"stale"`
	Embeddings     string                  `json:"embeddings"`
	SearchMetrics  *storage.MetricsSummary `json:"searchMetrics,omitempty"`
}

// Info reports graph statistics plus a staleness advisory when the graph
// lags the working tree's HEAD.
func (e *Engine) Info() (*Info, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.requireGraph(); err != nil {
		return nil, err
	}

	lifted, total := e.g.LiftingCoverage()
	pct := 0.0
	if total > 0 {
		pct = float64(lifted) / float64(total) * 100
	}

	info := &Info{
		Revision:       e.g.Revision,
		BaseCommit:     e.g.BaseCommit,
		Metadata:       e.g.Metadata,
		LiftedPct:      pct,
		PendingRouting: len(e.pending.Entries),
		Embeddings:     "none",
	}
	if e.embedder != nil {
		info.Embeddings = e.embedder.ProviderName()
	}
	if head := e.probe.Head(); head != "" && e.g.BaseCommit != "" && head != e.g.BaseCommit {
		info.Stale = true
	}
	if e.db != nil {
		s := e.db.Summary()
		info.SearchMetrics = &s
	}
	return info, nil
}

// Reload re-reads the persisted graph and pending queue from disk.
func (e *Engine) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := graph.Load(e.repoRoot)
	if err != nil {
		return err
	}
	pending, err := graph.LoadPending(e.repoRoot)
	if err != nil {
		return err
	}
	e.g = g
	e.pending = pending
	e.discoveredAreas = make(map[string]bool)
	for _, area := range g.Areas() {
		e.discoveredAreas[area] = true
	}
	e.logger.Info("graph reloaded", "revision", g.Revision, "entities", len(g.Entities))
	return nil
}

// StaleNotice returns the advisory string attached to responses when the
// graph lags HEAD, or "".
func (e *Engine) StaleNotice() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.g == nil || e.g.BaseCommit == "" {
		return ""
	}
	if head := e.probe.Head(); head != "" && head != e.g.BaseCommit {
		return fmt.Sprintf("[stale] graph built at %.12s, HEAD is %.12s; run update_rpg", e.g.BaseCommit, head)
	}
	return ""
}
