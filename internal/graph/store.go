package graph

import (
	"sort"
	"time"

	rpgerr "rpg/internal/errors"
)

// Graph is the in-memory RPG store. It is not safe for concurrent mutation;
// the engine serializes all writers through one exclusive section and hands
// readers an immutable snapshot.
type Graph struct {
	Schema     int    `json:"schema"`
	CreatedAt  string `json:"createdAt"`
	Revision   int64  `json:"revision"`
	BaseCommit string `json:"baseCommit,omitempty"`

	Metadata  Metadata                  `json:"metadata"`
	Entities  map[string]*Entity        `json:"entities"`
	Hierarchy map[string]*HierarchyNode `json:"hierarchy"`
	Edges     []DependencyEdge          `json:"edges"`

	// Rebuilt indices, never serialized.
	fileIndex map[string][]string
	outEdges  map[string][]int
	inEdges   map[string][]int
}

// New creates an empty graph for the given primary language.
func New(language string) *Graph {
	g := &Graph{
		Schema:    SchemaVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Metadata:  Metadata{Language: language},
		Entities:  make(map[string]*Entity),
		Hierarchy: make(map[string]*HierarchyNode),
	}
	g.RebuildIndexes()
	g.Touch()
	return g
}

// Touch bumps graph_revision. The revision is a nanosecond epoch forced to
// strictly increase even when the clock does not advance between mutations.
func (g *Graph) Touch() {
	now := time.Now().UnixNano()
	if now <= g.Revision {
		now = g.Revision + 1
	}
	g.Revision = now
}

// RebuildIndexes recomputes the adjacency and per-file indices from scratch.
// Mutating operations call this before returning so readers never observe
// half-updated indices.
func (g *Graph) RebuildIndexes() {
	g.fileIndex = make(map[string][]string)
	g.outEdges = make(map[string][]int)
	g.inEdges = make(map[string][]int)

	for id, e := range g.Entities {
		g.fileIndex[e.File] = append(g.fileIndex[e.File], id)
	}
	for _, ids := range g.fileIndex {
		sort.Strings(ids)
	}
	for i, edge := range g.Edges {
		g.outEdges[edge.Source] = append(g.outEdges[edge.Source], i)
		g.inEdges[edge.Target] = append(g.inEdges[edge.Target], i)
	}
}

// Entity returns the entity with the given id, or nil.
func (g *Graph) Entity(id string) *Entity {
	return g.Entities[id]
}

// Node returns the hierarchy node at the given path, or nil.
func (g *Graph) Node(path string) *HierarchyNode {
	return g.Hierarchy[path]
}

// EntitiesInFile returns the sorted entity ids defined in a file.
func (g *Graph) EntitiesInFile(file string) []string {
	return append([]string(nil), g.fileIndex[file]...)
}

// Files returns the sorted list of files with at least one entity.
func (g *Graph) Files() []string {
	files := make([]string, 0, len(g.fileIndex))
	for f := range g.fileIndex {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// NodePaths returns all hierarchy node paths, sorted.
func (g *Graph) NodePaths() []string {
	out := make([]string, 0, len(g.Hierarchy))
	for p := range g.Hierarchy {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Areas returns the sorted top-level area paths.
func (g *Graph) Areas() []string {
	var out []string
	for p := range g.Hierarchy {
		if ParentPath(p) == "" {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// UpsertEntity inserts or merges an entity. An existing entity keeps its
// features, provenance, and hierarchy path unless the incoming entity
// explicitly carries features; structural fields are always refreshed.
func (g *Graph) UpsertEntity(e *Entity) {
	e.Features = NormalizeFeatures(e.Features)
	if prev, ok := g.Entities[e.ID]; ok {
		if len(e.Features) == 0 {
			e.Features = prev.Features
			e.Provenance = prev.Provenance
			e.Fingerprint = prev.Fingerprint
		}
		if e.HierarchyPath == "" {
			e.HierarchyPath = prev.HierarchyPath
		}
	}
	g.Entities[e.ID] = e
	g.RebuildIndexes()
	g.Touch()
}

// RemoveEntity removes a leaf, all edges touching it, its Contains edge, and
// prunes any hierarchy node on its former ancestor chain that became empty.
func (g *Graph) RemoveEntity(id string) error {
	e, ok := g.Entities[id]
	if !ok {
		return rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", id)
	}
	formerPath := e.HierarchyPath
	delete(g.Entities, id)

	kept := g.Edges[:0]
	for _, edge := range g.Edges {
		if edge.Source == id || edge.Target == id {
			continue
		}
		kept = append(kept, edge)
	}
	g.Edges = kept

	if formerPath != "" {
		g.removeMembership(formerPath, id)
		g.pruneChain(formerPath)
	}
	g.RebuildIndexes()
	g.Touch()
	return nil
}

// AddEdge adds a dependency edge, deduplicating by (source, target, kind).
// Both endpoints must exist; Contains edges must run from a leaf to a
// hierarchy node, all other kinds between two leaves.
func (g *Graph) AddEdge(source, target string, kind EdgeKind) error {
	if _, ok := g.Entities[source]; !ok {
		return rpgerr.Newf(rpgerr.UnknownEntity, "edge source %q not found", source)
	}
	if kind == EdgeContains {
		if _, ok := g.Hierarchy[target]; !ok {
			return rpgerr.Newf(rpgerr.UnknownPath, "edge target %q is not a hierarchy node", target)
		}
	} else if _, ok := g.Entities[target]; !ok {
		return rpgerr.Newf(rpgerr.UnknownEntity, "edge target %q not found", target)
	}

	candidate := DependencyEdge{Source: source, Target: target, Kind: kind}
	for _, idx := range g.outEdges[source] {
		if g.Edges[idx] == candidate {
			return nil
		}
	}
	g.Edges = append(g.Edges, candidate)
	g.RebuildIndexes()
	g.Touch()
	return nil
}

// RemoveEdge removes an edge if present; removing an absent edge is a no-op.
func (g *Graph) RemoveEdge(source, target string, kind EdgeKind) {
	candidate := DependencyEdge{Source: source, Target: target, Kind: kind}
	for i, edge := range g.Edges {
		if edge == candidate {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			g.RebuildIndexes()
			g.Touch()
			return
		}
	}
}

// ensureNode creates the node at path and any missing ancestors, wiring
// parent child-sets. Paths deeper than three segments are rejected upstream.
func (g *Graph) ensureNode(path string) *HierarchyNode {
	if n, ok := g.Hierarchy[path]; ok {
		return n
	}
	n := &HierarchyNode{Path: path, Name: PathName(path)}
	g.Hierarchy[path] = n

	if parent := ParentPath(path); parent != "" {
		p := g.ensureNode(parent)
		p.Children = insertSorted(p.Children, path)
	}
	return n
}

// AttachEntity places a leaf under the hierarchy node at path, creating the
// node chain as needed, maintaining the Contains edge and membership lists.
func (g *Graph) AttachEntity(id, path string) error {
	e, ok := g.Entities[id]
	if !ok {
		return rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", id)
	}
	if path == "" {
		return rpgerr.New(rpgerr.InvalidHierarchyPath, "empty hierarchy path")
	}

	if e.HierarchyPath == path {
		return nil
	}
	if e.HierarchyPath != "" {
		g.removeMembership(e.HierarchyPath, id)
		g.removeContainsEdges(id)
		g.pruneChain(e.HierarchyPath)
	}

	node := g.ensureNode(path)
	node.Entities = insertSorted(node.Entities, id)
	e.HierarchyPath = path
	g.Edges = append(g.Edges, DependencyEdge{Source: id, Target: path, Kind: EdgeContains})
	g.RebuildIndexes()
	g.Touch()
	return nil
}

// DetachEntity removes a leaf from its hierarchy node without deleting the
// leaf itself, pruning any node chain that became empty.
func (g *Graph) DetachEntity(id string) error {
	e, ok := g.Entities[id]
	if !ok {
		return rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", id)
	}
	if e.HierarchyPath == "" {
		return nil
	}
	former := e.HierarchyPath
	e.HierarchyPath = ""
	g.removeMembership(former, id)
	g.removeContainsEdges(id)
	g.pruneChain(former)
	g.RebuildIndexes()
	g.Touch()
	return nil
}

func (g *Graph) removeMembership(path, id string) {
	if n, ok := g.Hierarchy[path]; ok {
		n.Entities = removeSorted(n.Entities, id)
	}
}

func (g *Graph) removeContainsEdges(id string) {
	kept := g.Edges[:0]
	for _, edge := range g.Edges {
		if edge.Kind == EdgeContains && edge.Source == id {
			continue
		}
		kept = append(kept, edge)
	}
	g.Edges = kept
}

// pruneChain removes the node at path and its ancestors while they hold no
// entities and no children. Enforces the no-empty-interior-nodes invariant.
func (g *Graph) pruneChain(path string) {
	for path != "" {
		n, ok := g.Hierarchy[path]
		if !ok {
			return
		}
		if len(n.Entities) > 0 || len(n.Children) > 0 {
			return
		}
		delete(g.Hierarchy, path)
		parent := ParentPath(path)
		if parent != "" {
			if p, ok := g.Hierarchy[parent]; ok {
				p.Children = removeSorted(p.Children, path)
			}
		}
		path = parent
	}
}

// PruneEmpty removes every hierarchy node without a transitively reachable
// leaf. Used after bulk operations that bypass per-entity bookkeeping.
func (g *Graph) PruneEmpty() int {
	removed := 0
	for {
		var empty []string
		for path, n := range g.Hierarchy {
			if len(n.Entities) == 0 && len(n.Children) == 0 {
				empty = append(empty, path)
			}
		}
		if len(empty) == 0 {
			return removed
		}
		sort.Strings(empty)
		for _, path := range empty {
			delete(g.Hierarchy, path)
			if parent := ParentPath(path); parent != "" {
				if p, ok := g.Hierarchy[parent]; ok {
					p.Children = removeSorted(p.Children, path)
				}
			}
			removed++
		}
	}
}

// EntitiesUnder returns all leaf ids transitively under the node at path,
// sorted. Returns nil if the node does not exist.
func (g *Graph) EntitiesUnder(path string) []string {
	n, ok := g.Hierarchy[path]
	if !ok {
		return nil
	}
	var out []string
	var walk func(*HierarchyNode)
	walk = func(node *HierarchyNode) {
		out = append(out, node.Entities...)
		for _, child := range node.Children {
			if c, ok := g.Hierarchy[child]; ok {
				walk(c)
			}
		}
	}
	walk(n)
	sort.Strings(out)
	return out
}

// AggregateFeatures recomputes every hierarchy node's feature set as the
// dedup-sorted union of its descendant leaves' features, bottom-up.
func (g *Graph) AggregateFeatures() {
	paths := g.NodePaths()
	// Deepest first so children are aggregated before parents.
	sort.Slice(paths, func(i, j int) bool {
		di, dj := len(SplitPath(paths[i])), len(SplitPath(paths[j]))
		if di != dj {
			return di > dj
		}
		return paths[i] < paths[j]
	})
	for _, path := range paths {
		n := g.Hierarchy[path]
		var all []string
		for _, id := range n.Entities {
			if e, ok := g.Entities[id]; ok {
				all = append(all, e.Features...)
			}
		}
		for _, child := range n.Children {
			if c, ok := g.Hierarchy[child]; ok {
				all = append(all, c.Features...)
			}
		}
		n.Features = NormalizeFeatures(all)
	}
}

// MaterializeContainment rebuilds all Contains edges from hierarchy
// membership, replacing whatever Contains edges were present.
func (g *Graph) MaterializeContainment() {
	kept := g.Edges[:0]
	for _, edge := range g.Edges {
		if edge.Kind == EdgeContains {
			continue
		}
		kept = append(kept, edge)
	}
	g.Edges = kept

	for _, path := range g.NodePaths() {
		n := g.Hierarchy[path]
		for _, id := range n.Entities {
			g.Edges = append(g.Edges, DependencyEdge{Source: id, Target: path, Kind: EdgeContains})
		}
	}
	g.RebuildIndexes()
	g.Touch()
}

// Direction selects edge traversal orientation.
type Direction string

const (
	Downstream Direction = "downstream"
	Upstream   Direction = "upstream"
	Both       Direction = "both"
)

// Neighbors returns the edges incident to id in the given direction,
// optionally restricted to an edge-kind allow-list.
func (g *Graph) Neighbors(id string, dir Direction, kinds []EdgeKind) []DependencyEdge {
	allow := func(k EdgeKind) bool {
		if len(kinds) == 0 {
			return k != EdgeContains
		}
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}

	var out []DependencyEdge
	if dir == Downstream || dir == Both {
		for _, idx := range g.outEdges[id] {
			if allow(g.Edges[idx].Kind) {
				out = append(out, g.Edges[idx])
			}
		}
	}
	if dir == Upstream || dir == Both {
		for _, idx := range g.inEdges[id] {
			if allow(g.Edges[idx].Kind) {
				out = append(out, g.Edges[idx])
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// RefreshMetadata recomputes the aggregate counters.
func (g *Graph) RefreshMetadata() {
	g.Metadata.TotalEntities = len(g.Entities)
	g.Metadata.TotalFiles = len(g.fileIndex)
	depEdges, contEdges := 0, 0
	for _, e := range g.Edges {
		if e.Kind == EdgeContains {
			contEdges++
		} else {
			depEdges++
		}
	}
	g.Metadata.TotalEdges = len(g.Edges)
	g.Metadata.DependencyEdges = depEdges
	g.Metadata.ContainmentEdges = contEdges
	areas := 0
	for p := range g.Hierarchy {
		if ParentPath(p) == "" {
			areas++
		}
	}
	g.Metadata.FunctionalAreas = areas
	lifted := 0
	for _, e := range g.Entities {
		if e.Kind != KindModule && e.Lifted() {
			lifted++
		}
	}
	g.Metadata.LiftedEntities = lifted
}

// LiftingCoverage returns (lifted, total) counts over non-module entities.
func (g *Graph) LiftingCoverage() (int, int) {
	lifted, total := 0, 0
	for _, e := range g.Entities {
		if e.Kind == KindModule {
			continue
		}
		total++
		if e.Lifted() {
			lifted++
		}
	}
	return lifted, total
}

// UnliftedIDs returns the sorted ids of non-module entities without features.
func (g *Graph) UnliftedIDs() []string {
	var out []string
	for id, e := range g.Entities {
		if e.Kind != KindModule && !e.Lifted() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// CheckInvariants verifies the global invariants and returns the violations
// found. An empty slice means the graph is structurally sound.
func (g *Graph) CheckInvariants() []string {
	var problems []string
	for _, edge := range g.Edges {
		if _, ok := g.Entities[edge.Source]; !ok {
			problems = append(problems, "dangling edge source: "+edge.Source)
		}
		if edge.Kind == EdgeContains {
			if _, ok := g.Hierarchy[edge.Target]; !ok {
				problems = append(problems, "contains edge to missing node: "+edge.Target)
			}
		} else if _, ok := g.Entities[edge.Target]; !ok {
			problems = append(problems, "dangling edge target: "+edge.Target)
		}
	}
	for path, n := range g.Hierarchy {
		if len(g.EntitiesUnder(path)) == 0 {
			problems = append(problems, "empty hierarchy node: "+path)
		}
		for _, id := range n.Entities {
			if e, ok := g.Entities[id]; !ok {
				problems = append(problems, "node "+path+" references missing entity "+id)
			} else if e.HierarchyPath != path {
				problems = append(problems, "entity "+id+" path mismatch: "+e.HierarchyPath+" vs "+path)
			}
		}
	}
	return problems
}

func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	if i < len(list) && list[i] == s {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func removeSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	if i < len(list) && list[i] == s {
		return append(list[:i], list[i+1:]...)
	}
	return list
}
