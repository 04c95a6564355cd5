package search

import (
	"container/heap"
	"sort"

	"rpg/internal/graph"
)

// Path is one loopless route through the dependency graph.
type Path struct {
	Nodes []string         `json:"nodes"`
	Edges []graph.EdgeKind `json:"edges"`
}

// Len is the hop count.
func (p Path) Len() int { return len(p.Edges) }

func (p Path) equal(other Path) bool {
	if len(p.Nodes) != len(other.Nodes) {
		return false
	}
	for i := range p.Nodes {
		if p.Nodes[i] != other.Nodes[i] {
			return false
		}
	}
	return true
}

type adjacency map[string][]struct {
	target string
	kind   graph.EdgeKind
}

func buildAdjacency(g *graph.Graph, kinds []graph.EdgeKind) adjacency {
	allow := func(k graph.EdgeKind) bool {
		if len(kinds) == 0 {
			return k != graph.EdgeContains
		}
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
	adj := make(adjacency)
	for _, edge := range g.Edges {
		if !allow(edge.Kind) {
			continue
		}
		adj[edge.Source] = append(adj[edge.Source], struct {
			target string
			kind   graph.EdgeKind
		}{edge.Target, edge.Kind})
	}
	// Deterministic neighbor order.
	for _, neighbors := range adj {
		sort.Slice(neighbors, func(i, j int) bool {
			if neighbors[i].target != neighbors[j].target {
				return neighbors[i].target < neighbors[j].target
			}
			return neighbors[i].kind < neighbors[j].kind
		})
	}
	return adj
}

// FindPaths returns up to k loopless shortest paths from source to target
// using Yen's algorithm. maxHops of -1 means unbounded; kinds restricts the
// traversable edge kinds.
func FindPaths(g *graph.Graph, source, target string, k, maxHops int, kinds []graph.EdgeKind) []Path {
	if k <= 0 {
		return nil
	}
	if g.Entity(source) == nil || g.Entity(target) == nil {
		return nil
	}
	if source == target {
		return []Path{{Nodes: []string{source}}}
	}

	adj := buildAdjacency(g, kinds)

	shortest := bfsShortest(adj, source, target, maxHops, nil, nil)
	if shortest == nil {
		return nil
	}
	result := []Path{*shortest}
	candidates := &pathHeap{}
	heap.Init(candidates)

	for len(result) < k {
		prev := result[len(result)-1]
		for i := 0; i < len(prev.Nodes)-1; i++ {
			spur := prev.Nodes[i]
			rootNodes := prev.Nodes[:i+1]
			rootEdges := prev.Edges[:i]

			removedEdges := make(map[[2]string]bool)
			for _, p := range result {
				if len(p.Nodes) > i+1 && sameNodes(p.Nodes[:i+1], rootNodes) {
					removedEdges[[2]string{p.Nodes[i], p.Nodes[i+1]}] = true
				}
			}
			excluded := make(map[string]bool)
			for _, n := range rootNodes[:i] {
				excluded[n] = true
			}

			spurPath := bfsShortest(adj, spur, target, remainingHops(maxHops, len(rootEdges)), removedEdges, excluded)
			if spurPath == nil {
				continue
			}

			total := Path{
				Nodes: append(append([]string(nil), rootNodes...), spurPath.Nodes[1:]...),
				Edges: append(append([]graph.EdgeKind(nil), rootEdges...), spurPath.Edges...),
			}
			if maxHops >= 0 && total.Len() > maxHops {
				continue
			}
			dup := false
			for _, p := range result {
				if p.equal(total) {
					dup = true
					break
				}
			}
			if !dup {
				heap.Push(candidates, total)
			}
		}

		if candidates.Len() == 0 {
			break
		}
		next := heap.Pop(candidates).(Path)
		dup := false
		for _, p := range result {
			if p.equal(next) {
				dup = true
				break
			}
		}
		if !dup {
			result = append(result, next)
		}
	}

	return result
}

func remainingHops(maxHops, used int) int {
	if maxHops < 0 {
		return -1
	}
	left := maxHops - used
	if left < 0 {
		return 0
	}
	return left
}

func sameNodes(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// bfsShortest finds one shortest path by BFS, honoring excluded edges and
// nodes (Yen spur searches) and a hop bound (-1 unbounded).
func bfsShortest(adj adjacency, source, target string, maxHops int, excludedEdges map[[2]string]bool, excludedNodes map[string]bool) *Path {
	if source == target {
		return &Path{Nodes: []string{source}}
	}
	type state struct {
		node  string
		nodes []string
		edges []graph.EdgeKind
	}
	queue := []state{{node: source, nodes: []string{source}}}
	visited := map[string]bool{source: true}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if maxHops >= 0 && len(curr.edges) >= maxHops {
			continue
		}
		for _, n := range adj[curr.node] {
			if excludedEdges != nil && excludedEdges[[2]string{curr.node, n.target}] {
				continue
			}
			if excludedNodes != nil && excludedNodes[n.target] {
				continue
			}
			if visited[n.target] {
				continue
			}
			nodes := append(append([]string(nil), curr.nodes...), n.target)
			edges := append(append([]graph.EdgeKind(nil), curr.edges...), n.kind)
			if n.target == target {
				return &Path{Nodes: nodes, Edges: edges}
			}
			visited[n.target] = true
			queue = append(queue, state{node: n.target, nodes: nodes, edges: edges})
		}
	}
	return nil
}

// pathHeap orders candidate paths by length, then lexicographically.
type pathHeap []Path

func (h pathHeap) Len() int { return len(h) }
func (h pathHeap) Less(i, j int) bool {
	if h[i].Len() != h[j].Len() {
		return h[i].Len() < h[j].Len()
	}
	for n := 0; n < len(h[i].Nodes) && n < len(h[j].Nodes); n++ {
		if h[i].Nodes[n] != h[j].Nodes[n] {
			return h[i].Nodes[n] < h[j].Nodes[n]
		}
	}
	return false
}
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x interface{}) { *h = append(*h, x.(Path)) }
func (h *pathHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
