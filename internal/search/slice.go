package search

import (
	"sort"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
)

// Slice is the minimal connecting subgraph between two entities.
type Slice struct {
	Entities []string               `json:"entities"`
	Edges    []graph.DependencyEdge `json:"edges"`
}

// sliceMaxPaths bounds how many alternative routes feed the slice union.
const sliceMaxPaths = 3

// SliceBetween extracts the minimal vertex and edge set connecting a and b:
// the union of the shortest directed paths in either orientation (a Steiner
// approximation for two terminals). Returned edges are exactly those lying
// on at least one returned path.
func SliceBetween(g *graph.Graph, a, b string) (*Slice, error) {
	if g.Entity(a) == nil {
		return nil, rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", a)
	}
	if g.Entity(b) == nil {
		return nil, rpgerr.Newf(rpgerr.UnknownEntity, "entity %q not found", b)
	}

	nodes := map[string]bool{a: true, b: true}
	edgeSet := make(map[graph.DependencyEdge]bool)

	addPaths := func(paths []Path) {
		for _, p := range paths {
			for _, n := range p.Nodes {
				nodes[n] = true
			}
			for i := 0; i < len(p.Edges); i++ {
				edgeSet[graph.DependencyEdge{
					Source: p.Nodes[i],
					Target: p.Nodes[i+1],
					Kind:   p.Edges[i],
				}] = true
			}
		}
	}

	addPaths(FindPaths(g, a, b, sliceMaxPaths, -1, nil))
	addPaths(FindPaths(g, b, a, sliceMaxPaths, -1, nil))

	slice := &Slice{}
	for n := range nodes {
		slice.Entities = append(slice.Entities, n)
	}
	sort.Strings(slice.Entities)
	for e := range edgeSet {
		slice.Edges = append(slice.Edges, e)
	}
	sort.Slice(slice.Edges, func(i, j int) bool { return slice.Edges[i].Less(slice.Edges[j]) })
	return slice, nil
}
