package search

import (
	"sort"

	"rpg/internal/graph"
)

// Neighborhood is the subgraph reachable from a root within a hop bound.
type Neighborhood struct {
	Root     string                 `json:"root"`
	Entities []string               `json:"entities"`
	Edges    []graph.DependencyEdge `json:"edges"`
	// Depth maps entity id to its hop distance from the root.
	Depth map[string]int `json:"depth"`
}

// Explore walks the dependency structure from an entity in the given
// direction up to depth hops, optionally restricted to an edge-kind list.
func Explore(g *graph.Graph, root string, dir graph.Direction, depth int, kinds []graph.EdgeKind) *Neighborhood {
	if g.Entity(root) == nil {
		return nil
	}
	if depth <= 0 {
		depth = 1
	}

	result := &Neighborhood{Root: root, Depth: map[string]int{root: 0}}
	seenEdges := make(map[graph.DependencyEdge]bool)
	frontier := []string{root}

	for hop := 1; hop <= depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, edge := range g.Neighbors(id, dir, kinds) {
				if !seenEdges[edge] {
					seenEdges[edge] = true
					result.Edges = append(result.Edges, edge)
				}
				other := edge.Target
				if other == id {
					other = edge.Source
				}
				if _, known := result.Depth[other]; !known {
					result.Depth[other] = hop
					next = append(next, other)
				}
			}
		}
		frontier = next
	}

	for id := range result.Depth {
		result.Entities = append(result.Entities, id)
	}
	sort.Strings(result.Entities)
	sort.Slice(result.Edges, func(i, j int) bool { return result.Edges[i].Less(result.Edges[j]) })
	return result
}

// ImpactRing groups entities by hop distance from the changed entity.
type ImpactRing struct {
	Distance int      `json:"distance"`
	Entities []string `json:"entities"`
}

// ImpactRadius computes which entities are affected by a change to the
// given entity: everything reachable within six hops through dependency
// edges in the chosen direction (upstream by default, i.e. dependents),
// grouped by distance. Entities further away are not reported.
func ImpactRadius(g *graph.Graph, id string, dir graph.Direction) []ImpactRing {
	const maxImpactDepth = 6
	hood := Explore(g, id, dir, maxImpactDepth, nil)
	if hood == nil {
		return nil
	}

	byDistance := make(map[int][]string)
	for entity, dist := range hood.Depth {
		if dist == 0 {
			continue
		}
		byDistance[dist] = append(byDistance[dist], entity)
	}

	distances := make([]int, 0, len(byDistance))
	for d := range byDistance {
		distances = append(distances, d)
	}
	sort.Ints(distances)

	rings := make([]ImpactRing, 0, len(distances))
	for _, d := range distances {
		entities := byDistance[d]
		sort.Strings(entities)
		rings = append(rings, ImpactRing{Distance: d, Entities: entities})
	}
	return rings
}
