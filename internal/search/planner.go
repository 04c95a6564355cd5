package search

import (
	"context"
	"sort"

	"rpg/internal/graph"
)

// PlanStep is one entity in a change plan, in safe execution order.
type PlanStep struct {
	EntityID string   `json:"entityId"`
	File     string   `json:"file"`
	Area     string   `json:"area,omitempty"`
	Features []string `json:"features,omitempty"`
}

// ChangePlan orders the entities relevant to a goal so dependencies come
// before their dependents.
type ChangePlan struct {
	Goal  string     `json:"goal"`
	Steps []PlanStep `json:"steps"`
	// Cycles lists entities held back by dependency cycles (cycle members and
	// entities that depend on them); they are emitted in id order after the
	// acyclic prefix.
	Cycles []string `json:"cycles,omitempty"`
}

// PlanChange searches for the entities matching a goal, expands one hop of
// dependencies, and topologically orders the result. Cyclic remainders are
// appended deterministically so the plan always covers every selected
// entity.
func PlanChange(ctx context.Context, g *graph.Graph, goal string, opts Options, semantic SemanticIndex) *ChangePlan {
	opts.Query = goal
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	results := Search(ctx, g, opts, semantic, nil)

	selected := make(map[string]bool)
	for _, r := range results {
		selected[r.EntityID] = true
		for _, edge := range g.Neighbors(r.EntityID, graph.Downstream, nil) {
			selected[edge.Target] = true
		}
	}

	// Kahn's algorithm over the selected subgraph: an entity's dependencies
	// (downstream edges) must be handled before the entity itself.
	indegree := make(map[string]int)
	dependents := make(map[string][]string)
	for id := range selected {
		indegree[id] = 0
	}
	for id := range selected {
		for _, edge := range g.Neighbors(id, graph.Downstream, nil) {
			if !selected[edge.Target] || edge.Target == id {
				continue
			}
			indegree[id]++
			dependents[edge.Target] = append(dependents[edge.Target], id)
		}
	}

	var ready []string
	for id, deg := range indegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	plan := &ChangePlan{Goal: goal}
	emitted := make(map[string]bool)
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		emitted[id] = true
		plan.Steps = append(plan.Steps, makeStep(g, id))

		var unlocked []string
		for _, dep := range dependents[id] {
			indegree[dep]--
			if indegree[dep] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		sort.Strings(unlocked)
		ready = append(ready, unlocked...)
	}

	// Entities still held back sit on cycles or depend on an entity that does.
	var cyclic []string
	for id := range selected {
		if !emitted[id] {
			cyclic = append(cyclic, id)
		}
	}
	sort.Strings(cyclic)
	for _, id := range cyclic {
		plan.Steps = append(plan.Steps, makeStep(g, id))
	}
	plan.Cycles = cyclic
	return plan
}

func makeStep(g *graph.Graph, id string) PlanStep {
	e := g.Entity(id)
	step := PlanStep{EntityID: id}
	if e != nil {
		step.File = e.File
		step.Features = e.Features
		if segments := graph.SplitPath(e.HierarchyPath); len(segments) > 0 {
			step.Area = segments[0]
		}
	}
	return step
}
