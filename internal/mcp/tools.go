package mcp

// Tool describes one tool for tools/list.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func intProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": desc}
}

func mapProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "object", "description": desc}
}

func toolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "build_rpg",
			Description: "Parse the repository and build the Repository Planning Graph from scratch. Preserves features of entities whose source is unchanged.",
			InputSchema: objectSchema(map[string]interface{}{
				"scip_index": stringProp("Optional path to a SCIP index to ingest instead of parsing source"),
			}),
		},
		{
			Name:        "update_rpg",
			Description: "Reconcile the graph with the current working tree: deletions with pruning, rename rekeying, drift-aware modifications, and insertions queued for lifting.",
			InputSchema: objectSchema(map[string]interface{}{
				"since": stringProp("Base commit to diff against (defaults to the graph's base commit)"),
			}),
		},
		{
			Name:        "reload_rpg",
			Description: "Re-read the persisted graph and pending state from disk.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "rpg_info",
			Description: "Graph statistics: entity/edge counts, lifting coverage, pending routing size, staleness, embedding provider, search metrics.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "lifting_status",
			Description: "Lifting coverage: how many entities carry semantic features, plus the pending-routing queue size.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "get_entities_for_lifting",
			Description: "Fetch a batch of entities needing verb-object features. Trivial entities are auto-lifted; review candidates come with pre-filled features to confirm or replace.",
			InputSchema: objectSchema(map[string]interface{}{
				"scope":       stringProp("Optional hierarchy path prefix restricting the batch"),
				"batch_index": intProp("Zero-based batch index"),
			}),
		},
		{
			Name:        "submit_lift_results",
			Description: "Submit features per entity id. Valid keys apply atomically; invalid keys are reported and ignored. Drifted re-lifts are queued for routing.",
			InputSchema: objectSchema(map[string]interface{}{
				"results": mapProp("Map of entity id to array of verb-object feature strings"),
			}, "results"),
		},
		{
			Name:        "finalize_lifting",
			Description: "Drain the pending-routing queue without agent input: each entity goes to its Jaccard-nearest existing hierarchy path deterministically, or to its structural file-path placement when no candidate path exists.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "get_files_for_synthesis",
			Description: "Fetch fully-lifted files whose per-file feature bags await abstraction into 3-6 holistic features.",
			InputSchema: objectSchema(map[string]interface{}{
				"batch_index": intProp("Zero-based batch index"),
			}),
		},
		{
			Name:        "submit_file_syntheses",
			Description: "Store holistic per-file features on Module entities. Keys are file paths or module entity ids.",
			InputSchema: objectSchema(map[string]interface{}{
				"results": mapProp("Map of file path to array of holistic feature strings"),
			}, "results"),
		},
		{
			Name:        "build_semantic_hierarchy",
			Description: "Assemble the domain-discovery dialog: file clusters with per-cluster prompts, folding in declared area seeds.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "submit_hierarchy",
			Description: "Install the semantic hierarchy. Areas must be PascalCase; categories and subcategories lowercase three-to-five-word phrases; assignments must cite a discovered area.",
			InputSchema: objectSchema(map[string]interface{}{
				"areas":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "The discovered area set"},
				"assignments": mapProp("Map of file path or entity id to Area/category/subcategory (or keep)"),
			}, "areas", "assignments"),
		},
		{
			Name:        "get_routing_candidates",
			Description: "List pending entities with their top-three candidate hierarchy paths ranked by aggregate-feature overlap. Re-stamps entries to the current revision.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "submit_routing_decisions",
			Description: "Apply routing decisions: keep, or an existing three-segment path. Stale decisions (revision mismatch) are rejected and the entity stays pending.",
			InputSchema: objectSchema(map[string]interface{}{
				"decisions": mapProp("Map of entity id to decision"),
			}, "decisions"),
		},
		{
			Name:        "search_node",
			Description: "Intent search over semantic features with rank-blended semantic+lexical scoring, filters, and optional diff-aware boosting.",
			InputSchema: objectSchema(map[string]interface{}{
				"query":        stringProp("The intent query"),
				"mode":         stringProp("features (default) or snippets"),
				"scope":        stringProp("Hierarchy path prefix filter"),
				"file_pattern": stringProp("Glob over entity file paths"),
				"line_start":   intProp("Line range filter start"),
				"line_end":     intProp("Line range filter end"),
				"kinds":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Entity kind filter"},
				"limit":        intProp("Maximum results"),
				"since_commit": stringProp("Boost entities changed since this commit (3x/2x/1.5x by proximity)"),
			}, "query"),
		},
		{
			Name:        "fetch_node",
			Description: "Fetch one entity or hierarchy node with incident edges. fields=features drops source; fields=identity drops features too.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":     stringProp("Entity id or hierarchy path"),
				"fields": stringProp("full (default), features, or identity"),
			}, "id"),
		},
		{
			Name:        "explore_rpg",
			Description: "Walk the dependency structure from an entity: downstream, upstream, or both, up to a depth, optionally restricted to edge kinds.",
			InputSchema: objectSchema(map[string]interface{}{
				"id":         stringProp("Root entity id"),
				"direction":  stringProp("downstream (default), upstream, or both"),
				"depth":      intProp("Hop bound (default 1)"),
				"edge_kinds": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Edge kind allow-list"},
			}, "id"),
		},
		{
			Name:        "context_pack",
			Description: "Search, fetch neighbor context, and prune to a token budget. Eviction drops source before features, features before identity.",
			InputSchema: objectSchema(map[string]interface{}{
				"query":  stringProp("The intent query"),
				"budget": intProp("Token budget (default 4000)"),
			}, "query"),
		},
		{
			Name:        "impact_radius",
			Description: "Entities affected by a change to the given entity, grouped by hop distance (upstream dependents by default).",
			InputSchema: objectSchema(map[string]interface{}{
				"id":        stringProp("Entity id"),
				"direction": stringProp("upstream (default), downstream, or both"),
			}, "id"),
		},
		{
			Name:        "plan_change",
			Description: "Dependency-safe plan for a goal: matching entities plus one hop of dependencies in topological order, cycle-tolerant.",
			InputSchema: objectSchema(map[string]interface{}{
				"goal": stringProp("What the change should accomplish"),
			}, "goal"),
		},
		{
			Name:        "find_paths",
			Description: "K-shortest loopless paths between two entities (Yen's algorithm) with an optional hop bound and edge-kind allow-list.",
			InputSchema: objectSchema(map[string]interface{}{
				"a":          stringProp("Source entity id"),
				"b":          stringProp("Target entity id"),
				"k":          intProp("Number of paths (default 3)"),
				"max_hops":   intProp("Hop bound, -1 for unbounded"),
				"edge_kinds": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Edge kind allow-list"},
			}, "a", "b"),
		},
		{
			Name:        "slice_between",
			Description: "Minimal vertex and edge set connecting two entities; returned edges lie on at least one returned path.",
			InputSchema: objectSchema(map[string]interface{}{
				"a": stringProp("First entity id"),
				"b": stringProp("Second entity id"),
			}, "a", "b"),
		},
	}
}
