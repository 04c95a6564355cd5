package mcp

import (
	"context"
	"encoding/json"

	"rpg/internal/graph"
	"rpg/internal/lifting"
	"rpg/internal/search"
)

func (s *Server) registerTools() {
	s.tools["build_rpg"] = s.toolBuildRPG
	s.tools["update_rpg"] = s.toolUpdateRPG
	s.tools["reload_rpg"] = s.toolReloadRPG
	s.tools["rpg_info"] = s.toolInfo
	s.tools["lifting_status"] = s.toolLiftingStatus
	s.tools["get_entities_for_lifting"] = s.toolGetEntitiesForLifting
	s.tools["submit_lift_results"] = s.toolSubmitLiftResults
	s.tools["finalize_lifting"] = s.toolFinalizeLifting
	s.tools["get_files_for_synthesis"] = s.toolGetFilesForSynthesis
	s.tools["submit_file_syntheses"] = s.toolSubmitFileSyntheses
	s.tools["build_semantic_hierarchy"] = s.toolBuildSemanticHierarchy
	s.tools["submit_hierarchy"] = s.toolSubmitHierarchy
	s.tools["get_routing_candidates"] = s.toolGetRoutingCandidates
	s.tools["submit_routing_decisions"] = s.toolSubmitRoutingDecisions
	s.tools["search_node"] = s.toolSearchNode
	s.tools["fetch_node"] = s.toolFetchNode
	s.tools["explore_rpg"] = s.toolExploreRPG
	s.tools["context_pack"] = s.toolContextPack
	s.tools["impact_radius"] = s.toolImpactRadius
	s.tools["plan_change"] = s.toolPlanChange
	s.tools["find_paths"] = s.toolFindPaths
	s.tools["slice_between"] = s.toolSliceBetween
}

func stringArg(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

func intArg(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// featureMapArg decodes a map of id -> []string tool argument.
func featureMapArg(params map[string]interface{}, key string) map[string][]string {
	raw, _ := params[key].(map[string]interface{})
	out := make(map[string][]string, len(raw))
	for id, value := range raw {
		list, ok := value.([]interface{})
		if !ok {
			continue
		}
		features := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				features = append(features, s)
			}
		}
		out[id] = features
	}
	return out
}

func stringMapArg(params map[string]interface{}, key string) map[string]string {
	raw, _ := params[key].(map[string]interface{})
	out := make(map[string]string, len(raw))
	for k, value := range raw {
		if s, ok := value.(string); ok {
			out[k] = s
		}
	}
	return out
}

func stringListArg(params map[string]interface{}, key string) []string {
	raw, _ := params[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func edgeKindsArg(params map[string]interface{}, key string) []graph.EdgeKind {
	var kinds []graph.EdgeKind
	for _, s := range stringListArg(params, key) {
		kinds = append(kinds, graph.EdgeKind(s))
	}
	return kinds
}

func directionArg(params map[string]interface{}, key string, fallback graph.Direction) graph.Direction {
	switch stringArg(params, key) {
	case "downstream":
		return graph.Downstream
	case "upstream":
		return graph.Upstream
	case "both":
		return graph.Both
	default:
		return fallback
	}
}

func (s *Server) toolBuildRPG(params map[string]interface{}) (interface{}, error) {
	if indexPath := stringArg(params, "scip_index"); indexPath != "" {
		return s.engine.BuildFromSCIP(indexPath)
	}
	return s.engine.Build(context.Background())
}

func (s *Server) toolUpdateRPG(params map[string]interface{}) (interface{}, error) {
	return s.engine.Update(context.Background(), stringArg(params, "since"))
}

func (s *Server) toolReloadRPG(map[string]interface{}) (interface{}, error) {
	if err := s.engine.Reload(); err != nil {
		return nil, err
	}
	return map[string]interface{}{"reloaded": true, "revision": s.engine.Revision()}, nil
}

func (s *Server) toolInfo(map[string]interface{}) (interface{}, error) {
	info, err := s.engine.Info()
	if err != nil {
		return nil, err
	}
	return formatInfo(info), nil
}

func (s *Server) toolLiftingStatus(map[string]interface{}) (interface{}, error) {
	return s.engine.LiftingStatus()
}

func (s *Server) toolGetEntitiesForLifting(params map[string]interface{}) (interface{}, error) {
	batch, total, err := s.engine.GetEntitiesForLifting(
		stringArg(params, "scope"), intArg(params, "batch_index", 0))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"batch": batch, "totalBatches": total}, nil
}

func (s *Server) toolSubmitLiftResults(params map[string]interface{}) (interface{}, error) {
	outcome, err := s.engine.SubmitLiftResults(featureMapArg(params, "results"))
	if err != nil {
		return nil, err
	}
	// Quality critique is appended as text so the agent can self-correct on
	// the next submission; the features are applied regardless.
	summary := struct {
		Applied   []string                       `json:"applied"`
		Unmatched []string                       `json:"unmatched,omitempty"`
		Queued    map[string]graph.PendingReason `json:"queued,omitempty"`
	}{outcome.Applied, outcome.Unmatched, outcome.Queued}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, err
	}
	return string(data) + lifting.FormatWarnings(outcome.Warnings), nil
}

func (s *Server) toolFinalizeLifting(map[string]interface{}) (interface{}, error) {
	drained, err := s.engine.FinalizeLifting()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"drained": drained}, nil
}

func (s *Server) toolGetFilesForSynthesis(params map[string]interface{}) (interface{}, error) {
	return s.engine.GetFilesForSynthesis(intArg(params, "batch_index", 0))
}

func (s *Server) toolSubmitFileSyntheses(params map[string]interface{}) (interface{}, error) {
	return s.engine.SubmitFileSyntheses(featureMapArg(params, "results"))
}

func (s *Server) toolBuildSemanticHierarchy(map[string]interface{}) (interface{}, error) {
	return s.engine.BuildSemanticHierarchy()
}

func (s *Server) toolSubmitHierarchy(params map[string]interface{}) (interface{}, error) {
	return s.engine.SubmitHierarchy(
		stringListArg(params, "areas"), stringMapArg(params, "assignments"))
}

func (s *Server) toolGetRoutingCandidates(map[string]interface{}) (interface{}, error) {
	items, err := s.engine.GetRoutingCandidates()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"pending": items, "revision": s.engine.Revision()}, nil
}

func (s *Server) toolSubmitRoutingDecisions(params map[string]interface{}) (interface{}, error) {
	return s.engine.SubmitRoutingDecisions(stringMapArg(params, "decisions"))
}

func (s *Server) toolSearchNode(params map[string]interface{}) (interface{}, error) {
	var kinds []graph.EntityKind
	for _, k := range stringListArg(params, "kinds") {
		kinds = append(kinds, graph.EntityKind(k))
	}
	opts := search.Options{
		Query:       stringArg(params, "query"),
		Mode:        search.Mode(stringArg(params, "mode")),
		Limit:       intArg(params, "limit", 0),
		SinceCommit: stringArg(params, "since_commit"),
		Filters: search.Filters{
			Scope:       stringArg(params, "scope"),
			FilePattern: stringArg(params, "file_pattern"),
			LineStart:   intArg(params, "line_start", 0),
			LineEnd:     intArg(params, "line_end", 0),
			Kinds:       kinds,
		},
	}
	results, err := s.engine.SearchNode(context.Background(), opts)
	if err != nil {
		return nil, err
	}
	return formatSearchResults(results), nil
}

func (s *Server) toolFetchNode(params map[string]interface{}) (interface{}, error) {
	detail, err := s.engine.FetchNode(stringArg(params, "id"), stringArg(params, "fields"))
	if err != nil {
		return nil, err
	}
	return formatNodeDetail(detail), nil
}

func (s *Server) toolExploreRPG(params map[string]interface{}) (interface{}, error) {
	return s.engine.Explore(
		stringArg(params, "id"),
		directionArg(params, "direction", graph.Downstream),
		intArg(params, "depth", 1),
		edgeKindsArg(params, "edge_kinds"))
}

func (s *Server) toolContextPack(params map[string]interface{}) (interface{}, error) {
	pack, err := s.engine.ContextPack(context.Background(),
		stringArg(params, "query"), intArg(params, "budget", 0))
	if err != nil {
		return nil, err
	}
	return formatContextPack(pack), nil
}

func (s *Server) toolImpactRadius(params map[string]interface{}) (interface{}, error) {
	id := stringArg(params, "id")
	rings, err := s.engine.ImpactRadius(id, directionArg(params, "direction", graph.Upstream))
	if err != nil {
		return nil, err
	}
	return formatImpactRings(id, rings), nil
}

func (s *Server) toolPlanChange(params map[string]interface{}) (interface{}, error) {
	return s.engine.PlanChange(context.Background(), stringArg(params, "goal"))
}

func (s *Server) toolFindPaths(params map[string]interface{}) (interface{}, error) {
	paths, err := s.engine.FindPaths(
		stringArg(params, "a"), stringArg(params, "b"),
		intArg(params, "k", 3), intArg(params, "max_hops", -1),
		edgeKindsArg(params, "edge_kinds"))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"paths": paths}, nil
}

func (s *Server) toolSliceBetween(params map[string]interface{}) (interface{}, error) {
	return s.engine.SliceBetween(stringArg(params, "a"), stringArg(params, "b"))
}
