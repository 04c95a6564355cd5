package mcp

// sessionInstructions is surfaced to the connected agent on initialize.
const sessionInstructions = `This server maintains a Repository Planning Graph (RPG): a dual-view
semantic index of the repository. Leaves are code entities carrying
verb-object features; abstract nodes form an Area/category/subcategory
hierarchy anchored to directories.

Typical workflow:
1. build_rpg, then loop get_entities_for_lifting / submit_lift_results
   until lifting_status reports full coverage. Features are short
   verb-object phrases (at most eight words, lowercase).
2. get_files_for_synthesis / submit_file_syntheses to abstract each file's
   feature bag into 3-6 holistic features.
3. build_semantic_hierarchy, then submit_hierarchy with PascalCase areas
   and lowercase three-to-five-word category/subcategory phrases.
4. After source changes: update_rpg, re-lift what it reports, then answer
   get_routing_candidates with keep or an existing three-segment path.
   finalize_lifting drains anything left deterministically.

Query with search_node / context_pack / explore_rpg / impact_radius /
find_paths / slice_between / plan_change. Responses may carry a [stale]
notice when the graph lags HEAD; run update_rpg when you see one.

Routing decisions are revision-guarded: if submit_routing_decisions
reports STALE_REVISION, re-fetch get_routing_candidates and decide again.`
