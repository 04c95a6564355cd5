package mcp

// TOON (Token-Oriented Object Notation) rendering for tool output:
// indentation-based objects, tabular arrays, canonical numbers, minimal
// quoting. Cuts the token cost of repeated tool calls compared to indented
// JSON. Format: https://github.com/toon-format/toon

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"rpg/internal/engine"
	"rpg/internal/graph"
	"rpg/internal/search"
)

// toonEscape quotes a scalar only when it needs it.
func toonEscape(s string) string {
	if s == "" {
		return `""`
	}
	needsQuote := strings.HasPrefix(s, " ") ||
		strings.HasSuffix(s, " ") ||
		strings.ContainsAny(s, ":|,\\\"\n\r\t") ||
		s == "true" || s == "false" || s == "null"
	if !needsQuote {
		return s
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, ch := range s {
		switch ch {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// toonCell escapes a value inside a delimited tabular row; a value carrying
// the active delimiter is always quoted.
func toonCell(s string, delimiter rune) string {
	if strings.ContainsRune(s, delimiter) {
		replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
		return `"` + replacer.Replace(s) + `"`
	}
	return toonEscape(s)
}

// toonScore renders a float in canonical TOON decimal: no trailing zeros,
// NaN and infinities become null, -0 becomes 0.
func toonScore(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "null"
	}
	if v == 0 {
		return "0"
	}
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// toonList renders `key[N]:` with indented items.
func toonList(indent int, key string, items []string) string {
	prefix := strings.Repeat("  ", indent)
	if len(items) == 0 {
		return fmt.Sprintf("%s%s[0]:", prefix, key)
	}
	childPrefix := strings.Repeat("  ", indent+1)
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s[%d]:", prefix, key, len(items))
	for _, item := range items {
		b.WriteByte('\n')
		b.WriteString(childPrefix)
		b.WriteString(toonEscape(item))
	}
	return b.String()
}

// formatSearchResults renders hits as a TOON tabular array with an
// auto-selected delimiter.
func formatSearchResults(results []search.Result) string {
	const fields = "{name,file,line,score,lifted,features}"
	if len(results) == 0 {
		return "results[0]" + fields + ":"
	}

	delim := '|'
	for _, r := range results {
		if strings.ContainsRune(r.Name, '|') || strings.ContainsRune(r.File, '|') ||
			strings.ContainsRune(strings.Join(r.MatchedFeatures, ""), '|') {
			delim = ','
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "results[%d%c]%s:\n", len(results), delim, fields)

	liftedCount := 0
	for _, r := range results {
		if r.Lifted {
			liftedCount++
		}
		lifted := "no"
		if r.Lifted {
			lifted = "yes"
		}
		name := r.Name
		if r.Changed {
			name += "*"
		}
		fmt.Fprintf(&b, "  %s%c%s%c%d%c%s%c%s%c%s\n",
			toonCell(name, delim), delim,
			toonCell(r.File, delim), delim,
			r.StartLine, delim,
			toonScore(r.Score), delim,
			lifted, delim,
			toonCell(strings.Join(r.MatchedFeatures, ", "), delim))
	}
	if liftedCount < len(results) {
		fmt.Fprintf(&b, "  (%d/%d lifted. Use get_entities_for_lifting to add semantic features.)\n",
			liftedCount, len(results))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatNodeDetail renders a fetch_node payload as a TOON indented object.
func formatNodeDetail(detail *engine.NodeDetail) string {
	if detail.Node != nil {
		return formatHierarchyNode(detail.Node)
	}
	e := detail.Entity

	var lines []string
	lines = append(lines, "name: "+toonEscape(e.Name))
	lines = append(lines, "kind: "+string(e.Kind))
	lines = append(lines, "file: "+toonEscape(e.File))
	lines = append(lines, fmt.Sprintf("lines: %d-%d", e.StartLine, e.EndLine))
	if e.HierarchyPath != "" {
		lines = append(lines, "hierarchy: "+toonEscape(e.HierarchyPath))
	}

	if len(e.Features) == 0 {
		lines = append(lines, "lifted: no (use get_entities_for_lifting to add semantic features)")
	} else {
		lines = append(lines, "lifted: yes")
		lines = append(lines, toonList(0, "features", e.Features))
	}

	// Edge lists grouped by kind and direction; empty groups are omitted.
	if out := edgeTargetsByKind(detail.Outgoing, true); len(out) > 0 {
		for _, kind := range sortedKindKeys(out) {
			lines = append(lines, toonList(0, kind, out[kind]))
		}
	}
	if in := edgeTargetsByKind(detail.Incoming, false); len(in) > 0 {
		for _, kind := range sortedKindKeys(in) {
			lines = append(lines, toonList(0, kind+"_by", in[kind]))
		}
	}

	if e.Source != "" {
		lines = append(lines, "source:")
		for _, line := range strings.Split(e.Source, "\n") {
			lines = append(lines, "  "+line)
		}
	} else {
		lines = append(lines, "source: null")
	}

	return strings.Join(lines, "\n")
}

func edgeTargetsByKind(edges []graph.DependencyEdge, outgoing bool) map[string][]string {
	groups := make(map[string][]string)
	for _, edge := range edges {
		if edge.Kind == graph.EdgeContains {
			continue
		}
		other := edge.Target
		if !outgoing {
			other = edge.Source
		}
		groups[string(edge.Kind)] = append(groups[string(edge.Kind)], other)
	}
	return groups
}

func sortedKindKeys(groups map[string][]string) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatHierarchyNode(node *graph.HierarchyNode) string {
	var lines []string
	lines = append(lines, "type: hierarchy_node")
	lines = append(lines, "name: "+toonEscape(node.Name))
	lines = append(lines, "path: "+toonEscape(node.Path))
	if node.AnchorDir != "" {
		lines = append(lines, "anchor: "+toonEscape(node.AnchorDir))
	}
	if len(node.Children) > 0 {
		lines = append(lines, toonList(0, "children", node.Children))
	}
	if len(node.Features) > 0 {
		features := node.Features
		if len(features) > 20 {
			features = features[:20]
		}
		lines = append(lines, toonList(0, "features", features))
	}
	if len(node.Entities) > 0 {
		ids := node.Entities
		if len(ids) > 20 {
			ids = ids[:20]
		}
		lines = append(lines, toonList(0, "entity_ids", ids))
	}
	return strings.Join(lines, "\n")
}

// formatInfo renders rpg_info as a TOON indented object.
func formatInfo(info *engine.Info) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("revision: %d", info.Revision))
	lines = append(lines, "language: "+toonEscape(info.Metadata.Language))
	if info.BaseCommit != "" {
		short := info.BaseCommit
		if len(short) > 8 {
			short = short[:8]
		}
		lines = append(lines, "commit: "+short)
	}
	lines = append(lines, fmt.Sprintf("entities: %d", info.Metadata.TotalEntities))
	lines = append(lines, fmt.Sprintf("lifted: %d/%d (%s%%)",
		info.Metadata.LiftedEntities, info.Metadata.TotalEntities, toonScore(info.LiftedPct)))
	lines = append(lines, fmt.Sprintf("files: %d", info.Metadata.TotalFiles))
	lines = append(lines, fmt.Sprintf("areas: %d", info.Metadata.FunctionalAreas))
	lines = append(lines, fmt.Sprintf("edges: %d", info.Metadata.TotalEdges))
	hierarchyType := "structural"
	if info.Metadata.SemanticHierarchy {
		hierarchyType = "semantic"
	}
	lines = append(lines, "hierarchy_type: "+hierarchyType)
	lines = append(lines, fmt.Sprintf("pending_routing: %d", info.PendingRouting))
	lines = append(lines, "embeddings: "+info.Embeddings)
	if info.Metadata.RepoSummary != "" {
		lines = append(lines, "summary: "+toonEscape(info.Metadata.RepoSummary))
	}
	if info.SearchMetrics != nil && info.SearchMetrics.TotalSearches > 0 {
		lines = append(lines, fmt.Sprintf("searches: %d (avg %sms, %s%% empty)",
			info.SearchMetrics.TotalSearches,
			toonScore(info.SearchMetrics.AvgDurationMs),
			toonScore(info.SearchMetrics.ZeroResultPct)))
	}
	if info.Stale {
		lines = append(lines, "stale: yes (run update_rpg)")
	}
	return strings.Join(lines, "\n")
}

// formatContextPack renders a context pack as nested TOON objects.
func formatContextPack(pack *search.ContextPack) string {
	var lines []string
	lines = append(lines, "query: "+toonEscape(pack.Query))
	lines = append(lines, fmt.Sprintf("tokens: %d", pack.TokenCount))
	if pack.EvictedSources+pack.EvictedFeatures+pack.EvictedEntries > 0 {
		lines = append(lines, fmt.Sprintf("evicted: %d sources, %d feature lists, %d entries",
			pack.EvictedSources, pack.EvictedFeatures, pack.EvictedEntries))
	}
	lines = append(lines, fmt.Sprintf("entries[%d]:", len(pack.Entries)))
	for _, entry := range pack.Entries {
		lines = append(lines, "  "+toonEscape(entry.EntityID)+":")
		lines = append(lines, fmt.Sprintf("    file: %s", toonEscape(entry.File)))
		lines = append(lines, fmt.Sprintf("    lines: %d-%d", entry.StartLine, entry.EndLine))
		if len(entry.Features) > 0 {
			lines = append(lines, toonList(2, "features", entry.Features))
		}
		if len(entry.Neighbors) > 0 {
			lines = append(lines, toonList(2, "neighbors", entry.Neighbors))
		}
		if entry.Source != "" {
			lines = append(lines, "    source:")
			for _, line := range strings.Split(entry.Source, "\n") {
				lines = append(lines, "      "+line)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// formatImpactRings renders impact_radius as one TOON list per distance.
func formatImpactRings(id string, rings []search.ImpactRing) string {
	var lines []string
	lines = append(lines, "root: "+toonEscape(id))
	total := 0
	for _, ring := range rings {
		total += len(ring.Entities)
	}
	lines = append(lines, fmt.Sprintf("affected: %d", total))
	for _, ring := range rings {
		lines = append(lines, toonList(0, fmt.Sprintf("hop%d", ring.Distance), ring.Entities))
	}
	return strings.Join(lines, "\n")
}
