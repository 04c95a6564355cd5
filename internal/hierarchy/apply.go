package hierarchy

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rpg/internal/graph"
)

// ApplyOutcome reports which assignment rows were installed.
type ApplyOutcome struct {
	Applied  []string          `json:"applied"`
	Rejected map[string]string `json:"rejected,omitempty"`
}

// Apply validates and installs hierarchy assignments. Keys are file paths or
// entity ids; values are three-segment paths or "keep". A file key places
// every entity in the file; assigning a Module entity does the same.
// Rejected rows are reported with the reason and do not modify the graph.
func Apply(g *graph.Graph, assignments map[string]string, knownAreas map[string]bool) ApplyOutcome {
	outcome := ApplyOutcome{Rejected: make(map[string]string)}

	keys := make([]string, 0, len(assignments))
	for k := range assignments {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := strings.TrimSpace(assignments[key])
		if strings.EqualFold(path, "keep") {
			outcome.Applied = append(outcome.Applied, key)
			continue
		}
		if err := ValidatePath(path, knownAreas); err != nil {
			outcome.Rejected[key] = err.Error()
			continue
		}

		ids := resolveAssignmentTarget(g, key)
		if len(ids) == 0 {
			outcome.Rejected[key] = "no entity or file matches " + key
			continue
		}
		for _, id := range ids {
			if err := g.AttachEntity(id, path); err != nil {
				outcome.Rejected[key] = err.Error()
				break
			}
		}
		outcome.Applied = append(outcome.Applied, key)
	}

	if len(outcome.Applied) > 0 {
		g.Metadata.SemanticHierarchy = true
		g.AggregateFeatures()
	}
	return outcome
}

// resolveAssignmentTarget maps an assignment key onto entity ids: a direct
// entity id, a Module entity (expands to file siblings), or a file path.
func resolveAssignmentTarget(g *graph.Graph, key string) []string {
	if e := g.Entity(key); e != nil {
		if e.Kind == graph.KindModule {
			return g.EntitiesInFile(e.File)
		}
		return []string{key}
	}
	return g.EntitiesInFile(key)
}

// BuildStructuralFallback installs a file-path hierarchy when no semantic
// hierarchy exists yet: dir/subdir/stem, at most three segments. Placement
// is deterministic and purely structural.
func BuildStructuralFallback(g *graph.Graph) {
	ids := make([]string, 0, len(g.Entities))
	for id := range g.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := g.Entity(id)
		path := StructuralPath(e.File)
		if path == "" {
			continue
		}
		_ = g.AttachEntity(id, path)
	}
	g.Metadata.SemanticHierarchy = false
	g.AggregateFeatures()
}

// StructuralPath derives the fallback hierarchy path for a file.
func StructuralPath(file string) string {
	parts := strings.Split(strings.Trim(file, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	stem := parts[len(parts)-1]
	if i := strings.LastIndex(stem, "."); i > 0 {
		stem = stem[:i]
	}
	switch len(parts) {
	case 1:
		return stem
	case 2:
		return parts[0] + "/" + stem
	default:
		return parts[0] + "/" + parts[1] + "/" + stem
	}
}

// yamlNode is the exported YAML shape of one hierarchy node.
type yamlNode struct {
	Path      string   `yaml:"path"`
	AnchorDir string   `yaml:"anchorDir,omitempty"`
	Entities  []string `yaml:"entities,omitempty"`
	Features  []string `yaml:"features,omitempty"`
}

// ExportYAML renders the hierarchy as a flat, sorted YAML document for
// human review and editing.
func ExportYAML(g *graph.Graph) ([]byte, error) {
	nodes := make([]yamlNode, 0, len(g.Hierarchy))
	for _, path := range g.NodePaths() {
		n := g.Node(path)
		nodes = append(nodes, yamlNode{
			Path:      n.Path,
			AnchorDir: n.AnchorDir,
			Entities:  n.Entities,
			Features:  n.Features,
		})
	}
	return yaml.Marshal(nodes)
}

// ImportYAML reads an edited hierarchy dump back into assignment form
// (entity id -> path), ready for Apply.
func ImportYAML(data []byte) (map[string]string, error) {
	var nodes []yamlNode
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	assignments := make(map[string]string)
	for _, n := range nodes {
		for _, id := range n.Entities {
			assignments[id] = n.Path
		}
	}
	return assignments, nil
}
