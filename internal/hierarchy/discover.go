package hierarchy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"rpg/internal/graph"
	"rpg/internal/paths"
)

// AreaSeed is a user-declared functional area from .rpg/areas.toml, folded
// into the domain-discovery prompt as a starting point for the agent.
type AreaSeed struct {
	Name        string `toml:"name"`
	Description string `toml:"description,omitempty"`
}

type areasFile struct {
	Areas []AreaSeed `toml:"area"`
}

// LoadAreaSeeds reads .rpg/areas.toml. A missing file yields no seeds;
// a malformed file or an invalid area name is an error (strict decode).
func LoadAreaSeeds(repoRoot string) ([]AreaSeed, error) {
	data, err := os.ReadFile(paths.AreasSeedFile(repoRoot))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f areasFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("areas.toml: %w", err)
	}
	for _, a := range f.Areas {
		if err := ValidateAreaName(a.Name); err != nil {
			return nil, err
		}
	}
	return f.Areas, nil
}

// FileCluster groups files for sharded hierarchy construction.
type FileCluster struct {
	Files           []string `json:"files"`
	Representatives []string `json:"representatives"`
}

// ClusterFiles partitions files into deterministic clusters of roughly
// targetSize each, with evenly-sampled representatives for domain discovery.
// Repositories at or below the threshold get a single cluster.
func ClusterFiles(g *graph.Graph, targetSize, sizeThreshold int) []FileCluster {
	files := g.Files()
	if targetSize <= 0 {
		targetSize = 70
	}
	if len(files) <= sizeThreshold || len(files) <= targetSize {
		return []FileCluster{{Files: files, Representatives: sampleRepresentatives(files, 3)}}
	}

	var clusters []FileCluster
	for start := 0; start < len(files); start += targetSize {
		end := start + targetSize
		if end > len(files) {
			end = len(files)
		}
		chunk := append([]string(nil), files[start:end]...)
		clusters = append(clusters, FileCluster{
			Files:           chunk,
			Representatives: sampleRepresentatives(chunk, 3),
		})
	}
	return clusters
}

func sampleRepresentatives(files []string, count int) []string {
	if len(files) <= count {
		return append([]string(nil), files...)
	}
	step := len(files) / count
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, files[i*step])
	}
	return out
}

// DiscoveryPrompt assembles the domain-discovery request shown to the agent:
// per-file feature summaries (module synthesis when present, otherwise the
// entity feature bag), plus any declared area seeds.
func DiscoveryPrompt(g *graph.Graph, cluster FileCluster, seeds []AreaSeed) string {
	var b strings.Builder
	b.WriteString("Identify the top-level functional areas of this repository.\n")
	b.WriteString("Respond with PascalCase area names, one per line, each with a one-line description.\n\n")

	if len(seeds) > 0 {
		b.WriteString("Declared areas (keep unless clearly wrong):\n")
		for _, s := range seeds {
			fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("Files and their features:\n")
	for _, file := range cluster.Files {
		features := fileFeatures(g, file)
		if len(features) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", file, strings.Join(features, "; "))
	}
	return b.String()
}

// AssignmentPrompt assembles the file-assignment request for one cluster
// against the discovered area set.
func AssignmentPrompt(g *graph.Graph, cluster FileCluster, areas []string) string {
	sorted := append([]string(nil), areas...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString("Assign each file to Area/category/subcategory.\n")
	b.WriteString("Areas must come from: " + strings.Join(sorted, ", ") + "\n")
	b.WriteString("Categories and subcategories are lowercase three-to-five-word phrases.\n\n")
	for _, file := range cluster.Files {
		features := fileFeatures(g, file)
		fmt.Fprintf(&b, "- %s: %s\n", file, strings.Join(features, "; "))
	}
	return b.String()
}

func fileFeatures(g *graph.Graph, file string) []string {
	var bag []string
	for _, id := range g.EntitiesInFile(file) {
		e := g.Entity(id)
		if e == nil {
			continue
		}
		if e.Kind == graph.KindModule && e.Lifted() {
			// Synthesized module features summarize the whole file.
			return e.Features
		}
		bag = append(bag, e.Features...)
	}
	bag = graph.NormalizeFeatures(bag)
	if len(bag) > 8 {
		bag = bag[:8]
	}
	return bag
}
