// Package scipload ingests a SCIP index as an alternative entity source:
// documents become files, definition occurrences become entities, and
// reference occurrences become dependency hints.
package scipload

import (
	"os"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
	"rpg/internal/identity"
	"rpg/internal/parser"
)

// Load reads and parses a SCIP index file.
func Load(path string) (*scippb.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.ParseError, "failed to read SCIP index "+path, err)
	}
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		return nil, rpgerr.Wrap(rpgerr.ParseError, "failed to parse SCIP index "+path, err)
	}
	return &index, nil
}

// Convert turns a SCIP index into per-file parser results. Definition
// occurrences yield entities; reference occurrences yield Invokes hints
// attributed to the enclosing definition.
func Convert(index *scippb.Index) []*parser.FileResult {
	var results []*parser.FileResult

	for _, doc := range index.Documents {
		file := doc.RelativePath
		result := &parser.FileResult{
			File:     file,
			Language: strings.ToLower(doc.Language),
			Signals:  make(map[string]parser.ComplexitySignals),
		}

		result.Entities = append(result.Entities, &graph.Entity{
			ID:        parser.ModuleEntityID(file),
			Kind:      graph.KindModule,
			Name:      moduleName(file),
			Language:  result.Language,
			File:      file,
			StartLine: 1,
			EndLine:   1,
		})

		// Definitions first, so references can be attributed to the last
		// definition seen above them.
		currentEntity := ""
		for _, occ := range doc.Occurrences {
			name, container, kind, ok := describeSymbol(occ.Symbol)
			if !ok {
				continue
			}
			if occ.SymbolRoles&int32(scippb.SymbolRole_Definition) != 0 {
				id := identity.EntityID(file, container, name)
				startLine := int(occ.Range[0]) + 1
				endLine := startLine
				if len(occ.Range) >= 4 {
					endLine = int(occ.Range[2]) + 1
				}
				result.Entities = append(result.Entities, &graph.Entity{
					ID:          id,
					Kind:        kind,
					Name:        name,
					Language:    result.Language,
					File:        file,
					StartLine:   startLine,
					EndLine:     endLine,
					ParentClass: container,
				})
				currentEntity = id
				continue
			}
			if currentEntity != "" {
				result.Hints = append(result.Hints, parser.DepHint{
					SourceID:     currentEntity,
					SourceFile:   file,
					TargetSymbol: name,
					Kind:         graph.EdgeInvokes,
				})
			}
		}
		results = append(results, result)
	}
	return results
}

// describeSymbol extracts (name, container, kind) from a SCIP symbol string.
func describeSymbol(symbol string) (name, container string, kind graph.EntityKind, ok bool) {
	parsed, err := scippb.ParseSymbol(symbol)
	if err != nil || len(parsed.Descriptors) == 0 {
		return "", "", "", false
	}
	last := parsed.Descriptors[len(parsed.Descriptors)-1]
	name = last.Name
	if name == "" {
		return "", "", "", false
	}
	switch last.Suffix {
	case scippb.Descriptor_Method:
		kind = graph.KindMethod
		if len(parsed.Descriptors) >= 2 {
			container = parsed.Descriptors[len(parsed.Descriptors)-2].Name
		}
	case scippb.Descriptor_Type:
		kind = graph.KindClass
	case scippb.Descriptor_Term:
		kind = graph.KindFunction
	default:
		kind = graph.KindFunction
	}
	return name, container, kind, true
}

func moduleName(file string) string {
	base := file
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
