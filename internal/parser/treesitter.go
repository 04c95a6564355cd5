//go:build cgo

package parser

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	rpgerr "rpg/internal/errors"
	"rpg/internal/graph"
	"rpg/internal/identity"
)

// Parser wraps tree-sitter for multi-language entity extraction.
type Parser struct {
	inner *sitter.Parser
}

// NewParser creates a new tree-sitter backed parser.
func NewParser() *Parser {
	return &Parser{inner: sitter.NewParser()}
}

// Available reports whether the tree-sitter backend was compiled in.
func Available() bool { return true }

func tsLanguage(lang Language) *sitter.Language {
	switch lang {
	case LangGo:
		return golang.GetLanguage()
	case LangJavaScript:
		return javascript.GetLanguage()
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTSX:
		return tsx.GetLanguage()
	case LangPython:
		return python.GetLanguage()
	case LangRust:
		return rust.GetLanguage()
	default:
		return nil
	}
}

// ParseFile extracts entity tuples and dependency hints from one file.
func (p *Parser) ParseFile(ctx context.Context, file string, source []byte, lang Language) (*FileResult, error) {
	tsLang := tsLanguage(lang)
	if tsLang == nil {
		return nil, rpgerr.Newf(rpgerr.ParseError, "unsupported language %q", lang)
	}
	p.inner.SetLanguage(tsLang)
	tree, err := p.inner.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.ParseError, "tree-sitter parse failed for "+file, err)
	}
	root := tree.RootNode()

	result := &FileResult{
		File:     file,
		Language: string(lang),
		Signals:  make(map[string]ComplexitySignals),
	}

	moduleID := ModuleEntityID(file)
	lineCount := strings.Count(string(source), "\n") + 1
	result.Entities = append(result.Entities, &graph.Entity{
		ID:        moduleID,
		Kind:      graph.KindModule,
		Name:      fileStem(file),
		Language:  string(lang),
		File:      file,
		StartLine: 1,
		EndLine:   lineCount,
	})

	w := &walker{
		file:     file,
		lang:     lang,
		source:   source,
		moduleID: moduleID,
		result:   result,
	}
	w.walk(root, "")
	return result, nil
}

type walker struct {
	file     string
	lang     Language
	source   []byte
	moduleID string
	result   *FileResult
}

// walk descends the AST tracking the enclosing container (class, struct,
// trait, impl target) so methods get qualified identifiers.
func (w *walker) walk(node *sitter.Node, container string) {
	nodeType := node.Type()

	switch {
	case contains(functionNodeTypes(w.lang), nodeType):
		w.extractFunction(node, container)
		return
	case contains(classNodeTypes(w.lang), nodeType):
		w.extractContainer(node)
		return
	}

	w.collectFileLevelHints(node)

	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i), container)
	}
}

func (w *walker) extractFunction(node *sitter.Node, container string) {
	name := w.functionName(node)
	if name == "" {
		return
	}
	if container == "" {
		container = w.goReceiverType(node)
	}

	kind := graph.KindFunction
	if container != "" || node.Type() == "method_definition" {
		kind = graph.KindMethod
	}

	id := identity.EntityID(w.file, container, name)
	entity := &graph.Entity{
		ID:          id,
		Kind:        kind,
		Name:        name,
		Language:    string(w.lang),
		File:        w.file,
		StartLine:   int(node.StartPoint().Row) + 1,
		EndLine:     int(node.EndPoint().Row) + 1,
		StartByte:   int(node.StartByte()),
		EndByte:     int(node.EndByte()),
		ParentClass: container,
		Source:      node.Content(w.source),
	}
	w.result.Entities = append(w.result.Entities, entity)
	w.result.Signals[id] = w.countSignals(node)
	w.collectCallHints(node, id)
}

func (w *walker) extractContainer(node *sitter.Node) {
	switch w.lang {
	case LangGo:
		// type_declaration wraps one or more type_specs.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			spec := node.NamedChild(i)
			if spec.Type() != "type_spec" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			typeNode := spec.ChildByFieldName("type")
			if nameNode == nil || typeNode == nil {
				continue
			}
			kind := graph.KindStruct
			if typeNode.Type() == "interface_type" {
				kind = graph.KindInterface
			}
			w.addTypeEntity(spec, nameNode.Content(w.source), kind)
		}
	case LangRust:
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = n.Content(w.source)
		}
		switch node.Type() {
		case "struct_item", "enum_item":
			w.addTypeEntity(node, name, graph.KindStruct)
		case "trait_item":
			w.addTypeEntity(node, name, graph.KindTrait)
			w.walkChildren(node, name)
			return
		case "impl_item":
			implType := ""
			if n := node.ChildByFieldName("type"); n != nil {
				implType = typeHead(n.Content(w.source))
			}
			if traitNode := node.ChildByFieldName("trait"); traitNode != nil && implType != "" {
				w.result.Hints = append(w.result.Hints, DepHint{
					SourceID:     identity.EntityID(w.file, "", implType),
					SourceFile:   w.file,
					TargetSymbol: typeHead(traitNode.Content(w.source)),
					Kind:         graph.EdgeInherits,
				})
			}
			w.walkChildren(node, implType)
			return
		}
	default:
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = n.Content(w.source)
		}
		if name == "" {
			return
		}
		kind := graph.KindClass
		if node.Type() == "interface_declaration" {
			kind = graph.KindInterface
		}
		w.addTypeEntity(node, name, kind)
		w.collectInheritanceHints(node, name)
		w.walkChildren(node, name)
		return
	}
}

func (w *walker) walkChildren(node *sitter.Node, container string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		w.walk(node.NamedChild(i), container)
	}
}

func (w *walker) addTypeEntity(node *sitter.Node, name string, kind graph.EntityKind) {
	if name == "" {
		return
	}
	id := identity.EntityID(w.file, "", name)
	w.result.Entities = append(w.result.Entities, &graph.Entity{
		ID:        id,
		Kind:      kind,
		Name:      name,
		Language:  string(w.lang),
		File:      w.file,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		Source:    node.Content(w.source),
	})
}

func (w *walker) functionName(node *sitter.Node) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return n.Content(w.source)
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && (child.Type() == "identifier" || child.Type() == "field_identifier" || child.Type() == "property_identifier") {
			return child.Content(w.source)
		}
	}
	return ""
}

// goReceiverType extracts the receiver type name of a Go method declaration.
func (w *walker) goReceiverType(node *sitter.Node) string {
	if w.lang != LangGo || node.Type() != "method_declaration" {
		return ""
	}
	recv := node.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	var find func(n *sitter.Node) string
	find = func(n *sitter.Node) string {
		if n.Type() == "type_identifier" {
			return n.Content(w.source)
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if got := find(n.NamedChild(i)); got != "" {
				return got
			}
		}
		return ""
	}
	return find(recv)
}

// countSignals counts branches, loops, and calls in a function body.
func (w *walker) countSignals(node *sitter.Node) ComplexitySignals {
	branches := branchNodeTypes(w.lang)
	loops := loopNodeTypes(w.lang)
	calls := callNodeTypes(w.lang)
	var sig ComplexitySignals
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		t := n.Type()
		switch {
		case contains(branches, t):
			sig.Branches++
		case contains(loops, t):
			sig.Loops++
		case contains(calls, t):
			sig.Calls++
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
	return sig
}

// collectCallHints emits an Invokes hint for every call inside an entity.
func (w *walker) collectCallHints(node *sitter.Node, sourceID string) {
	callTypes := callNodeTypes(w.lang)
	seen := make(map[string]struct{})
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if contains(callTypes, n.Type()) {
			if callee := w.calleeName(n); callee != "" {
				if _, dup := seen[callee]; !dup {
					seen[callee] = struct{}{}
					w.result.Hints = append(w.result.Hints, DepHint{
						SourceID:     sourceID,
						SourceFile:   w.file,
						TargetSymbol: callee,
						Kind:         graph.EdgeInvokes,
					})
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(node)
}

// calleeName extracts the rightmost identifier of a call target.
func (w *walker) calleeName(call *sitter.Node) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		fn = call.ChildByFieldName("name")
	}
	if fn == nil {
		return ""
	}
	text := fn.Content(w.source)
	text = strings.TrimSuffix(text, "!")
	for _, sep := range []string{"::", ".", "->"} {
		if i := strings.LastIndex(text, sep); i >= 0 {
			text = text[i+len(sep):]
		}
	}
	if text == "" || !isIdentifier(text) {
		return ""
	}
	return text
}

// collectFileLevelHints emits Imports hints attributed to the Module entity.
func (w *walker) collectFileLevelHints(node *sitter.Node) {
	var symbol string
	switch w.lang {
	case LangGo:
		if node.Type() == "import_spec" {
			if pathNode := node.ChildByFieldName("path"); pathNode != nil {
				symbol = lastPathSegment(strings.Trim(pathNode.Content(w.source), `"`))
			}
		}
	case LangPython:
		if node.Type() == "import_statement" || node.Type() == "import_from_statement" {
			if n := node.ChildByFieldName("module_name"); n != nil {
				symbol = lastPathSegment(strings.ReplaceAll(n.Content(w.source), ".", "/"))
			} else if node.NamedChildCount() > 0 {
				symbol = lastPathSegment(strings.ReplaceAll(node.NamedChild(0).Content(w.source), ".", "/"))
			}
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		if node.Type() == "import_statement" {
			if n := node.ChildByFieldName("source"); n != nil {
				symbol = lastPathSegment(strings.Trim(n.Content(w.source), "'\""))
			}
		}
	case LangRust:
		if node.Type() == "use_declaration" && node.NamedChildCount() > 0 {
			symbol = lastPathSegment(strings.ReplaceAll(node.NamedChild(0).Content(w.source), "::", "/"))
		}
	}
	if symbol == "" || !isIdentifier(symbol) {
		return
	}
	w.result.Hints = append(w.result.Hints, DepHint{
		SourceID:     w.moduleID,
		SourceFile:   w.file,
		TargetSymbol: symbol,
		Kind:         graph.EdgeImports,
	})
}

// collectInheritanceHints emits Inherits hints for class heritage clauses.
func (w *walker) collectInheritanceHints(node *sitter.Node, className string) {
	sourceID := identity.EntityID(w.file, "", className)
	switch w.lang {
	case LangPython:
		if args := node.ChildByFieldName("superclasses"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				base := args.NamedChild(i)
				if base.Type() == "identifier" || base.Type() == "attribute" {
					w.result.Hints = append(w.result.Hints, DepHint{
						SourceID:     sourceID,
						SourceFile:   w.file,
						TargetSymbol: base.Content(w.source),
						Kind:         graph.EdgeInherits,
					})
				}
			}
		}
	case LangJavaScript, LangTypeScript, LangTSX:
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "class_heritage" || child.Type() == "extends_clause" {
				for j := 0; j < int(child.NamedChildCount()); j++ {
					w.result.Hints = append(w.result.Hints, DepHint{
						SourceID:     sourceID,
						SourceFile:   w.file,
						TargetSymbol: child.NamedChild(j).Content(w.source),
						Kind:         graph.EdgeInherits,
					})
				}
			}
		}
	}
}

func typeHead(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if !isIdentRune(r) {
			return s[:i]
		}
	}
	return s
}

func lastPathSegment(s string) string {
	s = strings.TrimSuffix(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
