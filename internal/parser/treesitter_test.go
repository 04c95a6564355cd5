//go:build cgo

package parser

import (
	"context"
	"testing"

	"rpg/internal/graph"
)

func parseSource(t *testing.T, file, source string, lang Language) *FileResult {
	t.Helper()
	p := NewParser()
	result, err := p.ParseFile(context.Background(), file, []byte(source), lang)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	return result
}

func findEntity(result *FileResult, id string) *graph.Entity {
	for _, e := range result.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func TestParseGo(t *testing.T) {
	source := `package auth

import "fmt"

type Session struct {
	token string
}

func (s *Session) Refresh() error {
	if s.token == "" {
		return fmt.Errorf("no token")
	}
	return validate(s.token)
}

func validate(token string) error {
	return nil
}
`
	result := parseSource(t, "auth/session.go", source, LangGo)

	if findEntity(result, "auth/session.go:session") == nil {
		t.Error("module entity missing")
	}
	st := findEntity(result, "auth/session.go:Session")
	if st == nil || st.Kind != graph.KindStruct {
		t.Errorf("struct entity = %+v", st)
	}
	method := findEntity(result, "auth/session.go:Session::Refresh")
	if method == nil {
		t.Fatal("method entity missing (receiver qualification failed)")
	}
	if method.Kind != graph.KindMethod || method.ParentClass != "Session" {
		t.Errorf("method = %+v", method)
	}
	fn := findEntity(result, "auth/session.go:validate")
	if fn == nil || fn.Kind != graph.KindFunction {
		t.Errorf("function = %+v", fn)
	}

	// Refresh has one branch and calls: review candidate territory.
	sig := result.Signals["auth/session.go:Session::Refresh"]
	if sig.Branches != 1 {
		t.Errorf("signals = %+v", sig)
	}

	// Call hint from Refresh to validate.
	foundCall := false
	for _, h := range result.Hints {
		if h.SourceID == "auth/session.go:Session::Refresh" && h.TargetSymbol == "validate" && h.Kind == graph.EdgeInvokes {
			foundCall = true
		}
	}
	if !foundCall {
		t.Errorf("missing invoke hint, hints = %+v", result.Hints)
	}
}

func TestParsePython(t *testing.T) {
	source := `import os

class Handler(Base):
    def process(self, request):
        if request.valid:
            return self.dispatch(request)
        return None

def helper():
    return os.getcwd()
`
	result := parseSource(t, "app/handler.py", source, LangPython)

	cls := findEntity(result, "app/handler.py:Handler")
	if cls == nil || cls.Kind != graph.KindClass {
		t.Errorf("class = %+v", cls)
	}
	method := findEntity(result, "app/handler.py:Handler::process")
	if method == nil || method.Kind != graph.KindMethod {
		t.Errorf("method = %+v", method)
	}
	if findEntity(result, "app/handler.py:helper") == nil {
		t.Error("top-level function missing")
	}

	// Inheritance hint Handler -> Base.
	foundInherit := false
	for _, h := range result.Hints {
		if h.Kind == graph.EdgeInherits && h.TargetSymbol == "Base" {
			foundInherit = true
		}
	}
	if !foundInherit {
		t.Errorf("missing inherit hint, hints = %+v", result.Hints)
	}
}

func TestParseRust(t *testing.T) {
	source := `use std::collections::HashMap;

struct Token {
    value: String,
}

impl Token {
    fn verify(&self) -> bool {
        check_signature(&self.value)
    }
}

fn check_signature(raw: &str) -> bool {
    true
}
`
	result := parseSource(t, "src/token.rs", source, LangRust)

	st := findEntity(result, "src/token.rs:Token")
	if st == nil || st.Kind != graph.KindStruct {
		t.Errorf("struct = %+v", st)
	}
	method := findEntity(result, "src/token.rs:Token::verify")
	if method == nil || method.ParentClass != "Token" {
		t.Errorf("impl method = %+v", method)
	}
	if findEntity(result, "src/token.rs:check_signature") == nil {
		t.Error("free function missing")
	}
}

func TestParseUnsupportedLanguage(t *testing.T) {
	p := NewParser()
	if _, err := p.ParseFile(context.Background(), "x.zig", []byte("fn main() {}"), Language("zig")); err == nil {
		t.Error("expected error for unsupported language")
	}
}
