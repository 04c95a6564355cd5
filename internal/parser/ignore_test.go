package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func writeIgnore(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, ".rpgignore"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestIgnoreMatcher(t *testing.T) {
	root := t.TempDir()
	writeIgnore(t, root, `
# comment
*.min.js
generated/
/scripts
!generated/keep.py
`)
	m, err := LoadIgnore(root)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path  string
		isDir bool
		want  bool
	}{
		{"app.min.js", false, true},
		{"src/app.min.js", false, true},
		{"app.js", false, false},
		{"generated", true, true},
		{"generated/out.py", false, true},
		{"generated/keep.py", false, false},
		{"scripts", true, true},
		{"src/scripts", true, false},
	}
	for _, tt := range tests {
		if got := m.Ignored(tt.path, tt.isDir); got != tt.want {
			t.Errorf("Ignored(%q, dir=%v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
		}
	}
}

func TestLoadIgnoreMissing(t *testing.T) {
	m, err := LoadIgnore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if m.Ignored("anything.go", false) {
		t.Error("empty matcher should ignore nothing")
	}
}

func TestDiscoverFiles(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		t.Helper()
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("src/auth.rs", "fn a() {}")
	mustWrite("src/lib.py", "def b(): pass")
	mustWrite("README.md", "docs")
	mustWrite("node_modules/pkg/index.js", "ignored")
	mustWrite("gen/out.rs", "fn c() {}")
	writeIgnore(t, root, "gen/\n")

	files, err := DiscoverFiles(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"src/auth.rs", "src/lib.py"}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files = %v, want %v", files, want)
		}
	}
}

func TestLanguageFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		lang Language
		ok   bool
	}{
		{".go", LangGo, true},
		{".rs", LangRust, true},
		{".tsx", LangTSX, true},
		{".py", LangPython, true},
		{".exe", "", false},
	}
	for _, tt := range tests {
		lang, ok := LanguageFromExtension(tt.ext)
		if lang != tt.lang || ok != tt.ok {
			t.Errorf("LanguageFromExtension(%q) = (%q, %v)", tt.ext, lang, ok)
		}
	}
}

func TestModuleEntityID(t *testing.T) {
	if got := ModuleEntityID("src/auth/jwt.rs"); got != "src/auth/jwt.rs:jwt" {
		t.Errorf("ModuleEntityID = %q", got)
	}
}
