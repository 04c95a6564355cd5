package grounding

import "testing"

func TestAnchorDir(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"empty", nil, ""},
		{"single file", []string{"src/auth/jwt.rs"}, "src/auth"},
		{"same directory", []string{"src/data/loader.py", "src/data/parser.py"}, "src/data"},
		{"nested split", []string{"src/auth/jwt.rs", "src/auth/jwt/verify.rs"}, "src/auth"},
		{"no shared prefix", []string{"cmd/main.go", "internal/x/y.go"}, "."},
		{"root files", []string{"main.go", "util.go"}, "."},
		{"deep common", []string{"a/b/c/d.rs", "a/b/c/e.rs", "a/b/c/sub/f.rs"}, "a/b/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AnchorDir(tt.files); got != tt.want {
				t.Errorf("AnchorDir(%v) = %q, want %q", tt.files, got, tt.want)
			}
		})
	}
}
