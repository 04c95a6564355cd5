package identity

import "testing"

func TestEntityID(t *testing.T) {
	tests := []struct {
		file, class, symbol, want string
	}{
		{"src/a.rs", "", "foo", "src/a.rs:foo"},
		{"src/auth.rs", "Session", "refresh", "src/auth.rs:Session::refresh"},
	}
	for _, tt := range tests {
		if got := EntityID(tt.file, tt.class, tt.symbol); got != tt.want {
			t.Errorf("EntityID(%q, %q, %q) = %q, want %q", tt.file, tt.class, tt.symbol, got, tt.want)
		}
	}
}

func TestSplitID(t *testing.T) {
	tests := []struct {
		id, file, class, symbol string
	}{
		{"src/a.rs:foo", "src/a.rs", "", "foo"},
		{"src/auth.rs:Session::refresh", "src/auth.rs", "Session", "refresh"},
	}
	for _, tt := range tests {
		file, class, symbol := SplitID(tt.id)
		if file != tt.file || class != tt.class || symbol != tt.symbol {
			t.Errorf("SplitID(%q) = (%q, %q, %q)", tt.id, file, class, symbol)
		}
	}
}

func TestSplitRoundTrip(t *testing.T) {
	ids := []string{"a.go:F", "pkg/x.py:Cls::method", "deep/dir/file.ts:handler"}
	for _, id := range ids {
		f, c, s := SplitID(id)
		if EntityID(f, c, s) != id {
			t.Errorf("round trip failed for %q", id)
		}
	}
}

func TestFeatureFingerprintOrderIndependent(t *testing.T) {
	a := FeatureFingerprint([]string{"validate request", "reject expired tokens"})
	b := FeatureFingerprint([]string{"reject expired tokens", "validate request"})
	if a != b {
		t.Error("fingerprint should be order independent")
	}
	c := FeatureFingerprint([]string{"validate request"})
	if a == c {
		t.Error("different feature sets must not collide")
	}
}

func TestLineOverlap(t *testing.T) {
	src := []byte("fn foo() {\n  bar();\n}\n")
	if got := LineOverlap(src, src); got != 1.0 {
		t.Errorf("identical sources overlap = %v, want 1.0", got)
	}
	if got := LineOverlap(src, []byte("completely different\ncontent here\n")); got != 0.0 {
		t.Errorf("disjoint sources overlap = %v, want 0.0", got)
	}
	half := []byte("fn foo() {\n  baz();\n}\n")
	got := LineOverlap(src, half)
	if got <= 0.0 || got >= 1.0 {
		t.Errorf("partial overlap = %v, want between 0 and 1", got)
	}
}

func TestMatchRenamed(t *testing.T) {
	old := []RekeyEntity{
		{ID: "src/a.rs:foo", Key: RekeyKey{Symbol: "foo", StartLine: 1, EndLine: 10}},
		{ID: "src/a.rs:bar", Key: RekeyKey{Symbol: "bar", StartLine: 12, EndLine: 20}},
	}
	renamed := []RekeyEntity{
		{ID: "src/auth/a.rs:foo", Key: RekeyKey{Symbol: "foo", StartLine: 1, EndLine: 10}},
		{ID: "src/auth/a.rs:bar", Key: RekeyKey{Symbol: "bar", StartLine: 12, EndLine: 20}},
	}
	m := MatchRenamed(old, renamed)
	if m["src/a.rs:foo"] != "src/auth/a.rs:foo" || m["src/a.rs:bar"] != "src/auth/a.rs:bar" {
		t.Errorf("match = %v", m)
	}
}

func TestMatchRenamedAmbiguous(t *testing.T) {
	key := RekeyKey{Symbol: "new", StartLine: 1, EndLine: 5}
	old := []RekeyEntity{{ID: "a.rs:new", Key: key}}
	renamed := []RekeyEntity{
		{ID: "b.rs:new", Key: key},
		{ID: "c.rs:new", Key: key},
	}
	if m := MatchRenamed(old, renamed); len(m) != 0 {
		t.Errorf("ambiguous key should not match, got %v", m)
	}
}
