package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Encoding.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Encoding.BatchSize)
	}
	if cfg.Encoding.MaxBatchTokens != 8000 {
		t.Errorf("MaxBatchTokens = %d, want 8000", cfg.Encoding.MaxBatchTokens)
	}
	if cfg.Encoding.DriftIgnoreThreshold != 0.3 || cfg.Encoding.DriftAutoThreshold != 0.7 {
		t.Errorf("drift thresholds = %.2f/%.2f, want 0.3/0.7",
			cfg.Encoding.DriftIgnoreThreshold, cfg.Encoding.DriftAutoThreshold)
	}
	if cfg.Navigation.SearchResultLimit != 10 {
		t.Errorf("SearchResultLimit = %d, want 10", cfg.Navigation.SearchResultLimit)
	}
	if cfg.Navigation.SemanticWeight != 0.6 || cfg.Navigation.LexicalWeight != 0.4 {
		t.Error("default search weights should be 0.6/0.4")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Encoding.BatchSize != 50 {
		t.Errorf("expected defaults when config.toml is absent, got batch_size=%d", cfg.Encoding.BatchSize)
	}
}

func TestLoadFromToml(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, ".rpg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := `
[encoding]
batch_size = 64
max_batch_tokens = 24000

[navigation]
search_result_limit = 20
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Encoding.BatchSize != 64 {
		t.Errorf("batch_size = %d, want 64", cfg.Encoding.BatchSize)
	}
	if cfg.Encoding.MaxBatchTokens != 24000 {
		t.Errorf("max_batch_tokens = %d, want 24000", cfg.Encoding.MaxBatchTokens)
	}
	if cfg.Navigation.SearchResultLimit != 20 {
		t.Errorf("search_result_limit = %d, want 20", cfg.Navigation.SearchResultLimit)
	}
	// Unspecified fields keep defaults
	if cfg.Encoding.DriftThreshold != 0.5 {
		t.Errorf("drift_threshold = %.2f, want default 0.5", cfg.Encoding.DriftThreshold)
	}
}

func TestValidateDriftOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Encoding.DriftIgnoreThreshold = 0.8
	cfg.Encoding.DriftAutoThreshold = 0.7
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure when ignore >= auto")
	}
}

func TestWriteDefault(t *testing.T) {
	root := t.TempDir()
	path, err := WriteDefault(root)
	if err != nil {
		t.Fatalf("WriteDefault failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load of written default failed: %v", err)
	}
	if cfg.Encoding.BatchSize != 50 {
		t.Errorf("round-tripped batch_size = %d, want 50", cfg.Encoding.BatchSize)
	}
}
