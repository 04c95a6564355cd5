package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	rpgerr "rpg/internal/errors"
)

// Config represents the complete RPG configuration loaded from .rpg/config.toml
type Config struct {
	Encoding   EncodingConfig   `json:"encoding" mapstructure:"encoding" toml:"encoding"`
	Navigation NavigationConfig `json:"navigation" mapstructure:"navigation" toml:"navigation"`
	Storage    StorageConfig    `json:"storage" mapstructure:"storage" toml:"storage"`
	Embedding  EmbeddingConfig  `json:"embedding" mapstructure:"embedding" toml:"embedding"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging" toml:"logging"`
}

// EncodingConfig controls lifting batches and drift classification
type EncodingConfig struct {
	BatchSize              int     `json:"batchSize" mapstructure:"batch_size" toml:"batch_size"`
	MaxBatchTokens         int     `json:"maxBatchTokens" mapstructure:"max_batch_tokens" toml:"max_batch_tokens"`
	DriftThreshold         float64 `json:"driftThreshold" mapstructure:"drift_threshold" toml:"drift_threshold"`
	DriftIgnoreThreshold   float64 `json:"driftIgnoreThreshold" mapstructure:"drift_ignore_threshold" toml:"drift_ignore_threshold"`
	DriftAutoThreshold     float64 `json:"driftAutoThreshold" mapstructure:"drift_auto_threshold" toml:"drift_auto_threshold"`
	AutoliftMaxCalls       int     `json:"autoliftMaxCalls" mapstructure:"autolift_max_calls" toml:"autolift_max_calls"`
	ReviewMinCalls         int     `json:"reviewMinCalls" mapstructure:"review_min_calls" toml:"review_min_calls"`
	HierarchyClusterSize   int     `json:"hierarchyClusterSize" mapstructure:"hierarchy_cluster_size" toml:"hierarchy_cluster_size"`
	HierarchySizeThreshold int     `json:"hierarchySizeThreshold" mapstructure:"hierarchy_size_threshold" toml:"hierarchy_size_threshold"`
}

// NavigationConfig controls search behavior
type NavigationConfig struct {
	SearchResultLimit int     `json:"searchResultLimit" mapstructure:"search_result_limit" toml:"search_result_limit"`
	SemanticWeight    float64 `json:"semanticWeight" mapstructure:"semantic_weight" toml:"semantic_weight"`
	LexicalWeight     float64 `json:"lexicalWeight" mapstructure:"lexical_weight" toml:"lexical_weight"`
	EmbeddingEnabled  bool    `json:"embeddingEnabled" mapstructure:"embedding_enabled" toml:"embedding_enabled"`
}

// StorageConfig controls on-disk representation
type StorageConfig struct {
	// Compress graph.json with zstd before writing.
	// Decompression on load is automatic (detected by magic bytes).
	Compress bool `json:"compress" mapstructure:"compress" toml:"compress"`
}

// EmbeddingConfig controls the embedding collaborator
type EmbeddingConfig struct {
	Provider  string `json:"provider" mapstructure:"provider" toml:"provider"`
	Model     string `json:"model" mapstructure:"model" toml:"model"`
	Dimension int    `json:"dimension" mapstructure:"dimension" toml:"dimension"`
	BatchSize int    `json:"batchSize" mapstructure:"batch_size" toml:"batch_size"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level" toml:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Encoding: EncodingConfig{
			BatchSize:              50,
			MaxBatchTokens:         8000,
			DriftThreshold:         0.5,
			DriftIgnoreThreshold:   0.3,
			DriftAutoThreshold:     0.7,
			AutoliftMaxCalls:       2,
			ReviewMinCalls:         3,
			HierarchyClusterSize:   70,
			HierarchySizeThreshold: 100,
		},
		Navigation: NavigationConfig{
			SearchResultLimit: 10,
			SemanticWeight:    0.6,
			LexicalWeight:     0.4,
			EmbeddingEnabled:  true,
		},
		Storage: StorageConfig{
			Compress: false,
		},
		Embedding: EmbeddingConfig{
			Provider:  "auto",
			Model:     "gemini-embedding-001",
			Dimension: 768,
			BatchSize: 50,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from <repoRoot>/.rpg/config.toml with RPG_* env
// overrides. Missing file falls back to defaults.
func Load(repoRoot string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("encoding.batch_size", def.Encoding.BatchSize)
	v.SetDefault("encoding.max_batch_tokens", def.Encoding.MaxBatchTokens)
	v.SetDefault("encoding.drift_threshold", def.Encoding.DriftThreshold)
	v.SetDefault("encoding.drift_ignore_threshold", def.Encoding.DriftIgnoreThreshold)
	v.SetDefault("encoding.drift_auto_threshold", def.Encoding.DriftAutoThreshold)
	v.SetDefault("encoding.autolift_max_calls", def.Encoding.AutoliftMaxCalls)
	v.SetDefault("encoding.review_min_calls", def.Encoding.ReviewMinCalls)
	v.SetDefault("encoding.hierarchy_cluster_size", def.Encoding.HierarchyClusterSize)
	v.SetDefault("encoding.hierarchy_size_threshold", def.Encoding.HierarchySizeThreshold)
	v.SetDefault("navigation.search_result_limit", def.Navigation.SearchResultLimit)
	v.SetDefault("navigation.semantic_weight", def.Navigation.SemanticWeight)
	v.SetDefault("navigation.lexical_weight", def.Navigation.LexicalWeight)
	v.SetDefault("navigation.embedding_enabled", def.Navigation.EmbeddingEnabled)
	v.SetDefault("storage.compress", def.Storage.Compress)
	v.SetDefault("embedding.provider", def.Embedding.Provider)
	v.SetDefault("embedding.model", def.Embedding.Model)
	v.SetDefault("embedding.dimension", def.Embedding.Dimension)
	v.SetDefault("embedding.batch_size", def.Embedding.BatchSize)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(filepath.Join(repoRoot, ".rpg"))

	v.SetEnvPrefix("RPG")
	v.AutomaticEnv()
	// Map RPG_BATCH_SIZE-style vars onto nested keys
	_ = v.BindEnv("encoding.batch_size", "RPG_BATCH_SIZE")
	_ = v.BindEnv("encoding.max_batch_tokens", "RPG_MAX_BATCH_TOKENS")
	_ = v.BindEnv("encoding.drift_threshold", "RPG_DRIFT_THRESHOLD")
	_ = v.BindEnv("encoding.drift_ignore_threshold", "RPG_DRIFT_IGNORE_THRESHOLD")
	_ = v.BindEnv("encoding.drift_auto_threshold", "RPG_DRIFT_AUTO_THRESHOLD")
	_ = v.BindEnv("navigation.search_result_limit", "RPG_SEARCH_LIMIT")
	_ = v.BindEnv("embedding.provider", "RPG_EMBEDDING_PROVIDER")
	_ = v.BindEnv("embedding.model", "RPG_EMBEDDING_MODEL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to read config.toml", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, rpgerr.Wrap(rpgerr.CorruptStore, "failed to decode config.toml", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks threshold ordering and weight sanity
func (c *Config) Validate() error {
	if c.Encoding.DriftIgnoreThreshold >= c.Encoding.DriftAutoThreshold {
		return rpgerr.Newf(rpgerr.InternalError,
			"drift_ignore_threshold (%.2f) must be less than drift_auto_threshold (%.2f)",
			c.Encoding.DriftIgnoreThreshold, c.Encoding.DriftAutoThreshold)
	}
	if c.Navigation.SemanticWeight < 0 || c.Navigation.LexicalWeight < 0 {
		return rpgerr.New(rpgerr.InternalError, "search weights must be non-negative")
	}
	if c.Encoding.BatchSize <= 0 {
		return rpgerr.New(rpgerr.InternalError, "encoding.batch_size must be positive")
	}
	return nil
}

// WriteDefault writes the default configuration to <repoRoot>/.rpg/config.toml.
// Existing files are not overwritten.
func WriteDefault(repoRoot string) (string, error) {
	dir := filepath.Join(repoRoot, ".rpg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	data, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
