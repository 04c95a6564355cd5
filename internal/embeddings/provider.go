package embeddings

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"rpg/internal/config"
	rpgerr "rpg/internal/errors"
)

// Provider is the embedding collaborator: feature strings in, fixed-dimension
// vectors out.
type Provider interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Name() string
}

// ErrNoProvider is returned when no embedding backend is configured; search
// degrades to lexical-only.
var ErrNoProvider = errors.New("no embedding provider configured")

// NewProvider builds a provider from configuration. Detection order for
// "auto": Gemini when GEMINI_API_KEY is set, otherwise none.
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			return nil, rpgerr.New(rpgerr.EmbeddingError, "embedding.provider=gemini but GEMINI_API_KEY not set")
		}
		return newGeminiProvider(ctx, key, cfg.Model, cfg.Dimension)
	case "auto", "":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			return newGeminiProvider(ctx, key, cfg.Model, cfg.Dimension)
		}
		return nil, ErrNoProvider
	case "none":
		return nil, ErrNoProvider
	default:
		return nil, rpgerr.Newf(rpgerr.EmbeddingError, "unknown embedding provider %q", cfg.Provider)
	}
}

// GeminiProvider embeds via Google's Gemini embedding API.
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
}

const (
	embedBatchSize  = 50
	embedBatchDelay = 700 * time.Millisecond
	embedRetryDelay = 6 * time.Second
	embedMaxRetries = 5
)

func newGeminiProvider(ctx context.Context, apiKey, model string, dim int) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, rpgerr.Wrap(rpgerr.EmbeddingError, "failed to create genai client", err)
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &GeminiProvider{client: client, model: model, dimension: dim}, nil
}

// Embed generates one vector per input text, batching requests and backing
// off on rate limits.
func (g *GeminiProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var results [][]float32

	var cfg *genai.EmbedContentConfig
	if g.dimension > 0 {
		dim := int32(g.dimension)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dim}
	}

	for i := 0; i < len(texts); i += embedBatchSize {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(embedBatchDelay):
			}
		}

		end := i + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		var res *genai.EmbedContentResponse
		var err error
		for attempt := 0; attempt <= embedMaxRetries; attempt++ {
			res, err = g.client.Models.EmbedContent(ctx, g.model, contents, cfg)
			if err == nil {
				break
			}
			if !isRateLimitError(err) || attempt == embedMaxRetries {
				return nil, rpgerr.Wrap(rpgerr.EmbeddingError, "failed to embed batch", err)
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(embedRetryDelay):
			}
		}

		if len(res.Embeddings) != len(batch) {
			return nil, rpgerr.Newf(rpgerr.EmbeddingError,
				"embedding count mismatch: got %d, expected %d", len(res.Embeddings), len(batch))
		}
		for _, emb := range res.Embeddings {
			results = append(results, normalizeL2(emb.Values))
		}
	}
	return results, nil
}

// Dimension returns the configured output dimensionality.
func (g *GeminiProvider) Dimension() int { return g.dimension }

// Name identifies the provider in logs and rpg_info.
func (g *GeminiProvider) Name() string { return "gemini" }

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "RESOURCE_EXHAUSTED") || strings.Contains(s, "quota")
}

// normalizeL2 scales a vector to unit length so dot product equals cosine.
func normalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}
