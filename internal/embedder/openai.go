package embedder

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// OpenAIConfig configures an OpenAI-compatible HTTP embedder provider.
// The same config works against TEI (Text Embeddings Inference) servers
// since both speak the OpenAI embeddings wire format.
type OpenAIConfig struct {
	// BaseURL is the API base, e.g. https://api.openai.com/v1 or a TEI
	// server's address.
	BaseURL string
	// APIKey is sent as the bearer token. TEI servers that don't check
	// it can be given any placeholder value.
	APIKey string
	// Models lists the model names this provider instance is allowed
	// to serve, with their reported vector dimension.
	Models []Model
	// RequestsPerSecond caps outbound embedding calls. Zero disables
	// limiting.
	RequestsPerSecond float64
	// ProviderID overrides the registry id; defaults to "openai".
	ProviderID string
}

// OpenAI is an embedder provider backed by an OpenAI-compatible HTTP
// embeddings API, reached through langchaingo.
type OpenAI struct {
	id       string
	limiter  *rate.Limiter
	dims     map[string]int
	embedder func(model string) (embeddings.Embedder, error)
}

// NewOpenAI builds an OpenAI-compatible embedder provider from cfg.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.BaseURL == "" {
		return nil, apperr.New(apperr.InvalidParameter, "openai embedder: base URL required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	dims := make(map[string]int, len(cfg.Models))
	for _, m := range cfg.Models {
		dims[m.Name] = m.Dimension
	}

	id := cfg.ProviderID
	if id == "" {
		id = "openai"
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &OpenAI{
		id:      id,
		limiter: limiter,
		dims:    dims,
		embedder: func(model string) (embeddings.Embedder, error) {
			llm, err := openai.New(
				openai.WithBaseURL(cfg.BaseURL),
				openai.WithModel(model),
				openai.WithToken(apiKey),
			)
			if err != nil {
				return nil, err
			}
			return embeddings.NewEmbedder(llm)
		},
	}, nil
}

// ID implements Provider.
func (o *OpenAI) ID() string { return o.id }

// ListModels implements Provider.
func (o *OpenAI) ListModels() []Model {
	out := make([]Model, 0, len(o.dims))
	for name, dim := range o.dims {
		out = append(out, Model{Name: name, Dimension: dim})
	}
	return out
}

// Dimension implements Provider.
func (o *OpenAI) Dimension(model string) (int, bool) {
	dim, ok := o.dims[model]
	return dim, ok
}

// Embed implements Provider.
func (o *OpenAI) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperr.New(apperr.Validation, "openai embedder: texts must not be empty")
	}
	if _, ok := o.dims[model]; !ok {
		return nil, apperr.New(apperr.InvalidEmbeddingModel, "openai embedder: unsupported model %q", model)
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, apperr.Wrap(apperr.Provider, err, "rate limiting embed call")
		}
	}

	embedder, err := o.embedder(model)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "building client for model %q", model)
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "embedding %d texts with %q", len(texts), model)
	}
	return vectors, nil
}
