// Package embedder implements the Text Embedder capability: enumerate
// models, report vector dimensionality, and embed a batch of strings
// with a chosen model. Concrete providers are fembed.go (local ONNX
// models via fastembed-go) and openai.go (an OpenAI-compatible HTTP
// embeddings API via langchaingo).
package embedder

import "context"

// Model describes one embedding model a provider can serve.
type Model struct {
	Name      string
	Dimension int
}

// Provider is the capability interface every embedder backend
// implements.
type Provider interface {
	// ID returns the provider's self-reported registry key, e.g.
	// "fembed" or "openai".
	ID() string

	// ListModels enumerates the models this provider can serve.
	ListModels() []Model

	// Dimension reports the vector size for model, or ok=false if the
	// model is unknown to this provider.
	Dimension(model string) (size int, ok bool)

	// Embed embeds a batch of strings with the given model, returning
	// one vector per input string in the same order.
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}
