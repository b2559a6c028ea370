// Package chunk implements the system's chunking engine: four pure
// string-to-string-sequence chunkers (sliding, snapping, semantic,
// splitline) used to split parsed document text into embeddable units.
//
// Every chunker rejects empty (or whitespace-only) input by returning
// an empty, nil-error slice; callers are expected to treat an empty
// result as an upstream error (see Chunk, which enforces this for the
// dispatch entry point).
package chunk

import (
	"context"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// Embedder is the minimal capability the semantic chunker needs from a
// text embedder: embed a batch of strings with a named model. It is a
// narrow view of the embedder.Provider capability so this package does
// not import it and stays a leaf with no dependency on the provider
// registry.
type Embedder interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float64, error)
}

// Kind discriminates the tagged Config variant.
type Kind string

const (
	KindSliding   Kind = "sliding"
	KindSnapping  Kind = "snapping"
	KindSemantic  Kind = "semantic"
	KindSplitline Kind = "splitline"
)

// Config is the discriminated union of chunker configurations persisted
// per-document. Exactly one of the embedded configs is meaningful,
// selected by Kind; this mirrors the tagged-variant approach described
// in the system's design notes (externally-tagged for stable JSON
// round-tripping, which the embedding cache key depends on).
type Config struct {
	Kind      Kind             `json:"kind"`
	Sliding   *SlidingConfig   `json:"sliding,omitempty"`
	Snapping  *SnappingConfig  `json:"snapping,omitempty"`
	Semantic  *SemanticConfig  `json:"semantic,omitempty"`
	Splitline *SplitlineConfig `json:"splitline,omitempty"`
}

// DefaultSlidingConfig returns the chunker's documented defaults.
func DefaultSlidingConfig() Config {
	return Config{Kind: KindSliding, Sliding: &SlidingConfig{Size: 1000, Overlap: 200}}
}

// DefaultSnappingConfig returns the chunker's documented defaults.
func DefaultSnappingConfig() Config {
	return Config{Kind: KindSnapping, Snapping: &SnappingConfig{
		Size: 1000, Overlap: 5, Delimiter: '.',
		SkipForward: DefaultSkipForward, SkipBack: DefaultSkipBack,
	}}
}

// Chunk dispatches to the chunker named by cfg.Kind and enforces the
// shared "chunks cannot be empty" contract (apperr.Chunks) described in
// spec §4.2.
func Chunk(ctx context.Context, cfg Config, embedder Embedder, input string) ([]string, error) {
	var (
		chunks []string
		err    error
	)

	switch cfg.Kind {
	case KindSliding:
		if cfg.Sliding == nil {
			return nil, apperr.New(apperr.ChunkerConfig, "missing sliding config")
		}
		chunks, err = SlidingWindow{Size: cfg.Sliding.Size, Overlap: cfg.Sliding.Overlap}.Chunk(input)
	case KindSnapping:
		if cfg.Snapping == nil {
			return nil, apperr.New(apperr.ChunkerConfig, "missing snapping config")
		}
		chunks, err = newSnapping(*cfg.Snapping).Chunk(input)
	case KindSemantic:
		if cfg.Semantic == nil {
			return nil, apperr.New(apperr.ChunkerConfig, "missing semantic config")
		}
		if embedder == nil {
			return nil, apperr.New(apperr.InvalidEmbeddingModel, "semantic chunking requires an embedder")
		}
		chunks, err = newSemantic(*cfg.Semantic).Chunk(ctx, embedder, input)
	case KindSplitline:
		if cfg.Splitline == nil {
			return nil, apperr.New(apperr.ChunkerConfig, "missing splitline config")
		}
		chunks, err = newSplitline(*cfg.Splitline).Chunk(input)
	default:
		return nil, apperr.New(apperr.ChunkerConfig, "unknown chunker kind %q", cfg.Kind)
	}

	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, apperr.New(apperr.Chunks, "chunks cannot be empty")
	}
	return chunks, nil
}
