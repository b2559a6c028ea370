package embedder

import (
	"context"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// modelMapping maps the friendly model names this system accepts to
// fastembed-go's model constants.
var modelMapping = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

// modelDimensions maps fastembed-go models to their embedding
// dimensions.
var modelDimensions = map[fastembed.EmbeddingModel]int{
	fastembed.BGESmallENV15: 384,
	fastembed.BGESmallEN:    384,
	fastembed.BGEBaseENV15:  768,
	fastembed.BGEBaseEN:     768,
	fastembed.BGESmallZH:    512,
	fastembed.AllMiniLML6V2: 384,
}

// FEmbedConfig configures the local ONNX-backed embedder provider.
type FEmbedConfig struct {
	// CacheDir is the directory fastembed-go caches downloaded model
	// files in. Defaults to "./local_cache".
	CacheDir string
	// MaxLength is the maximum input sequence length. Defaults to 512.
	MaxLength int
	// ProviderID overrides the registry id; defaults to "fembed".
	ProviderID string
}

// FEmbed is an embedder provider backed by local ONNX models loaded
// through fastembed-go. Models are loaded lazily on first use and kept
// resident for the life of the provider.
type FEmbed struct {
	cfg FEmbedConfig
	id  string

	mu     sync.Mutex
	loaded map[string]*fastembed.FlagEmbedding
}

// NewFEmbed builds a local-model embedder provider from cfg.
func NewFEmbed(cfg FEmbedConfig) *FEmbed {
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(".", "local_cache")
	}
	if cfg.MaxLength == 0 {
		cfg.MaxLength = 512
	}
	id := cfg.ProviderID
	if id == "" {
		id = "fembed"
	}
	return &FEmbed{cfg: cfg, id: id, loaded: make(map[string]*fastembed.FlagEmbedding)}
}

// ID implements Provider.
func (f *FEmbed) ID() string { return f.id }

// ListModels implements Provider.
func (f *FEmbed) ListModels() []Model {
	out := make([]Model, 0, len(modelMapping))
	for name, model := range modelMapping {
		out = append(out, Model{Name: name, Dimension: modelDimensions[model]})
	}
	return out
}

// Dimension implements Provider.
func (f *FEmbed) Dimension(model string) (int, bool) {
	fem, ok := modelMapping[model]
	if !ok {
		return 0, false
	}
	dim, ok := modelDimensions[fem]
	return dim, ok
}

func (f *FEmbed) get(model string) (*fastembed.FlagEmbedding, error) {
	fem, ok := modelMapping[model]
	if !ok {
		return nil, apperr.New(apperr.InvalidEmbeddingModel, "fembed: unsupported model %q", model)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if flag, ok := f.loaded[model]; ok {
		return flag, nil
	}

	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                fem,
		CacheDir:             f.cfg.CacheDir,
		MaxLength:            f.cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "loading fastembed model %q", model)
	}
	f.loaded[model] = flag
	return flag, nil
}

// Embed implements Provider. Uses fastembed-go's passage embedding,
// which prepends the "passage: " prefix BGE-family models expect for
// indexed content.
func (f *FEmbed) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, apperr.New(apperr.Validation, "fembed: texts must not be empty")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	flag, err := f.get(model)
	if err != nil {
		return nil, err
	}

	vectors, err := flag.PassageEmbed(texts, 256)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "embedding %d texts with %q", len(texts), model)
	}
	return vectors, nil
}

// Close releases every loaded model's resources.
func (f *FEmbed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for name, flag := range f.loaded {
		if err := flag.Destroy(); err != nil && firstErr == nil {
			firstErr = apperr.Wrap(apperr.Provider, err, "closing fastembed model %q", name)
		}
	}
	f.loaded = make(map[string]*fastembed.FlagEmbedding)
	return firstErr
}
