package chunk

import (
	"context"
	"math"
	"strings"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// DistanceFn names the vector distance used to decide whether two
// adjacent sentence groups are similar enough to merge into one
// chunk. Smaller distances mean more similar.
type DistanceFn string

const (
	DistanceCosine    DistanceFn = "cosine"
	DistanceEuclidean DistanceFn = "euclidean"
	DistanceDot       DistanceFn = "dot"
)

// SemanticConfig configures the embedding-clustered chunker. Size is
// the minimum byte length of a candidate sentence group before it is
// embedded and compared against its neighbor; Threshold is the
// maximum Distance at which two neighboring groups are merged into a
// single chunk.
type SemanticConfig struct {
	Size           int        `json:"size"`
	Threshold      float64    `json:"threshold"`
	Distance       DistanceFn `json:"distanceFn"`
	Delimiter      rune       `json:"delimiter"`
	SkipForward    []string   `json:"skipForward"`
	SkipBack       []string   `json:"skipBack"`
	EmbeddingModel string     `json:"embeddingModel"`
}

type semantic struct {
	cfg SemanticConfig
}

func newSemantic(cfg SemanticConfig) semantic {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = '.'
	}
	if cfg.Distance == "" {
		cfg.Distance = DistanceCosine
	}
	return semantic{cfg: cfg}
}

// Chunk splits input into sentences, groups consecutive sentences
// into candidates of at least Size bytes, embeds each candidate, and
// merges adjacent candidates whose embedding distance falls at or
// below Threshold, repeating until a pass produces no further merges.
func (s semantic) Chunk(ctx context.Context, embedder Embedder, input string) ([]string, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	if s.cfg.Size < 1 {
		return nil, apperr.New(apperr.ChunkerConfig, "size must be at least 1")
	}

	delimLen := runeLen(s.cfg.Delimiter)
	sentences := splitSentences(input, s.cfg.Delimiter, delimLen, s.cfg.SkipForward, s.cfg.SkipBack)
	if len(sentences) == 0 {
		return nil, nil
	}

	groups := groupSentences(sentences, s.cfg.Size)
	if len(groups) <= 1 {
		return groups, nil
	}

	for {
		embeddings, err := embedder.Embed(ctx, s.cfg.EmbeddingModel, groups)
		if err != nil {
			return nil, apperr.Wrap(apperr.InvalidEmbeddingModel, err, "embedding sentence groups")
		}
		if len(embeddings) != len(groups) {
			return nil, apperr.New(apperr.InvalidEmbeddingModel, "embedder returned %d vectors for %d inputs", len(embeddings), len(groups))
		}

		merged, mergedAny := mergePass(groups, embeddings, s.cfg.Distance, s.cfg.Threshold)
		if !mergedAny {
			return merged, nil
		}
		groups = merged
		if len(groups) <= 1 {
			return groups, nil
		}
	}
}

func runeLen(r rune) int {
	if r < 0x80 {
		return 1
	}
	if r < 0x800 {
		return 2
	}
	if r < 0x10000 {
		return 3
	}
	return 4
}

// groupSentences concatenates consecutive sentences into candidate
// chunks of at least minSize bytes each. The final group absorbs
// whatever sentences remain even if it falls short of minSize.
func groupSentences(sentences []string, minSize int) []string {
	var groups []string
	var current strings.Builder
	for _, sentence := range sentences {
		current.WriteString(sentence)
		if current.Len() >= minSize {
			groups = append(groups, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		groups = append(groups, current.String())
	}
	return groups
}

// mergePass does a single left-to-right scan, merging each group into
// its accumulating neighbor whenever the embedding distance to the
// previous group is at or below threshold. It reports whether any
// merge happened so the caller can decide whether to re-embed and
// scan again.
func mergePass(groups []string, embeddings [][]float64, fn DistanceFn, threshold float64) ([]string, bool) {
	merged := []string{groups[0]}
	mergedAny := false

	for i := 1; i < len(groups); i++ {
		d := distance(embeddings[i-1], embeddings[i], fn)
		if d <= threshold {
			merged[len(merged)-1] += groups[i]
			mergedAny = true
			continue
		}
		merged = append(merged, groups[i])
	}
	return merged, mergedAny
}

func distance(a, b []float64, fn DistanceFn) float64 {
	switch fn {
	case DistanceEuclidean:
		return euclidean(a, b)
	case DistanceDot:
		return -dot(a, b)
	default:
		return 1 - cosineSimilarity(a, b)
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(a []float64) float64 {
	return math.Sqrt(dot(a, a))
}

func cosineSimilarity(a, b []float64) float64 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot(a, b) / (na * nb)
}

func euclidean(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
