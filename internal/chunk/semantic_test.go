package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a fixed vector per distinct input group so tests
// can control exactly which groups look "similar" under cosine distance.
type stubEmbedder struct {
	vectors map[string][]float64
}

func (e stubEmbedder) Embed(_ context.Context, _ string, inputs []string) ([][]float64, error) {
	out := make([][]float64, len(inputs))
	for i, in := range inputs {
		v, ok := e.vectors[in]
		if !ok {
			v = []float64{1, 0}
		}
		out[i] = v
	}
	return out, nil
}

func TestSemantic_MergesSimilarGroupsByteThreshold(t *testing.T) {
	input := "Cats are great. Dogs are great too. The stock market fell today."
	w := newSemantic(SemanticConfig{
		Size: 1, Threshold: 0.05, Distance: DistanceCosine, Delimiter: '.',
	})

	embedder := stubEmbedder{vectors: map[string][]float64{
		"Cats are great.":               {1, 0},
		" Dogs are great too.":          {1, 0.01},
		" The stock market fell today.": {0, 1},
	}}

	chunks, err := w.Chunk(context.Background(), embedder, input)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Cats are great. Dogs are great too.", chunks[0])
	assert.Equal(t, " The stock market fell today.", chunks[1])
}

func TestSemantic_EmptyInput(t *testing.T) {
	w := newSemantic(SemanticConfig{Size: 100, Threshold: 0.1})
	chunks, err := w.Chunk(context.Background(), stubEmbedder{}, "   ")
	require.NoError(t, err)
	assert.Nil(t, chunks)
}

func TestSemantic_SingleGroupSkipsEmbedding(t *testing.T) {
	w := newSemantic(SemanticConfig{Size: 1000, Threshold: 0.1})
	chunks, err := w.Chunk(context.Background(), nil, "One short sentence.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "One short sentence.", chunks[0])
}
