package chunk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

func TestChunk_SlidingDispatch(t *testing.T) {
	chunks, err := Chunk(context.Background(), DefaultSlidingConfig(), nil, "some short document")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "some short document", chunks[0])
}

func TestChunk_UnknownKind(t *testing.T) {
	_, err := Chunk(context.Background(), Config{Kind: "bogus"}, nil, "text")
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ChunkerConfig, code)
}

func TestChunk_EmptyResultIsRejected(t *testing.T) {
	cfg := Config{Kind: KindSliding, Sliding: &SlidingConfig{Size: 10, Overlap: 0}}
	_, err := Chunk(context.Background(), cfg, nil, "   \n\t  ")
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Chunks, code)
}

func TestChunk_SemanticRequiresEmbedder(t *testing.T) {
	cfg := Config{Kind: KindSemantic, Semantic: &SemanticConfig{Size: 1, Threshold: 0.1}}
	_, err := Chunk(context.Background(), cfg, nil, "Some text. More text.")
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidEmbeddingModel, code)
}

func TestChunk_MissingConfigForKind(t *testing.T) {
	_, err := Chunk(context.Background(), Config{Kind: KindSnapping}, nil, "text")
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.ChunkerConfig, code)
}
