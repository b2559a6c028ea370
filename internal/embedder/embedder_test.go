package embedder

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

func TestFEmbed_Dimension(t *testing.T) {
	t.Parallel()

	f := NewFEmbed(FEmbedConfig{})
	assert.Equal(t, "fembed", f.ID())

	dim, ok := f.Dimension("BAAI/bge-small-en-v1.5")
	require.True(t, ok)
	assert.Equal(t, 384, dim)

	dim, ok = f.Dimension("BAAI/bge-base-en-v1.5")
	require.True(t, ok)
	assert.Equal(t, 768, dim)

	_, ok = f.Dimension("not-a-model")
	assert.False(t, ok)
}

func TestFEmbed_ListModels(t *testing.T) {
	t.Parallel()

	f := NewFEmbed(FEmbedConfig{})
	models := f.ListModels()
	assert.NotEmpty(t, models)

	var found bool
	for _, m := range models {
		if m.Name == "BAAI/bge-small-en-v1.5" {
			found = true
			assert.Equal(t, 384, m.Dimension)
		}
	}
	assert.True(t, found)
}

func TestFEmbed_EmbedRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	f := NewFEmbed(FEmbedConfig{})
	_, err := f.Embed(context.Background(), "BAAI/bge-small-en-v1.5", nil)
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.Validation, code)
}

func TestFEmbed_EmbedRejectsUnknownModel(t *testing.T) {
	t.Parallel()

	f := NewFEmbed(FEmbedConfig{})
	_, err := f.Embed(context.Background(), "not-a-model", []string{"hello"})
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidEmbeddingModel, code)
}

func TestFEmbed_EmbedGeneratesVectors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fastembed ONNX model load in short mode")
	}
	if _, err := os.Stat("/usr/lib/libonnxruntime.so"); os.IsNotExist(err) {
		if os.Getenv("ONNX_PATH") == "" {
			t.Skip("ONNX runtime not available")
		}
	}

	f := NewFEmbed(FEmbedConfig{CacheDir: t.TempDir()})
	defer f.Close()

	vectors, err := f.Embed(context.Background(), "BAAI/bge-small-en-v1.5", []string{"hello world"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Len(t, vectors[0], 384)
}

func TestOpenAI_RequiresBaseURL(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAI(OpenAIConfig{})
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidParameter, code)
}

func TestOpenAI_DimensionAndListModels(t *testing.T) {
	t.Parallel()

	o, err := NewOpenAI(OpenAIConfig{
		BaseURL: "https://api.openai.com/v1",
		Models:  []Model{{Name: "text-embedding-3-small", Dimension: 1536}},
	})
	require.NoError(t, err)
	assert.Equal(t, "openai", o.ID())

	dim, ok := o.Dimension("text-embedding-3-small")
	require.True(t, ok)
	assert.Equal(t, 1536, dim)

	_, ok = o.Dimension("unknown")
	assert.False(t, ok)

	assert.Len(t, o.ListModels(), 1)
}

func TestOpenAI_EmbedRejectsUnknownModel(t *testing.T) {
	t.Parallel()

	o, err := NewOpenAI(OpenAIConfig{BaseURL: "https://api.openai.com/v1"})
	require.NoError(t, err)

	_, err = o.Embed(context.Background(), "unknown-model", []string{"hi"})
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.InvalidEmbeddingModel, code)
}
