package vectordb

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChromem(t *testing.T) *Chromem {
	t.Helper()
	c, err := NewChromem(ChromemConfig{})
	require.NoError(t, err)
	return c
}

func TestChromem_CreateCollectionWritesIdentityRow(t *testing.T) {
	t.Parallel()
	c := newTestChromem(t)
	ctx := context.Background()

	identity := Identity{
		CollectionID: uuid.New(),
		Name:         "Docs",
		Size:         4,
		EmbedderID:   "fembed",
		Model:        "bge-small-en",
		Groups:       []string{"eng", "support"},
	}
	require.NoError(t, c.CreateCollection(ctx, identity))

	exists, err := c.CollectionExists(ctx, "Docs")
	require.NoError(t, err)
	assert.True(t, exists)

	all, err := c.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, identity.CollectionID, all[0].CollectionID)
	assert.Equal(t, identity.Name, all[0].Name)
	assert.Equal(t, identity.Size, all[0].Size)
	assert.Equal(t, identity.EmbedderID, all[0].EmbedderID)
	assert.Equal(t, identity.Model, all[0].Model)
	assert.ElementsMatch(t, identity.Groups, all[0].Groups)
}

func TestChromem_InsertAndQuery(t *testing.T) {
	t.Parallel()
	c := newTestChromem(t)
	ctx := context.Background()

	identity := Identity{CollectionID: uuid.New(), Name: "Docs", Size: 3}
	require.NoError(t, c.CreateCollection(ctx, identity))

	docA, docB := uuid.New(), uuid.New()
	points := []Point{
		{ID: uuid.New(), Vector: []float32{1, 0, 0}, DocumentID: docA, Content: "alpha"},
		{ID: uuid.New(), Vector: []float32{0, 1, 0}, DocumentID: docA, Content: "alpha-2"},
		{ID: uuid.New(), Vector: []float32{0, 0, 1}, DocumentID: docB, Content: "beta"},
	}
	require.NoError(t, c.Insert(ctx, "Docs", points))

	results, err := c.Query(ctx, "Docs", []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "alpha", results[0].Content)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)

	for _, r := range results {
		assert.NotEqual(t, IdentityRowID, r.DocumentID)
	}
}

func TestChromem_CountAndDeleteByDocument(t *testing.T) {
	t.Parallel()
	c := newTestChromem(t)
	ctx := context.Background()

	identity := Identity{CollectionID: uuid.New(), Name: "Docs", Size: 2}
	require.NoError(t, c.CreateCollection(ctx, identity))

	docA, docB := uuid.New(), uuid.New()
	points := []Point{
		{ID: uuid.New(), Vector: []float32{1, 0}, DocumentID: docA, Content: "a1"},
		{ID: uuid.New(), Vector: []float32{0, 1}, DocumentID: docA, Content: "a2"},
		{ID: uuid.New(), Vector: []float32{1, 1}, DocumentID: docB, Content: "b1"},
	}
	require.NoError(t, c.Insert(ctx, "Docs", points))

	n, err := c.CountByDocument(ctx, "Docs", docA)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, c.DeleteByDocument(ctx, "Docs", docA))

	n, err = c.CountByDocument(ctx, "Docs", docA)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = c.CountByDocument(ctx, "Docs", docB)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChromem_DeleteCollection(t *testing.T) {
	t.Parallel()
	c := newTestChromem(t)
	ctx := context.Background()

	require.NoError(t, c.CreateCollection(ctx, Identity{CollectionID: uuid.New(), Name: "Temp", Size: 2}))
	require.NoError(t, c.DeleteCollection(ctx, "Temp"))

	exists, err := c.CollectionExists(ctx, "Temp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChromem_ID(t *testing.T) {
	t.Parallel()
	c := newTestChromem(t)
	assert.Equal(t, "chromem", c.ID())

	named, err := NewChromem(ChromemConfig{ProviderID: "chromem-local"})
	require.NoError(t, err)
	assert.Equal(t, "chromem-local", named.ID())
}
