package embedding

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/cache"
	"github.com/vectorkit/vectorkit/internal/collection"
	"github.com/vectorkit/vectorkit/internal/document"
	"github.com/vectorkit/vectorkit/internal/embedder"
	"github.com/vectorkit/vectorkit/internal/parser"
	"github.com/vectorkit/vectorkit/internal/provider"
	"github.com/vectorkit/vectorkit/internal/repository"
	"github.com/vectorkit/vectorkit/internal/storage"
	"github.com/vectorkit/vectorkit/internal/vectordb"
)

// stubEmbedder is a minimal embedder.Provider producing deterministic
// vectors so equality on cache hits can be asserted.
type stubEmbedder struct {
	id     string
	models map[string]int
	calls  int
}

func (s *stubEmbedder) ID() string { return s.id }

func (s *stubEmbedder) ListModels() []embedder.Model {
	out := make([]embedder.Model, 0, len(s.models))
	for name, dim := range s.models {
		out = append(out, embedder.Model{Name: name, Dimension: dim})
	}
	return out
}

func (s *stubEmbedder) Dimension(model string) (int, bool) {
	d, ok := s.models[model]
	return d, ok
}

func (s *stubEmbedder) Embed(_ context.Context, model string, texts []string) ([][]float32, error) {
	s.calls++
	dim, ok := s.models[model]
	if !ok {
		return nil, apperr.New(apperr.InvalidEmbeddingModel, "unknown model %q", model)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, dim)
		v[0] = float32(len(text))
		out[i] = v
	}
	return out, nil
}

type fixture struct {
	repo     *repository.Repository
	docSvc   *document.Service
	collSvc  *collection.Service
	embSvc   *Service
	embedder *stubEmbedder
}

func newFixture(t *testing.T, c cache.Cache) fixture {
	t.Helper()

	dsn := os.Getenv("VECTORKIT_TEST_DSN")
	if dsn == "" {
		t.Skip("VECTORKIT_TEST_DSN not set, skipping live database test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := repository.New(pool)
	require.NoError(t, repo.Bootstrap(ctx))

	fs, err := storage.NewFS(t.TempDir())
	require.NoError(t, err)
	storageReg := provider.NewRegistry[storage.Provider]()
	require.NoError(t, storageReg.Register(fs))

	chromemDB, err := vectordb.NewChromem(vectordb.ChromemConfig{})
	require.NoError(t, err)
	vectorReg := provider.NewRegistry[vectordb.Provider]()
	require.NoError(t, vectorReg.Register(chromemDB))

	emb := &stubEmbedder{id: "stub", models: map[string]int{"stub-model": 4}}
	embedderReg := provider.NewRegistry[embedder.Provider]()
	require.NoError(t, embedderReg.Register(emb))

	facade := parser.New()
	docSvc := document.New(repo, storageReg, vectorReg, embedderReg, facade, "fs", nil)
	collSvc := collection.New(repo, vectorReg, embedderReg, nil)
	embSvc := New(repo, vectorReg, embedderReg, c, nil)

	return fixture{repo: repo, docSvc: docSvc, collSvc: collSvc, embSvc: embSvc, embedder: emb}
}

func TestService_CreateDeleteCountLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	doc, err := f.docSvc.Upload(ctx, document.UploadRequest{
		Name: "piece", Ext: repository.ExtTXT, Data: []byte("some content to embed"),
	})
	require.NoError(t, err)

	coll, err := f.collSvc.Create(ctx, collection.CreateRequest{
		Name: "Embeds", Model: "stub-model", EmbedderID: "stub", VectorProviderID: "chromem",
	})
	require.NoError(t, err)

	chunks := []string{"chunk one", "chunk two"}
	row, report, err := f.embSvc.Create(ctx, CreateRequest{DocumentID: doc.ID, CollectionID: coll.ID, Chunks: chunks})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, row.DocumentID)
	assert.Equal(t, coll.ID, row.CollectionID)
	assert.Equal(t, repository.ReportAddition, report.Kind)
	assert.Equal(t, len(chunks), report.TotalVectors)

	_, _, err = f.embSvc.Create(ctx, CreateRequest{DocumentID: doc.ID, CollectionID: coll.ID, Chunks: chunks})
	require.Error(t, err)
	code, ok := apperr.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, apperr.AlreadyExists, code)

	count, err := f.embSvc.Count(ctx, coll.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), count)

	result, delReport, err := f.embSvc.Delete(ctx, coll.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), result.VectorsDeleted)
	assert.Equal(t, repository.ReportRemoval, delReport.Kind)

	count, err = f.embSvc.Count(ctx, coll.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, f.collSvc.Delete(ctx, coll.ID))
	require.NoError(t, f.docSvc.Delete(ctx, doc.ID))
}

func TestService_Create_UnknownCollection(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, _, err := f.embSvc.Create(ctx, CreateRequest{DocumentID: uuid.New(), CollectionID: uuid.New(), Chunks: []string{"x"}})
	require.Error(t, err)
}

func TestService_ListModels(t *testing.T) {
	f := newFixture(t, nil)

	models, err := f.embSvc.ListModels("stub")
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "stub-model", models[0].Name)

	_, err = f.embSvc.ListModels("nonexistent")
	require.Error(t, err)
}

// memCache is a minimal in-process cache.Cache for exercising the
// cache-hit path without a live Redis instance.
type memCache struct {
	entries map[string]cache.Entry
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]cache.Entry)} }

func (m *memCache) Get(_ context.Context, key string) (*cache.Entry, bool, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (m *memCache) Set(_ context.Context, key string, entry cache.Entry) error {
	m.entries[key] = entry
	return nil
}

func (m *memCache) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.entries[key]
	return ok, nil
}

func (m *memCache) FlushDB(_ context.Context) error {
	m.entries = make(map[string]cache.Entry)
	return nil
}

func TestService_Create_CacheHit(t *testing.T) {
	f := newFixture(t, newMemCache())
	ctx := context.Background()

	doc, err := f.docSvc.Upload(ctx, document.UploadRequest{
		Name: "cached", Ext: repository.ExtTXT, Data: []byte("content for cache test"),
	})
	require.NoError(t, err)

	collA, err := f.collSvc.Create(ctx, collection.CreateRequest{
		Name: "CacheA", Model: "stub-model", EmbedderID: "stub", VectorProviderID: "chromem",
	})
	require.NoError(t, err)
	collB, err := f.collSvc.Create(ctx, collection.CreateRequest{
		Name: "CacheB", Model: "stub-model", EmbedderID: "stub", VectorProviderID: "chromem",
	})
	require.NoError(t, err)

	chunks := []string{"same chunk text"}

	_, _, err = f.embSvc.Create(ctx, CreateRequest{DocumentID: doc.ID, CollectionID: collA.ID, Chunks: chunks})
	require.NoError(t, err)
	callsAfterFirst := f.embedder.calls

	_, _, err = f.embSvc.Create(ctx, CreateRequest{DocumentID: doc.ID, CollectionID: collB.ID, Chunks: chunks})
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, f.embedder.calls, "second create should hit the cache instead of calling Embed again")

	_, _, err = f.embSvc.Delete(ctx, collA.ID, doc.ID)
	require.NoError(t, err)
	_, _, err = f.embSvc.Delete(ctx, collB.ID, doc.ID)
	require.NoError(t, err)
	require.NoError(t, f.collSvc.Delete(ctx, collA.ID))
	require.NoError(t, f.collSvc.Delete(ctx, collB.ID))
	require.NoError(t, f.docSvc.Delete(ctx, doc.ID))
}
