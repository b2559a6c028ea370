// Package embedding implements the Embedding Service: generate, store,
// count and delete embeddings, and produce the append-only embedding
// reports described by the system's embedding lifecycle contract
// (E1-E3).
package embedding

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/cache"
	"github.com/vectorkit/vectorkit/internal/embedder"
	"github.com/vectorkit/vectorkit/internal/logging"
	"github.com/vectorkit/vectorkit/internal/provider"
	"github.com/vectorkit/vectorkit/internal/repository"
	"github.com/vectorkit/vectorkit/internal/vectordb"
)

// Service implements the embedding lifecycle.
type Service struct {
	repo      *repository.Repository
	vectorDBs *provider.Registry[vectordb.Provider]
	embedders *provider.Registry[embedder.Provider]
	cache     cache.Cache // nil disables the embedding cache
	logger    *logging.Logger
}

// New constructs an embedding Service. cache may be nil, disabling the
// embedding cache consultation step.
func New(
	repo *repository.Repository,
	vectorDBReg *provider.Registry[vectordb.Provider],
	embedderReg *provider.Registry[embedder.Provider],
	c cache.Cache,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{repo: repo, vectorDBs: vectorDBReg, embedders: embedderReg, cache: c, logger: logger}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	DocumentID   uuid.UUID
	CollectionID uuid.UUID
	Chunks       []string
}

// Create embeds a document's chunks into a collection, recording both
// the presence row and an addition report, per E1.
func (s *Service) Create(ctx context.Context, req CreateRequest) (repository.Embedding, repository.Report, error) {
	started := time.Now()
	ctx = logging.WithDocumentID(ctx, req.DocumentID.String())
	ctx = logging.WithCollectionID(ctx, req.CollectionID.String())

	coll, err := s.repo.GetCollectionByID(ctx, nil, req.CollectionID)
	if err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}

	existing, err := s.repo.ListEmbeddingsByDocument(ctx, nil, req.DocumentID)
	if err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}
	for _, e := range existing {
		if e.CollectionID == req.CollectionID {
			return repository.Embedding{}, repository.Report{}, apperr.New(apperr.AlreadyExists, "document %s already embedded into collection %s", req.DocumentID, req.CollectionID)
		}
	}

	doc, err := s.repo.GetDocumentByID(ctx, nil, req.DocumentID)
	if err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}

	vdb, err := s.vectorDBs.Get(coll.VectorDBID)
	if err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}
	emb, err := s.embedders.Get(coll.EmbedderID)
	if err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}
	if _, ok := emb.Dimension(coll.Model); !ok {
		return repository.Embedding{}, repository.Report{}, apperr.New(apperr.InvalidEmbeddingModel, "embedder %q no longer serves model %q for collection %q", coll.EmbedderID, coll.Model, coll.Name)
	}

	_, vectors, tokensUsed, cacheHit, err := s.resolveVectors(ctx, coll, doc, emb, req.Chunks)
	if err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}
	if len(vectors) != len(req.Chunks) {
		return repository.Embedding{}, repository.Report{}, apperr.New(apperr.InvalidEmbeddingModel, "embedder returned %d vectors for %d chunks", len(vectors), len(req.Chunks))
	}

	points := make([]vectordb.Point, len(req.Chunks))
	for i, text := range req.Chunks {
		points[i] = vectordb.Point{ID: uuid.New(), Vector: vectors[i], DocumentID: req.DocumentID, Content: text}
	}
	if err := vdb.Insert(ctx, coll.Name, points); err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}

	row := repository.Embedding{ID: uuid.New(), DocumentID: req.DocumentID, CollectionID: req.CollectionID}
	if err := s.repo.InsertEmbedding(ctx, nil, row); err != nil {
		if derr := vdb.DeleteByDocument(ctx, coll.Name, req.DocumentID); derr != nil {
			s.logger.Warn(ctx, "failed to compensate for lost embedding race", zap.String("collection", coll.Name), zap.Error(derr))
		}
		return repository.Embedding{}, repository.Report{}, err
	}

	tokens := 0
	if tokensUsed != nil {
		tokens = *tokensUsed
	}
	report := repository.Report{
		ID: uuid.New(), Kind: repository.ReportAddition,
		Collection: coll.Name, Document: doc.Name,
		EmbedderID: coll.EmbedderID, Model: coll.Model, VectorDBID: coll.VectorDBID,
		TotalVectors: len(vectors), TokensUsed: tokens, CacheHit: cacheHit,
		StartedAt: started, FinishedAt: time.Now(),
	}
	if err := s.repo.InsertReport(ctx, nil, report); err != nil {
		return repository.Embedding{}, repository.Report{}, err
	}

	s.logger.Info(ctx, "created embedding", zap.String("collection", coll.Name), zap.Bool("cache_hit", cacheHit))
	return row, report, nil
}

// resolveVectors consults the embedding cache (if configured) before
// falling back to the embedder, per spec's cache-key derivation over
// (model, document hash, chunk config, parse config).
func (s *Service) resolveVectors(ctx context.Context, coll repository.Collection, doc repository.Document, emb embedder.Provider, chunks []string) (key string, vectors [][]float32, tokensUsed *int, cacheHit bool, err error) {
	if s.cache == nil {
		vectors, err = emb.Embed(ctx, coll.Model, chunks)
		return "", vectors, nil, false, err
	}

	parseCfg, err := s.repo.GetParseConfig(ctx, nil, doc.ID)
	if err != nil {
		return "", nil, nil, false, err
	}
	chunkCfg, err := s.repo.GetChunkConfig(ctx, nil, doc.ID)
	if err != nil {
		return "", nil, nil, false, err
	}
	parseJSON, err := json.Marshal(parseCfg)
	if err != nil {
		return "", nil, nil, false, apperr.Wrap(apperr.Validation, err, "serializing parse config for cache key")
	}
	chunkJSON, err := json.Marshal(chunkCfg)
	if err != nil {
		return "", nil, nil, false, apperr.Wrap(apperr.Validation, err, "serializing chunk config for cache key")
	}

	key, err = cache.Key(coll.Model, doc.Hash, string(chunkJSON), string(parseJSON))
	if err != nil {
		return "", nil, nil, false, err
	}

	entry, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", nil, nil, false, err
	}
	if hit {
		return key, entry.Embeddings, entry.TokensUsed, true, nil
	}

	vectors, err = emb.Embed(ctx, coll.Model, chunks)
	if err != nil {
		return "", nil, nil, false, err
	}
	if err := s.cache.Set(ctx, key, cache.Entry{Embeddings: vectors, Chunks: chunks}); err != nil {
		return "", nil, nil, false, err
	}
	return key, vectors, nil, false, nil
}

// DeleteResult reports how many rows and vectors a Delete removed.
type DeleteResult struct {
	RowsDeleted    int
	VectorsDeleted int
}

// Delete removes a document's embedding from a single collection: its
// vectors, its presence row, and a removal report.
func (s *Service) Delete(ctx context.Context, collectionID, documentID uuid.UUID) (DeleteResult, repository.Report, error) {
	started := time.Now()
	ctx = logging.WithDocumentID(ctx, documentID.String())
	ctx = logging.WithCollectionID(ctx, collectionID.String())

	coll, err := s.repo.GetCollectionByID(ctx, nil, collectionID)
	if err != nil {
		return DeleteResult{}, repository.Report{}, err
	}
	vdb, err := s.vectorDBs.Get(coll.VectorDBID)
	if err != nil {
		return DeleteResult{}, repository.Report{}, err
	}

	count, err := vdb.CountByDocument(ctx, coll.Name, documentID)
	if err != nil {
		return DeleteResult{}, repository.Report{}, err
	}
	if err := vdb.DeleteByDocument(ctx, coll.Name, documentID); err != nil {
		return DeleteResult{}, repository.Report{}, err
	}

	docName := ""
	if doc, err := s.repo.GetDocumentByID(ctx, nil, documentID); err == nil {
		docName = doc.Name
	}

	if err := s.repo.DeleteEmbedding(ctx, nil, documentID, collectionID); err != nil {
		return DeleteResult{}, repository.Report{}, err
	}

	report := repository.Report{
		ID: uuid.New(), Kind: repository.ReportRemoval,
		Collection: coll.Name, Document: docName,
		StartedAt: started, FinishedAt: time.Now(),
	}
	if err := s.repo.InsertReport(ctx, nil, report); err != nil {
		return DeleteResult{}, repository.Report{}, err
	}

	s.logger.Info(ctx, "deleted embedding", zap.String("collection", coll.Name), zap.Int("vectors_deleted", count))
	return DeleteResult{RowsDeleted: 1, VectorsDeleted: count}, report, nil
}

// Count delegates to the vector DB to count a document's vectors in a
// collection.
func (s *Service) Count(ctx context.Context, collectionID, documentID uuid.UUID) (int, error) {
	coll, err := s.repo.GetCollectionByID(ctx, nil, collectionID)
	if err != nil {
		return 0, err
	}
	vdb, err := s.vectorDBs.Get(coll.VectorDBID)
	if err != nil {
		return 0, err
	}
	return vdb.CountByDocument(ctx, coll.Name, documentID)
}

// ListModels delegates to the named embedder provider.
func (s *Service) ListModels(embedderID string) ([]embedder.Model, error) {
	emb, err := s.embedders.Get(embedderID)
	if err != nil {
		return nil, err
	}
	return emb.ListModels(), nil
}
