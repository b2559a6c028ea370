// Package collection implements the Collection Service: create,
// delete, search, and sync-with-vector-DB, described by the system's
// collection lifecycle contract (C1-C2).
package collection

import (
	"context"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/embedder"
	"github.com/vectorkit/vectorkit/internal/logging"
	"github.com/vectorkit/vectorkit/internal/provider"
	"github.com/vectorkit/vectorkit/internal/repository"
	"github.com/vectorkit/vectorkit/internal/vectordb"
)

// namePattern enforces the naming rule: starts with an ASCII uppercase
// letter, the rest alphanumeric or underscore.
var namePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*$`)

// ValidateName checks a collection name against the system's naming
// rule.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return apperr.New(apperr.Validation, "collection name %q must start with an uppercase ASCII letter and contain only alphanumerics or underscores", name)
	}
	return nil
}

// Service implements the collection lifecycle.
type Service struct {
	repo      *repository.Repository
	vectorDBs *provider.Registry[vectordb.Provider]
	embedders *provider.Registry[embedder.Provider]
	logger    *logging.Logger
}

// New constructs a collection Service.
func New(
	repo *repository.Repository,
	vectorDBReg *provider.Registry[vectordb.Provider],
	embedderReg *provider.Registry[embedder.Provider],
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{repo: repo, vectorDBs: vectorDBReg, embedders: embedderReg, logger: logger}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	Name             string
	Model            string
	EmbedderID       string
	VectorProviderID string
	Groups           []string
}

// Create validates, registers, and provisions a new collection, per C1.
func (s *Service) Create(ctx context.Context, req CreateRequest) (repository.Collection, error) {
	if err := ValidateName(req.Name); err != nil {
		return repository.Collection{}, err
	}

	emb, err := s.embedders.Get(req.EmbedderID)
	if err != nil {
		return repository.Collection{}, err
	}
	size, ok := emb.Dimension(req.Model)
	if !ok {
		return repository.Collection{}, apperr.New(apperr.InvalidEmbeddingModel, "embedder %q does not serve model %q", req.EmbedderID, req.Model)
	}

	vdb, err := s.vectorDBs.Get(req.VectorProviderID)
	if err != nil {
		return repository.Collection{}, err
	}

	coll := repository.Collection{
		ID:         uuid.New(),
		Name:       req.Name,
		Model:      req.Model,
		EmbedderID: req.EmbedderID,
		VectorDBID: req.VectorProviderID,
		Groups:     req.Groups,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return repository.Collection{}, err
	}
	defer func() { _ = tx.Abort(ctx) }()

	if err := s.repo.InsertCollection(ctx, tx, coll); err != nil {
		return repository.Collection{}, err
	}

	identity := vectordb.Identity{
		CollectionID: coll.ID, Name: coll.Name, Size: size,
		EmbedderID: coll.EmbedderID, Model: coll.Model, Groups: coll.Groups,
	}
	if err := vdb.CreateCollection(ctx, identity); err != nil {
		return repository.Collection{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.Collection{}, err
	}

	s.logger.Info(logging.WithCollectionID(ctx, coll.ID.String()), "created collection", zap.String("name", coll.Name))
	return coll, nil
}

// Delete drops the vector-DB collection, then the metadata row. Order
// matters: a failed vector-DB drop leaves metadata in place as a
// consistent retry point.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	coll, err := s.repo.GetCollectionByID(ctx, nil, id)
	if err != nil {
		return err
	}

	vdb, err := s.vectorDBs.Get(coll.VectorDBID)
	if err != nil {
		return err
	}
	if err := vdb.DeleteCollection(ctx, coll.Name); err != nil {
		return err
	}

	return s.repo.DeleteCollection(ctx, nil, id)
}

// SearchRequest is the input to Search.
type SearchRequest struct {
	Query        string
	CollectionID uuid.UUID
	Limit        int
	MaxDistance  *float64
}

// SearchHit is one ranked result from Search.
type SearchHit struct {
	Content  string
	Distance float64
}

const defaultSearchLimit = 10

// Search embeds the query with the collection's embedder and model and
// returns the nearest stored chunks.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]SearchHit, error) {
	coll, err := s.repo.GetCollectionByID(ctx, nil, req.CollectionID)
	if err != nil {
		return nil, err
	}

	emb, err := s.embedders.Get(coll.EmbedderID)
	if err != nil {
		return nil, err
	}
	vectors, err := emb.Embed(ctx, coll.Model, []string{req.Query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, apperr.New(apperr.InvalidEmbeddingModel, "embedder returned %d vectors for 1 query", len(vectors))
	}

	vdb, err := s.vectorDBs.Get(coll.VectorDBID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	results, err := vdb.Query(ctx, coll.Name, vectors[0], limit, req.MaxDistance)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, len(results))
	for i, r := range results {
		hits[i] = SearchHit{Content: r.Content, Distance: r.Distance}
	}
	return hits, nil
}

// Sync reconciles metadata rows against every registered vector DB:
// rows whose named collection no longer exists are deleted, and
// collections the vector DB holds but the repository doesn't know
// about are inserted from their identity row. Per-collection errors
// are logged and do not stop the sync.
func (s *Service) Sync(ctx context.Context) error {
	for _, providerID := range s.vectorDBs.ListIDs() {
		vdb, err := s.vectorDBs.Get(providerID)
		if err != nil {
			continue
		}
		s.syncProvider(ctx, providerID, vdb)
	}
	return nil
}

func (s *Service) syncProvider(ctx context.Context, providerID string, vdb vectordb.Provider) {
	rows, err := s.repo.ListCollections(ctx, nil, repository.Pagination{PerPage: 1000, Page: 1}, repository.Sort{Column: "id", Direction: repository.Asc})
	if err != nil {
		s.logger.Warn(ctx, "sync: listing collections failed", zap.String("vector_db_id", providerID), zap.Error(err))
		return
	}

	known := make(map[string]bool, len(rows))
	for _, row := range rows {
		if row.VectorDBID != providerID {
			continue
		}
		known[row.Name] = true
		rowCtx := logging.WithCollectionID(ctx, row.ID.String())

		exists, err := vdb.CollectionExists(ctx, row.Name)
		if err != nil {
			s.logger.Warn(rowCtx, "sync: checking collection existence failed", zap.String("collection", row.Name), zap.Error(err))
			continue
		}
		if !exists {
			if err := s.repo.DeleteCollection(ctx, nil, row.ID); err != nil {
				s.logger.Warn(rowCtx, "sync: removing stale collection row failed", zap.String("collection", row.Name), zap.Error(err))
			} else {
				s.logger.Info(rowCtx, "sync: removed stale collection row", zap.String("collection", row.Name))
			}
		}
	}

	identities, err := vdb.ListCollections(ctx)
	if err != nil {
		s.logger.Warn(ctx, "sync: listing vector db collections failed", zap.String("vector_db_id", providerID), zap.Error(err))
		return
	}
	for _, identity := range identities {
		if known[identity.Name] {
			continue
		}
		coll := repository.Collection{
			ID: identity.CollectionID, Name: identity.Name, Model: identity.Model,
			EmbedderID: identity.EmbedderID, VectorDBID: providerID, Groups: identity.Groups,
		}
		identCtx := logging.WithCollectionID(ctx, identity.CollectionID.String())
		if err := s.repo.InsertCollection(ctx, nil, coll); err != nil {
			s.logger.Warn(identCtx, "sync: inserting discovered collection failed", zap.String("collection", identity.Name), zap.Error(err))
			continue
		}
		s.logger.Info(identCtx, "sync: discovered untracked collection", zap.String("collection", identity.Name))
	}
}
