// Package document implements the Document Service: upload, delete,
// sync-with-storage, parse/chunk preview, and parser/chunker config
// updates described by the system's document lifecycle contract (D1-D3).
package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vectorkit/vectorkit/internal/apperr"
	"github.com/vectorkit/vectorkit/internal/chunk"
	"github.com/vectorkit/vectorkit/internal/embedder"
	"github.com/vectorkit/vectorkit/internal/logging"
	"github.com/vectorkit/vectorkit/internal/parser"
	"github.com/vectorkit/vectorkit/internal/provider"
	"github.com/vectorkit/vectorkit/internal/repository"
	"github.com/vectorkit/vectorkit/internal/storage"
	"github.com/vectorkit/vectorkit/internal/tokencount"
	"github.com/vectorkit/vectorkit/internal/vectordb"
)

// knownExtensions is the closed set of extensions the system accepts
// on upload.
var knownExtensions = map[repository.Extension]bool{
	repository.ExtTXT: true, repository.ExtMD: true, repository.ExtXML: true,
	repository.ExtJSON: true, repository.ExtCSV: true, repository.ExtPDF: true,
	repository.ExtDOCX: true, repository.ExtXLSX: true,
}

// Service implements the document lifecycle.
type Service struct {
	repo      *repository.Repository
	storage   *provider.Registry[storage.Provider]
	vectorDBs *provider.Registry[vectordb.Provider]
	embedders *provider.Registry[embedder.Provider]
	parser    *parser.Facade

	defaultStorageID string
	logger            *logging.Logger
}

// New constructs a document Service.
func New(
	repo *repository.Repository,
	storageReg *provider.Registry[storage.Provider],
	vectorDBReg *provider.Registry[vectordb.Provider],
	embedderReg *provider.Registry[embedder.Provider],
	facade *parser.Facade,
	defaultStorageID string,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		repo: repo, storage: storageReg, vectorDBs: vectorDBReg, embedders: embedderReg,
		parser: facade, defaultStorageID: defaultStorageID, logger: logger,
	}
}

// UploadRequest is the input to Upload.
type UploadRequest struct {
	Name  string
	Ext   repository.Extension
	Data  []byte
	Force bool
}

// Upload stores a new document's bytes and metadata, per D1/D2/D3.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (repository.Document, error) {
	if !knownExtensions[req.Ext] {
		return repository.Document{}, apperr.New(apperr.UnsupportedFileType, "unsupported extension %q", req.Ext)
	}

	hash := sha256Hex(req.Data)

	if _, err := s.repo.GetDocumentByHash(ctx, nil, hash); err == nil {
		return repository.Document{}, apperr.New(apperr.AlreadyExists, "document with this content already exists")
	} else if code, ok := apperr.CodeOf(err); !ok || code != apperr.DoesNotExist {
		return repository.Document{}, err
	}

	store, err := s.storage.Get(s.defaultStorageID)
	if err != nil {
		return repository.Document{}, err
	}
	path := store.Path(req.Name, string(req.Ext))

	existing, err := s.repo.GetDocumentByPathSource(ctx, nil, path, s.defaultStorageID)
	switch {
	case err == nil:
		if !req.Force {
			return repository.Document{}, apperr.New(apperr.AlreadyExists, "a document already exists at %q", path)
		}
		if err := store.Put(ctx, path, bytes.NewReader(req.Data)); err != nil {
			return repository.Document{}, apperr.Wrap(apperr.Provider, err, "overwriting document bytes")
		}
		if err := s.repo.UpdateDocumentPathHash(ctx, nil, existing.ID, path, hash); err != nil {
			return repository.Document{}, err
		}
		existing.Path, existing.Hash = path, hash
		return existing, nil
	default:
		if code, ok := apperr.CodeOf(err); !ok || code != apperr.DoesNotExist {
			return repository.Document{}, err
		}
	}

	if _, err := s.parser.Parse(ctx, string(req.Ext), req.Data, parser.DefaultGenericConfig()); err != nil {
		return repository.Document{}, err
	}

	doc := repository.Document{
		ID:     uuid.New(),
		Name:   req.Name,
		Path:   path,
		Ext:    req.Ext,
		Hash:   hash,
		Source: s.defaultStorageID,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return repository.Document{}, err
	}
	defer func() { _ = tx.Abort(ctx) }()

	if err := s.repo.InsertDocumentWithConfigs(ctx, tx, doc, parser.DefaultGenericConfig(), chunk.DefaultSlidingConfig()); err != nil {
		return repository.Document{}, err
	}
	if err := store.Put(ctx, path, bytes.NewReader(req.Data)); err != nil {
		return repository.Document{}, apperr.Wrap(apperr.Provider, err, "writing document bytes")
	}
	if err := tx.Commit(ctx); err != nil {
		return repository.Document{}, err
	}

	s.logger.Info(logging.WithDocumentID(ctx, doc.ID.String()), "uploaded document", zap.String("path", path))
	return doc, nil
}

// Delete removes a document's metadata, its vectors in every collection
// it was embedded into, and its stored bytes.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx = logging.WithDocumentID(ctx, id.String())

	doc, err := s.repo.GetDocumentByID(ctx, nil, id)
	if err != nil {
		return err
	}

	embeddings, err := s.repo.ListEmbeddingsByDocument(ctx, nil, id)
	if err != nil {
		return err
	}
	type target struct {
		collectionName string
		vectorDBID     string
	}
	targets := make([]target, 0, len(embeddings))
	for _, e := range embeddings {
		coll, err := s.repo.GetCollectionByID(ctx, nil, e.CollectionID)
		if err != nil {
			s.logger.Warn(ctx, "skipping vector cleanup, collection lookup failed",
				zap.String("collection_id", e.CollectionID.String()), zap.Error(err))
			continue
		}
		targets = append(targets, target{collectionName: coll.Name, vectorDBID: coll.VectorDBID})
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDocument(ctx, tx, id); err != nil {
		_ = tx.Abort(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	for _, t := range targets {
		vdb, err := s.vectorDBs.Get(t.vectorDBID)
		if err != nil {
			s.logger.Warn(ctx, "skipping vector cleanup, unknown vector db", zap.String("vector_db_id", t.vectorDBID), zap.Error(err))
			continue
		}
		if err := vdb.DeleteByDocument(ctx, t.collectionName, id); err != nil {
			s.logger.Warn(ctx, "failed to delete vectors for document", zap.String("collection", t.collectionName), zap.Error(err))
		}
	}

	store, err := s.storage.Get(doc.Source)
	if err != nil {
		s.logger.Warn(ctx, "skipping byte cleanup, unknown storage provider", zap.String("source", doc.Source), zap.Error(err))
		return nil
	}
	if err := store.Delete(ctx, doc.Path); err != nil {
		s.logger.Warn(ctx, "failed to delete document bytes", zap.String("path", doc.Path), zap.Error(err))
	}
	return nil
}

const syncPageSize = 500

// Sync reconciles the repository's view of providerID's documents with
// what the storage provider actually holds.
func (s *Service) Sync(ctx context.Context, providerID string) error {
	store, err := s.storage.Get(providerID)
	if err != nil {
		return err
	}

	source := providerID
	for page := 1; ; page++ {
		docs, err := s.repo.ListDocuments(ctx, nil, repository.ListDocumentsParams{
			Pagination: repository.Pagination{PerPage: syncPageSize, Page: page},
			Sort:       repository.Sort{Column: "id", Direction: repository.Asc},
			Source:     &source,
		})
		if err != nil {
			return err
		}
		for _, doc := range docs {
			rc, err := store.Get(ctx, doc.Path)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					if derr := s.repo.DeleteDocument(ctx, nil, doc.ID); derr != nil {
						return derr
					}
					s.logger.Warn(logging.WithDocumentID(ctx, doc.ID.String()),
						"removed stale document row, bytes no longer in storage", zap.String("path", doc.Path))
					continue
				}
				return apperr.Wrap(apperr.Provider, err, "checking storage for document %s", doc.ID)
			}
			_ = rc.Close()
		}
		if len(docs) < syncPageSize {
			break
		}
	}

	objects, err := store.List(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "listing storage objects")
	}
	for _, obj := range objects {
		_, err := s.repo.GetDocumentByPathSource(ctx, nil, obj.Path, providerID)
		if err == nil {
			continue
		}
		if code, ok := apperr.CodeOf(err); !ok || code != apperr.DoesNotExist {
			s.logger.Warn(ctx, "skipping object during sync, lookup failed", zap.String("path", obj.Path), zap.Error(err))
			continue
		}

		rc, err := store.Get(ctx, obj.Path)
		if err != nil {
			s.logger.Warn(ctx, "skipping object during sync, read failed", zap.String("path", obj.Path), zap.Error(err))
			continue
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			s.logger.Warn(ctx, "skipping object during sync, read failed", zap.String("path", obj.Path), zap.Error(err))
			continue
		}

		hash := sha256Hex(data)
		if _, err := s.repo.GetDocumentByHash(ctx, nil, hash); err == nil {
			s.logger.Warn(ctx, "hash collision during sync, skipping file", zap.String("path", obj.Path))
			continue
		} else if code, ok := apperr.CodeOf(err); !ok || code != apperr.DoesNotExist {
			s.logger.Warn(ctx, "skipping object during sync, hash lookup failed", zap.String("path", obj.Path), zap.Error(err))
			continue
		}

		ext := strings.TrimPrefix(filepath.Ext(obj.Path), ".")
		name := strings.TrimSuffix(filepath.Base(obj.Path), filepath.Ext(obj.Path))
		doc := repository.Document{
			ID: uuid.New(), Name: name, Path: obj.Path, Ext: repository.Extension(ext),
			Hash: hash, Source: providerID,
		}
		if err := s.repo.InsertDocumentWithConfigs(ctx, nil, doc, parser.DefaultGenericConfig(), chunk.DefaultSlidingConfig()); err != nil {
			s.logger.Warn(ctx, "skipping object during sync, insert failed", zap.String("path", obj.Path), zap.Error(err))
			continue
		}
		s.logger.Info(logging.WithDocumentID(ctx, doc.ID.String()), "discovered untracked file during sync", zap.String("path", obj.Path))
	}

	return nil
}

// TokenCounts reports a chunk's size under two tokenizer encodings.
type TokenCounts struct {
	Cl100k int
	O200k  int
}

// ChunkPreviewRequest is the input to ChunkPreview.
type ChunkPreviewRequest struct {
	// ParseConfig overrides the document's stored parse config when
	// non-nil.
	ParseConfig *parser.Config
	ChunkConfig chunk.Config
}

// ChunkPreviewResult is chunked text plus parallel token counts.
type ChunkPreviewResult struct {
	Chunks      []string
	TokenCounts []TokenCounts
}

// ChunkPreview parses and chunks a document without persisting
// anything, for use by clients iterating on a chunk config.
func (s *Service) ChunkPreview(ctx context.Context, id uuid.UUID, req ChunkPreviewRequest) (ChunkPreviewResult, error) {
	text, err := s.loadAndParse(ctx, id, req.ParseConfig)
	if err != nil {
		return ChunkPreviewResult{}, err
	}

	emb, err := s.chunkEmbedder(req.ChunkConfig)
	if err != nil {
		return ChunkPreviewResult{}, err
	}

	chunks, err := chunk.Chunk(ctx, req.ChunkConfig, emb, text)
	if err != nil {
		return ChunkPreviewResult{}, err
	}

	cl100k, err := tokencount.New(tokencount.EncodingCl100kBase)
	if err != nil {
		return ChunkPreviewResult{}, err
	}
	o200k, err := tokencount.New(tokencount.EncodingO200kBase)
	if err != nil {
		return ChunkPreviewResult{}, err
	}

	counts := make([]TokenCounts, len(chunks))
	for i, c := range chunks {
		counts[i] = TokenCounts{Cl100k: cl100k.Count(c), O200k: o200k.Count(c)}
	}

	return ChunkPreviewResult{Chunks: chunks, TokenCounts: counts}, nil
}

// Chunks parses and chunks a document using its stored parse and chunk
// configs, for callers (such as the batch executor) that embed a
// document as it is currently configured rather than previewing a
// candidate config.
func (s *Service) Chunks(ctx context.Context, id uuid.UUID) ([]string, error) {
	text, err := s.loadAndParse(ctx, id, nil)
	if err != nil {
		return nil, err
	}

	chunkCfg, err := s.repo.GetChunkConfig(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	emb, err := s.chunkEmbedder(chunkCfg)
	if err != nil {
		return nil, err
	}

	return chunk.Chunk(ctx, chunkCfg, emb, text)
}

// ParsePreview parses a document without chunking it.
func (s *Service) ParsePreview(ctx context.Context, id uuid.UUID, cfg *parser.Config) (parser.Parsed, error) {
	doc, err := s.repo.GetDocumentByID(ctx, nil, id)
	if err != nil {
		return parser.Parsed{}, err
	}

	parseCfg, err := s.resolveParseConfig(ctx, id, cfg)
	if err != nil {
		return parser.Parsed{}, err
	}

	data, err := s.readBytes(ctx, doc)
	if err != nil {
		return parser.Parsed{}, err
	}

	return s.parser.Parse(ctx, string(doc.Ext), data, parseCfg)
}

// UpdateParser validates and replaces a document's stored parse config.
func (s *Service) UpdateParser(ctx context.Context, id uuid.UUID, cfg parser.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetDocumentByID(ctx, nil, id); err != nil {
		return err
	}
	return s.repo.UpsertParseConfig(ctx, nil, id, cfg)
}

// UpdateChunker validates and replaces a document's stored chunk config.
func (s *Service) UpdateChunker(ctx context.Context, id uuid.UUID, cfg chunk.Config) error {
	if err := validateChunkConfig(cfg); err != nil {
		return err
	}
	if _, err := s.repo.GetDocumentByID(ctx, nil, id); err != nil {
		return err
	}
	return s.repo.UpsertChunkConfig(ctx, nil, id, cfg)
}

func (s *Service) loadAndParse(ctx context.Context, id uuid.UUID, override *parser.Config) (string, error) {
	doc, err := s.repo.GetDocumentByID(ctx, nil, id)
	if err != nil {
		return "", err
	}
	parseCfg, err := s.resolveParseConfig(ctx, id, override)
	if err != nil {
		return "", err
	}
	data, err := s.readBytes(ctx, doc)
	if err != nil {
		return "", err
	}
	parsed, err := s.parser.Parse(ctx, string(doc.Ext), data, parseCfg)
	if err != nil {
		return "", err
	}
	return flatten(parsed), nil
}

func (s *Service) resolveParseConfig(ctx context.Context, id uuid.UUID, override *parser.Config) (parser.Config, error) {
	if override != nil {
		return *override, nil
	}
	return s.repo.GetParseConfig(ctx, nil, id)
}

func (s *Service) readBytes(ctx context.Context, doc repository.Document) ([]byte, error) {
	store, err := s.storage.Get(doc.Source)
	if err != nil {
		return nil, err
	}
	rc, err := store.Get(ctx, doc.Path)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "reading document bytes")
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "reading document bytes")
	}
	return data, nil
}

func flatten(p parser.Parsed) string {
	if p.Mode != parser.ModeSection {
		return p.Text
	}
	var b strings.Builder
	for _, section := range p.Sections {
		for _, page := range section.Pages {
			b.WriteString(page.Text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// chunkEmbedder resolves the embedder.Provider that serves a semantic
// chunk config's model, adapting it to chunk.Embedder's narrower
// float64 contract. Returns nil for non-semantic configs, which don't
// need one.
func (s *Service) chunkEmbedder(cfg chunk.Config) (chunk.Embedder, error) {
	if cfg.Kind != chunk.KindSemantic || cfg.Semantic == nil {
		return nil, nil
	}
	for _, id := range s.embedders.ListIDs() {
		p, err := s.embedders.Get(id)
		if err != nil {
			continue
		}
		if _, ok := p.Dimension(cfg.Semantic.EmbeddingModel); ok {
			return embedderAdapter{p}, nil
		}
	}
	return nil, apperr.New(apperr.InvalidEmbeddingModel, "no registered embedder serves model %q", cfg.Semantic.EmbeddingModel)
}

// embedderAdapter narrows an embedder.Provider (float32 vectors) to
// chunk.Embedder (float64 vectors), the precision the semantic
// chunker's distance math is written against.
type embedderAdapter struct {
	provider embedder.Provider
}

func (a embedderAdapter) Embed(ctx context.Context, model string, inputs []string) ([][]float64, error) {
	vectors, err := a.provider.Embed(ctx, model, inputs)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		for j, f := range v {
			row[j] = float64(f)
		}
		out[i] = row
	}
	return out, nil
}

// validateChunkConfig checks that cfg carries the sub-config its Kind
// requires, the same presence check Chunk enforces at dispatch time,
// done here up front so update_chunker rejects a bad config before it
// is ever persisted.
func validateChunkConfig(cfg chunk.Config) error {
	switch cfg.Kind {
	case chunk.KindSliding:
		if cfg.Sliding == nil {
			return apperr.New(apperr.ChunkerConfig, "missing sliding config")
		}
	case chunk.KindSnapping:
		if cfg.Snapping == nil {
			return apperr.New(apperr.ChunkerConfig, "missing snapping config")
		}
	case chunk.KindSemantic:
		if cfg.Semantic == nil {
			return apperr.New(apperr.ChunkerConfig, "missing semantic config")
		}
	case chunk.KindSplitline:
		if cfg.Splitline == nil {
			return apperr.New(apperr.ChunkerConfig, "missing splitline config")
		}
	default:
		return apperr.New(apperr.ChunkerConfig, "unknown chunker kind %q", cfg.Kind)
	}
	return nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
