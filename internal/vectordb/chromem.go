package vectordb

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"
	"github.com/google/uuid"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// identityMetaKind marks the metadata entry of an identity row so
// filtering can exclude it from ordinary queries.
const identityMetaKind = "kind"
const identityKindValue = "identity"

// Chromem is an embedded, file-backed vector DB provider. It requires
// no external service, making it suitable for local development and
// tests.
type Chromem struct {
	db *chromem.DB
	id string
}

// ChromemConfig configures a Chromem provider.
type ChromemConfig struct {
	// Path is the directory chromem-go persists its gob files to. An
	// empty path uses an in-memory, non-persistent database.
	Path string
	// ProviderID overrides the registry id; defaults to "chromem".
	ProviderID string
}

// NewChromem builds a Chromem provider from cfg.
func NewChromem(cfg ChromemConfig) (*Chromem, error) {
	var db *chromem.DB
	var err error
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, err
		}
	}

	id := cfg.ProviderID
	if id == "" {
		id = "chromem"
	}
	return &Chromem{db: db, id: id}, nil
}

// ID implements Provider.
func (c *Chromem) ID() string { return c.id }

// noopEmbeddingFunc satisfies chromem-go's collection constructor. The
// system never relies on chromem to compute embeddings itself: every
// document stored here always carries a precomputed vector, so this
// function is never actually invoked.
func noopEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("vectordb/chromem: embeddings must be supplied by the caller")
}

// CreateCollection implements Provider.
func (c *Chromem) CreateCollection(ctx context.Context, identity Identity) error {
	collection, err := c.db.GetOrCreateCollection(identity.Name, nil, noopEmbeddingFunc)
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "creating collection %q", identity.Name)
	}

	zeroVector := make([]float32, identity.Size)
	doc := chromem.Document{
		ID:        IdentityRowID.String(),
		Embedding: zeroVector,
		Metadata: map[string]string{
			identityMetaKind: identityKindValue,
			"collection_id":  identity.CollectionID.String(),
			"name":           identity.Name,
			"size":           strconv.Itoa(identity.Size),
			"embedder_id":    identity.EmbedderID,
			"model":          identity.Model,
			"groups":         strings.Join(identity.Groups, ","),
		},
	}
	if err := collection.AddDocument(ctx, doc); err != nil {
		return apperr.Wrap(apperr.Provider, err, "writing identity row for %q", identity.Name)
	}
	return nil
}

// DeleteCollection implements Provider.
func (c *Chromem) DeleteCollection(ctx context.Context, name string) error {
	if err := c.db.DeleteCollection(name); err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting collection %q", name)
	}
	return nil
}

// CollectionExists implements Provider.
func (c *Chromem) CollectionExists(ctx context.Context, name string) (bool, error) {
	return c.db.GetCollection(name, noopEmbeddingFunc) != nil, nil
}

// ListCollections implements Provider.
func (c *Chromem) ListCollections(ctx context.Context) ([]Identity, error) {
	var out []Identity
	for name, collection := range c.db.ListCollections() {
		doc, err := collection.GetByID(ctx, IdentityRowID.String())
		if err != nil {
			continue
		}
		out = append(out, identityFromMetadata(name, doc.Metadata))
	}
	return out, nil
}

func identityFromMetadata(name string, meta map[string]string) Identity {
	id := Identity{Name: name, EmbedderID: meta["embedder_id"], Model: meta["model"]}
	if cid, err := uuid.Parse(meta["collection_id"]); err == nil {
		id.CollectionID = cid
	}
	if size, err := strconv.Atoi(meta["size"]); err == nil {
		id.Size = size
	}
	if groups := meta["groups"]; groups != "" {
		id.Groups = strings.Split(groups, ",")
	}
	return id
}

// Insert implements Provider.
func (c *Chromem) Insert(ctx context.Context, collectionName string, points []Point) error {
	collection := c.db.GetCollection(collectionName, noopEmbeddingFunc)
	if collection == nil {
		return apperr.New(apperr.DoesNotExist, "collection %q not found", collectionName)
	}

	docs := make([]chromem.Document, 0, len(points))
	for _, p := range points {
		docs = append(docs, chromem.Document{
			ID:        p.ID.String(),
			Embedding: p.Vector,
			Content:   p.Content,
			Metadata: map[string]string{
				"document_id": p.DocumentID.String(),
			},
		})
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return apperr.Wrap(apperr.Provider, err, "inserting points into %q", collectionName)
	}
	return nil
}

// Query implements Provider.
func (c *Chromem) Query(ctx context.Context, collectionName string, vector []float32, limit int, maxDistance *float64) ([]SearchResult, error) {
	collection := c.db.GetCollection(collectionName, noopEmbeddingFunc)
	if collection == nil {
		return nil, apperr.New(apperr.DoesNotExist, "collection %q not found", collectionName)
	}

	n := limit
	if count := collection.Count(); count < n {
		n = count
	}
	if n <= 0 {
		return nil, nil
	}

	results, err := collection.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "querying %q", collectionName)
	}

	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if r.ID == IdentityRowID.String() {
			continue
		}
		distance := 1 - float64(r.Similarity)
		if maxDistance != nil && distance > *maxDistance {
			continue
		}
		docID, _ := uuid.Parse(r.Metadata["document_id"])
		out = append(out, SearchResult{DocumentID: docID, Content: r.Content, Distance: distance})
	}
	return out, nil
}

// CountByDocument implements Provider.
func (c *Chromem) CountByDocument(ctx context.Context, collectionName string, documentID uuid.UUID) (int, error) {
	collection := c.db.GetCollection(collectionName, noopEmbeddingFunc)
	if collection == nil {
		return 0, apperr.New(apperr.DoesNotExist, "collection %q not found", collectionName)
	}

	n := collection.Count()
	if n == 0 {
		return 0, nil
	}

	identityDoc, err := collection.GetByID(ctx, IdentityRowID.String())
	if err != nil {
		return 0, apperr.Wrap(apperr.Provider, err, "reading identity row for %q", collectionName)
	}

	results, err := collection.QueryEmbedding(ctx, identityDoc.Embedding, n, map[string]string{"document_id": documentID.String()}, nil)
	if err != nil {
		return 0, apperr.Wrap(apperr.Provider, err, "counting by document in %q", collectionName)
	}
	return len(results), nil
}

// DeleteByDocument implements Provider.
func (c *Chromem) DeleteByDocument(ctx context.Context, collectionName string, documentID uuid.UUID) error {
	collection := c.db.GetCollection(collectionName, noopEmbeddingFunc)
	if collection == nil {
		return apperr.New(apperr.DoesNotExist, "collection %q not found", collectionName)
	}

	if err := collection.Delete(ctx, map[string]string{"document_id": documentID.String()}, nil); err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting by document in %q", collectionName)
	}
	return nil
}
