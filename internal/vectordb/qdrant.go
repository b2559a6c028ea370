package vectordb

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vectorkit/vectorkit/internal/apperr"
)

// QdrantConfig configures a Qdrant provider.
type QdrantConfig struct {
	Host     string
	Port     int
	UseTLS   bool
	Distance qdrant.Distance
	// ProviderID overrides the registry id; defaults to "qdrant".
	ProviderID string
}

// Qdrant is a vector DB provider backed by a remote Qdrant instance
// over gRPC.
type Qdrant struct {
	client   *qdrant.Client
	distance qdrant.Distance
	id       string
}

// NewQdrant dials a Qdrant instance and returns a provider.
func NewQdrant(cfg QdrantConfig) (*Qdrant, error) {
	distance := cfg.Distance
	if distance == 0 {
		distance = qdrant.Distance_Cosine
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "connecting to qdrant at %s:%d", cfg.Host, cfg.Port)
	}

	id := cfg.ProviderID
	if id == "" {
		id = "qdrant"
	}

	return &Qdrant{client: client, distance: distance, id: id}, nil
}

// ID implements Provider.
func (q *Qdrant) ID() string { return q.id }

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(n int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: n}}
}

// CreateCollection implements Provider.
func (q *Qdrant) CreateCollection(ctx context.Context, identity Identity) error {
	err := q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: identity.Name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(identity.Size),
			Distance: q.distance,
		}),
	})
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "creating collection %q", identity.Name)
	}

	zeroVector := make([]float32, identity.Size)
	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: identity.Name,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(IdentityRowID.String()),
			Vectors: qdrant.NewVectors(zeroVector...),
			Payload: identityPayload(identity),
		}},
	})
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "writing identity row for %q", identity.Name)
	}
	return nil
}

func identityPayload(identity Identity) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"kind":          stringValue(identityKindValue),
		"collection_id": stringValue(identity.CollectionID.String()),
		"name":          stringValue(identity.Name),
		"size":          intValue(int64(identity.Size)),
		"embedder_id":   stringValue(identity.EmbedderID),
		"model":         stringValue(identity.Model),
		"groups":        stringValue(strings.Join(identity.Groups, ",")),
	}
}

func identityFromPayload(payload map[string]*qdrant.Value) Identity {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	id := Identity{
		Name:       get("name"),
		EmbedderID: get("embedder_id"),
		Model:      get("model"),
	}
	if cid, err := uuid.Parse(get("collection_id")); err == nil {
		id.CollectionID = cid
	}
	if v, ok := payload["size"]; ok {
		id.Size = int(v.GetIntegerValue())
	}
	if groups := get("groups"); groups != "" {
		id.Groups = strings.Split(groups, ",")
	}
	return id
}

// DeleteCollection implements Provider.
func (q *Qdrant) DeleteCollection(ctx context.Context, name string) error {
	if err := q.client.DeleteCollection(ctx, name); err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting collection %q", name)
	}
	return nil
}

// CollectionExists implements Provider.
func (q *Qdrant) CollectionExists(ctx context.Context, name string) (bool, error) {
	info, err := q.client.GetCollectionInfo(ctx, name)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
			return false, nil
		}
		return false, apperr.Wrap(apperr.Provider, err, "checking collection %q", name)
	}
	return info != nil, nil
}

// ListCollections implements Provider.
func (q *Qdrant) ListCollections(ctx context.Context) ([]Identity, error) {
	names, err := q.client.ListCollections(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "listing collections")
	}

	out := make([]Identity, 0, len(names))
	for _, name := range names {
		points, err := q.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: name,
			Ids:            []*qdrant.PointId{qdrant.NewIDUUID(IdentityRowID.String())},
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil || len(points) == 0 {
			continue
		}
		out = append(out, identityFromPayload(points[0].Payload))
	}
	return out, nil
}

// Insert implements Provider.
func (q *Qdrant) Insert(ctx context.Context, collection string, points []Point) error {
	pbPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		pbPoints = append(pbPoints, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: map[string]*qdrant.Value{
				"content":     stringValue(p.Content),
				"document_id": stringValue(p.DocumentID.String()),
			},
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         pbPoints,
	})
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "inserting points into %q", collection)
	}
	return nil
}

// Query implements Provider.
func (q *Qdrant) Query(ctx context.Context, collection string, vector []float32, limit int, maxDistance *float64) ([]SearchResult, error) {
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Provider, err, "querying %q", collection)
	}

	out := make([]SearchResult, 0, len(results))
	for _, point := range results {
		distance := float64(1 - point.Score)
		if maxDistance != nil && distance > *maxDistance {
			continue
		}
		var content string
		var docID uuid.UUID
		if point.Payload != nil {
			content = point.Payload["content"].GetStringValue()
			docID, _ = uuid.Parse(point.Payload["document_id"].GetStringValue())
		}
		out = append(out, SearchResult{DocumentID: docID, Content: content, Distance: distance})
	}
	return out, nil
}

func documentFilter(documentID uuid.UUID) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   "document_id",
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: documentID.String()}},
					},
				},
			},
		},
	}
}

// CountByDocument implements Provider. Qdrant's gRPC surface has no
// standalone count-by-filter call in this client version, so this
// counts by running a filtered query bounded to the collection's full
// point count, using the identity row's vector as the zero-distance
// query point (it is never itself tagged with a document_id, so it
// cannot appear in the filtered results).
func (q *Qdrant) CountByDocument(ctx context.Context, collection string, documentID uuid.UUID) (int, error) {
	info, err := q.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return 0, apperr.Wrap(apperr.Provider, err, "inspecting collection %q", collection)
	}
	total := uint64(1)
	if info.PointsCount != nil {
		total = *info.PointsCount
	}
	if total == 0 {
		return 0, nil
	}

	identityPoints, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(IdentityRowID.String())},
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil || len(identityPoints) == 0 {
		return 0, apperr.Wrap(apperr.Provider, err, "reading identity row for %q", collection)
	}
	queryVector := extractDenseVector(identityPoints[0].Vectors)

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         documentFilter(documentID),
		Limit:          qdrant.PtrOf(total),
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return 0, apperr.Wrap(apperr.Provider, err, "counting by document in %q", collection)
	}
	return len(results), nil
}

func extractDenseVector(vectors *qdrant.VectorsOutput) []float32 {
	if vectors == nil {
		return nil
	}
	if vec := vectors.GetVector(); vec != nil {
		if dense := vec.GetDense(); dense != nil {
			return dense.GetData()
		}
	}
	return nil
}

// DeleteByDocument implements Provider.
func (q *Qdrant) DeleteByDocument(ctx context.Context, collection string, documentID uuid.UUID) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: documentFilter(documentID),
			},
		},
	})
	if err != nil {
		return apperr.Wrap(apperr.Provider, err, "deleting by document in %q", collection)
	}
	return nil
}
