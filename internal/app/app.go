// Package app wires the system's providers, repositories, and
// services into a single running Application, the aggregate main
// constructs and the HTTP layer is built against.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"

	"github.com/vectorkit/vectorkit/internal/batch"
	"github.com/vectorkit/vectorkit/internal/cache"
	"github.com/vectorkit/vectorkit/internal/collection"
	"github.com/vectorkit/vectorkit/internal/config"
	"github.com/vectorkit/vectorkit/internal/document"
	"github.com/vectorkit/vectorkit/internal/embedder"
	"github.com/vectorkit/vectorkit/internal/embedding"
	"github.com/vectorkit/vectorkit/internal/logging"
	"github.com/vectorkit/vectorkit/internal/parser"
	"github.com/vectorkit/vectorkit/internal/provider"
	"github.com/vectorkit/vectorkit/internal/repository"
	"github.com/vectorkit/vectorkit/internal/storage"
	"github.com/vectorkit/vectorkit/internal/vectordb"
)

// openAIModels are the models the OpenAI-compatible embedder provider
// advertises, with the dimension each reports. TEI servers that speak
// the OpenAI wire format but serve a different model can be added
// here at the deployment that needs them.
var openAIModels = []embedder.Model{
	{Name: "text-embedding-3-small", Dimension: 1536},
	{Name: "text-embedding-3-large", Dimension: 3072},
	{Name: "text-embedding-ada-002", Dimension: 1536},
}

// Application holds every wired dependency and service. Close releases
// the pool and the cache connection; vector DB clients are not closed.
type Application struct {
	Config *config.Config
	Logger *logging.Logger

	Pool *pgxpool.Pool
	Repo *repository.Repository

	VectorDBs *provider.Registry[vectordb.Provider]
	Embedders *provider.Registry[embedder.Provider]
	Storages  *provider.Registry[storage.Provider]
	Cache     cache.Cache

	Collections *collection.Service
	Documents   *document.Service
	Embeddings  *embedding.Service
	Executor    *batch.Executor

	closers []func()
}

// New wires an Application from cfg. On error, the pool is closed
// before returning; vector DB clients already built are not closed.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	a := &Application{Config: cfg, Logger: logger}

	pool, err := pgxpool.New(ctx, cfg.Database.URL.Value())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	a.addCloser(pool.Close)
	a.Pool = pool
	a.Repo = repository.New(pool)

	if err := a.wireVectorDBs(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wireEmbedders(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wireStorage(cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wireCache(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}

	facade := parser.New()

	a.Collections = collection.New(a.Repo, a.VectorDBs, a.Embedders, logger)
	a.Documents = document.New(a.Repo, a.Storages, a.VectorDBs, a.Embedders, facade, cfg.Storage.Provider, logger)
	a.Embeddings = embedding.New(a.Repo, a.VectorDBs, a.Embedders, a.Cache, logger)
	a.Executor = batch.New(a.Repo, a.Documents, a.Embeddings, logger)

	return a, nil
}

func (a *Application) wireVectorDBs(cfg *config.Config) error {
	reg := provider.NewRegistry[vectordb.Provider]()

	chromemDB, err := vectordb.NewChromem(vectordb.ChromemConfig{Path: cfg.VectorDB.ChromemPath})
	if err != nil {
		return fmt.Errorf("building chromem vector db: %w", err)
	}
	if err := reg.Register(chromemDB); err != nil {
		return err
	}

	if cfg.VectorDB.QdrantHost != "" {
		qdrantDB, err := vectordb.NewQdrant(vectordb.QdrantConfig{
			Host:     cfg.VectorDB.QdrantHost,
			Port:     cfg.VectorDB.QdrantPort,
			UseTLS:   cfg.VectorDB.QdrantUseTLS,
			Distance: qdrant.Distance_Cosine,
		})
		if err != nil {
			return fmt.Errorf("building qdrant vector db: %w", err)
		}
		if err := reg.Register(qdrantDB); err != nil {
			return err
		}
	}

	a.VectorDBs = reg
	return nil
}

func (a *Application) wireEmbedders(cfg *config.Config) error {
	reg := provider.NewRegistry[embedder.Provider]()

	fembed := embedder.NewFEmbed(embedder.FEmbedConfig{CacheDir: cfg.Embedder.FembedCacheDir})
	if err := reg.Register(fembed); err != nil {
		return err
	}

	if cfg.Embedder.OpenAIBaseURL != "" {
		openaiEmb, err := embedder.NewOpenAI(embedder.OpenAIConfig{
			BaseURL: cfg.Embedder.OpenAIBaseURL,
			APIKey:  cfg.Embedder.OpenAIAPIKey.Value(),
			Models:  openAIModels,
		})
		if err != nil {
			return fmt.Errorf("building openai embedder: %w", err)
		}
		if err := reg.Register(openaiEmb); err != nil {
			return err
		}
	}

	a.Embedders = reg
	return nil
}

func (a *Application) wireStorage(cfg *config.Config) error {
	reg := provider.NewRegistry[storage.Provider]()

	fs, err := storage.NewFS(cfg.Storage.UploadPath)
	if err != nil {
		return fmt.Errorf("building filesystem storage: %w", err)
	}
	if err := reg.Register(fs); err != nil {
		return err
	}

	if cfg.Storage.S3Bucket != "" {
		s3Store, err := storage.NewS3(context.Background(), storage.S3Config{
			Bucket:       cfg.Storage.S3Bucket,
			Region:       cfg.Storage.S3Region,
			Endpoint:     cfg.Storage.S3Endpoint,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey.Value(),
			UsePathStyle: cfg.Storage.S3UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("building s3 storage: %w", err)
		}
		if err := reg.Register(s3Store); err != nil {
			return err
		}
	}

	a.Storages = reg
	return nil
}

func (a *Application) wireCache(ctx context.Context, cfg *config.Config) error {
	if !cfg.Cache.URL.IsSet() {
		a.Cache = nil
		return nil
	}

	opts, err := redis.ParseURL(cfg.Cache.URL.Value())
	if err != nil {
		return fmt.Errorf("parsing cache.url: %w", err)
	}

	c, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err != nil {
		return fmt.Errorf("building redis cache: %w", err)
	}
	a.addCloser(func() { _ = c.Close() })

	a.Cache = c
	return nil
}

func (a *Application) addCloser(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close runs the registered closers (the pool and, when configured,
// the cache) in reverse order.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
