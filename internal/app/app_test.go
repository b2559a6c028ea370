package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vectorkit/vectorkit/internal/config"
	"github.com/vectorkit/vectorkit/internal/logging"
)

// baseConfig returns a minimal valid configuration using only the
// providers that need no external service: chromem and fembed.
// pgxpool.New does not dial eagerly, so an unreachable DATABASE_URL is
// safe to use here.
func baseConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server:   config.ServerConfig{ListenAddr: ":8080", ShutdownTimeout: config.Duration(1)},
		Database: config.DatabaseConfig{URL: "postgres://localhost:5432/vectorkit_test"},
		Storage:  config.StorageConfig{Provider: "fs", UploadPath: dir},
		VectorDB: config.VectorDBConfig{Provider: "chromem"},
		Embedder: config.EmbedderConfig{Provider: "fembed", FembedCacheDir: dir},
	}
}

func TestNew_WiresDefaultProviders(t *testing.T) {
	cfg := baseConfig(t)
	logger := logging.Nop()

	application, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer application.Close()

	require.Contains(t, application.VectorDBs.ListIDs(), "chromem")
	require.Contains(t, application.Embedders.ListIDs(), "fembed")
	require.Contains(t, application.Storages.ListIDs(), "fs")
	require.Nil(t, application.Cache)

	require.NotNil(t, application.Collections)
	require.NotNil(t, application.Documents)
	require.NotNil(t, application.Embeddings)
	require.NotNil(t, application.Executor)
}

func TestNew_WiresOptionalQdrantAndOpenAI(t *testing.T) {
	cfg := baseConfig(t)
	cfg.VectorDB.QdrantHost = "localhost"
	cfg.VectorDB.QdrantPort = 6334
	cfg.Embedder.OpenAIBaseURL = "http://localhost:8081"

	application, err := New(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer application.Close()

	require.Contains(t, application.VectorDBs.ListIDs(), "qdrant")
	require.Contains(t, application.Embedders.ListIDs(), "openai")
}

func TestNew_LiveDatabase(t *testing.T) {
	dsn := os.Getenv("VECTORKIT_TEST_DSN")
	if dsn == "" {
		t.Skip("VECTORKIT_TEST_DSN not set, skipping live database test")
	}

	cfg := baseConfig(t)
	cfg.Database.URL = config.Secret(dsn)

	application, err := New(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	defer application.Close()

	require.NoError(t, application.Repo.Bootstrap(context.Background()))
	require.NoError(t, application.Collections.Sync(context.Background()))
}
