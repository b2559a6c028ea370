// internal/config/loader.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from environment variables, applies
// defaults for anything left unset, then validates the result.
//
// # Environment Variable Mapping
//
// Environment variables use underscore separator and are uppercased.
// The transformer maps environment variables to the Config struct's
// koanf field names:
//
//	SERVER_LISTEN_ADDR      -> server.listen_addr
//	DATABASE_URL            -> database.url
//	VECTORDB_PROVIDER       -> vectordb.provider
//	VECTORDB_CHROMEM_PATH   -> vectordb.chromem_path
//	EMBEDDER_OPENAI_API_KEY -> embedder.openai_api_key
//
// Config fields are kept to one level of nesting below each section so
// this single-split transformer can address every field; see the
// flat ChromemPath/QdrantHost/OpenAIBaseURL-style fields on
// VectorDBConfig and EmbedderConfig.
//
// # Example
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", func(s string) string {
		lower := strings.ToLower(s)
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		section := parts[0]
		fieldName := parts[1]
		return section + "." + fieldName
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Storage.Provider == "" {
		cfg.Storage.Provider = "fs"
	}
	if cfg.Storage.UploadPath == "" {
		cfg.Storage.UploadPath = "./data/uploads"
	}

	if cfg.VectorDB.Provider == "" {
		cfg.VectorDB.Provider = "chromem"
	}
	if cfg.VectorDB.ChromemPath == "" {
		cfg.VectorDB.ChromemPath = "./data/vectorstore"
	}
	if cfg.VectorDB.QdrantHost == "" {
		cfg.VectorDB.QdrantHost = "localhost"
	}
	if cfg.VectorDB.QdrantPort == 0 {
		cfg.VectorDB.QdrantPort = 6334
	}

	if cfg.Embedder.Provider == "" {
		cfg.Embedder.Provider = "fembed"
	}
	if cfg.Embedder.FembedCacheDir == "" {
		cfg.Embedder.FembedCacheDir = "./local_cache"
	}
	if cfg.Embedder.OpenAIBaseURL == "" {
		cfg.Embedder.OpenAIBaseURL = "https://api.openai.com/v1"
	}

	if len(cfg.CORS.Origins) == 0 {
		cfg.CORS.Origins = []string{"*"}
	}
	if len(cfg.CORS.Headers) == 0 {
		cfg.CORS.Headers = []string{"Content-Type", "Authorization"}
	}
}
