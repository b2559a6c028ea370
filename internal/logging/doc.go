// Package logging provides structured logging for vectorkit.
//
// # Overview
//
// Logging package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Stdout output with a redacting JSON/console encoder
//   - Automatic context field injection (collection, document, job id)
//   - Defense-in-depth secret redaction
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithCollectionID(ctx, coll.ID.String())
//	ctx = logging.WithDocumentID(ctx, doc.ID.String())
//	logger.Info(ctx, "document ingested", zap.Duration("duration", d))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2025-11-24T10:15:30Z",
//	  "level": "info",
//	  "msg": "document ingested",
//	  "collection.id": "8f2c...",
//	  "document.id": "a913...",
//	  "duration": "45ms"
//	}
//
// # Configuration Precedence
//
// Configuration follows standard vectorkit precedence:
//  1. Defaults (NewDefaultConfig)
//  2. LOGGING_LEVEL and LOGGING_FORMAT, loaded by internal/config and
//     applied by cmd/server; every other setting keeps its default
//
// # Secret Redaction
//
// Secrets are redacted at multiple layers:
//  1. Domain primitives (config.Secret type)
//  2. Encoder-level field name filtering
//  3. Encoder-level pattern matching
//
// Use helpers for manual redaction:
//
//	logger.Info(ctx, "auth received",
//	    logging.RedactedString("authorization", authHeader))
//
// # Sampling
//
// Sampling prevents log floods:
//   - Error+: never sampled
//   - Every level below Error shares one sampler that uses the Info
//     entry of SamplingConfig.Levels (by default the first 100 per
//     tick, then 1 every 10); the other entries of Levels are not read
//
// Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertField(t, "test message", "key", "value")
//	tl.AssertNoSecrets(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
//
// # Performance
//
// Logging overhead: <1ms per entry in hot paths
// Trace skips field assembly when its level is disabled; the other
// methods build the context fields before zap's level check
// Sampling reduces volume by ~90% in high-throughput scenarios
package logging
