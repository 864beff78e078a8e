// Package main implements the Collexa API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RNS-Forge/Collexa.AI/engine/catalog"
	"github.com/RNS-Forge/Collexa.AI/engine/corpus"
	"github.com/RNS-Forge/Collexa.AI/engine/ingest"
	"github.com/RNS-Forge/Collexa.AI/engine/rag"
	"github.com/RNS-Forge/Collexa.AI/engine/semantic"
	"github.com/RNS-Forge/Collexa.AI/pkg/events"
	"github.com/RNS-Forge/Collexa.AI/pkg/gemini"
	"github.com/RNS-Forge/Collexa.AI/pkg/metrics"
	"github.com/RNS-Forge/Collexa.AI/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port         string
	MongoURL     string
	MongoDB      string
	GeminiAPIKey string
	NATSURL      string
	CORSOrigin   string
}

func loadConfig() Config {
	return Config{
		Port:         envOr("PORT", "8080"),
		MongoURL:     envOr("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:      envOr("MONGO_DB", "collexa"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		NATSURL:      os.Getenv("NATS_URL"),
		CORSOrigin:   envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to MongoDB ---
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURL))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer client.Disconnect(context.Background())
	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	store := catalog.NewStore(client.Database(cfg.MongoDB))

	// --- Connect to NATS (optional) ---
	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer publisher.Close()
	} else {
		logger.Info("NATS_URL not set, event publishing disabled")
	}

	// --- Model clients (optional) ---
	// Without an API key the chat pipeline reports service unavailable while
	// the catalog endpoints keep working.
	var generator rag.Generator
	var embedder semantic.Embedder
	if cfg.GeminiAPIKey != "" {
		gc := gemini.New(cfg.GeminiAPIKey)
		generator = gc
		embedder = gc
	} else {
		logger.Warn("GEMINI_API_KEY not set, chat disabled")
	}

	// --- Build services ---
	ragSvc := rag.New(corpus.NewAssembler(store), embedder, generator, rag.DefaultOptions(), logger)
	pipeline := ingest.New(store, logger)
	registry := metrics.New()

	srvHandlers := &server{
		store:   store,
		rag:     ragSvc,
		ingest:  pipeline,
		events:  publisher,
		metrics: registry,
		logger:  logger,
	}

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	srvHandlers.routes(mux)

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.RequestID(),
		mid.OTel("collexa-api"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
