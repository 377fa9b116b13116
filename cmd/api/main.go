package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyteller-ai/internal/config"
	"storyteller-ai/internal/handlers"
	"storyteller-ai/internal/http"
	"storyteller-ai/internal/indexer"
	"storyteller-ai/internal/llm"
	"storyteller-ai/internal/rag"
	"storyteller-ai/internal/service"
	"storyteller-ai/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API extracts characters from a document with retrieval-augmented generation and writes stories about them.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Storyteller AI API
//   description: |
//     Stateless API for splitting and embedding a document, extracting its characters from the most relevant chunks,
//     and streaming a story about an edited character list. Clients hold the embeddings between calls.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Provider clients share one HTTP client; the SDK is configured without retries.
	httpClient := &nethttp.Client{Timeout: 5 * time.Minute}
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName, httpClient)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName,
		cfg.EmbeddingDimensions, cfg.EmbeddingBatchSize, httpClient)

	counter, err := llm.NewTokenCounter()
	if err != nil {
		slog.Warn("Falling back to estimated token counts", "error", err)
		counter = &llm.TokenCounter{}
	}

	indexerPipeline := indexer.NewPipeline(embedder, counter, cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)

	// Create the per-request index backend
	var (
		builder       vectorstore.Builder
		healthChecker handlers.HealthChecker
	)
	switch cfg.VectorBackend {
	case "qdrant":
		qdrantBuilder, err := vectorstore.NewQdrantBuilder(cfg.QdrantURL, cfg.QdrantAPIKey)
		if err != nil {
			log.Fatalf("Failed to create Qdrant client: %v", err)
		}
		defer func() {
			_ = qdrantBuilder.Close()
		}()
		if err := qdrantBuilder.HealthCheck(ctx); err != nil {
			slog.Warn("Qdrant is not reachable yet", "url", cfg.QdrantURL, "error", err)
		}
		builder = qdrantBuilder
		healthChecker = qdrantBuilder
	default:
		builder = vectorstore.NewChromemBuilder()
	}
	slog.Info("Vector backend ready", "backend", cfg.VectorBackend)

	ragEngine := rag.NewEngine(embedder, builder, llmClient, rag.Options{
		TopK:        cfg.Pipeline.TopK,
		Temperature: cfg.Pipeline.Temperature,
		TopP:        cfg.Pipeline.TopP,
	})
	chatService := service.NewChatService(llmClient, cfg.Pipeline.StorySystemPrompt)

	// Create router with dependencies
	deps := &http.Deps{
		Indexer:        indexerPipeline,
		RAGEngine:      ragEngine,
		ChatService:    chatService,
		VectorBackend:  cfg.VectorBackend,
		HealthChecker:  healthChecker,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName, "chunk_size", cfg.Pipeline.ChunkSize, "top_k", cfg.Pipeline.TopK)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		log.Fatalf("API server failed to start: %v", err)
	}
}
