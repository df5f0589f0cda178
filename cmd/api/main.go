package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"time"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/auth"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/config"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/handlers"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/http"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/rag"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/retrieval"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/service"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/storage"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/tokens"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers support questions about Consto Real Estate from an indexed knowledge base.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Consto Real Estate assistant API
//   description: |
//     Retrieval-augmented chat API. Each request carries the conversation; the answer
//     cites the knowledge base passages it was grounded on.
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

	ctx := context.Background()

	// Resolve the model credential up front so a missing key fails at startup.
	// Without LLM_API_KEY the Azure default credential chain is used.
	credentials, err := auth.New(cfg.LLMAPIKey, cfg.LLMAllowDummyKey)
	if err != nil {
		log.Fatalf("Failed to create LLM credential: %v", err)
	}
	if _, err := credentials.Token(ctx); err != nil {
		log.Fatalf("No LLM credential available (set LLM_API_KEY, sign in to Azure, or set LLM_ALLOW_DUMMY_KEY=true): %v", err)
	}

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantAPIKey)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	defer func() {
		_ = vectorStore.Close()
	}()

	// The collection is populated by a separate ingestion job; serve anyway and let /health report it
	exists, err := vectorStore.CollectionExists(ctx, cfg.QdrantCollection)
	switch {
	case err != nil:
		slog.Warn("Could not check Qdrant collection", "collection", cfg.QdrantCollection, "error", err)
	case !exists:
		slog.Warn("Qdrant collection does not exist yet", "collection", cfg.QdrantCollection)
	default:
		slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection)
	}

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, credentials, cfg.EmbeddingModel, cfg.QdrantVectorSize)
	if _, err := embedder.EmbedQuery(ctx, "test"); err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Optional passage store for points indexed without their text
	var (
		passages  storage.PassageStore
		passageDB handlers.Pinger
	)
	if cfg.DBPath != "" {
		db, err := storage.New(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer func() {
			_ = db.Close()
		}()

		if err := storage.Migrate(db); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		passages = storage.NewPassageRepo(db)
		passageDB = db
		slog.Info("Passage store initialized", "path", cfg.DBPath)
	}

	searcher := retrieval.NewVectorSearcher(embedder, vectorStore, cfg.QdrantCollection, passages)

	accountant, err := tokens.New(cfg.Tokenizer, cfg.LLMModelName)
	if err != nil {
		log.Fatalf("Failed to create token accountant: %v", err)
	}

	// Create LLM client (external service layer)
	llmClient := llm.NewClient(cfg.LLMBaseURL, credentials, cfg.LLMModelName)
	generator := llm.NewGenerator(llmClient, llm.ChatParams{
		Model:       cfg.LLMModelName,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		N:           cfg.LLMCompletions,
	})

	engineOpts := []rag.Option{
		rag.WithModel(cfg.LLMModelName),
		rag.WithRetrievalCount(cfg.RetrievalK),
		rag.WithTokenCeiling(cfg.TokenCeiling),
	}
	if cfg.SystemPrompt != "" {
		engineOpts = append(engineOpts, rag.WithSystemPrompt(cfg.SystemPrompt))
	}
	ragEngine := rag.NewEngine(searcher, generator, accountant, engineOpts...)
	slog.Info("RAG engine initialized", "k", cfg.RetrievalK, "token_ceiling", cfg.TokenCeiling, "tokenizer", cfg.Tokenizer)

	// Create router with dependencies
	router := http.NewRouter(&http.Deps{
		ChatService:      service.NewChatService(ragEngine),
		VectorStore:      vectorStore,
		QdrantCollection: cfg.QdrantCollection,
		Embedder:         embedder,
		PassageDB:        passageDB,
		RequestTimeout:   cfg.RequestTimeout,
	})

	// Start API server
	addr := ":" + cfg.APIPort
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
