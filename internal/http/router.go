package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/handlers"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/service"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/vectorstore"
)

// defaultRequestTimeout applies when Deps.RequestTimeout is zero.
const defaultRequestTimeout = 60 * time.Second

// Deps holds dependencies for the HTTP router.
// PassageDB is nil when no passage store is configured.
type Deps struct {
	ChatService      service.ChatService
	VectorStore      vectorstore.VectorStore
	QdrantCollection string
	Embedder         handlers.QueryEmbedder
	PassageDB        handlers.Pinger
	RequestTimeout   time.Duration
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(CORS)

	r.Method(http.MethodPost, "/chat", handlers.NewChatHandler(deps.ChatService))
	checks := []handlers.HealthCheck{
		handlers.VectorStoreCheck(deps.VectorStore, deps.QdrantCollection),
		handlers.EmbeddingsCheck(deps.Embedder),
	}
	if deps.PassageDB != nil {
		checks = append(checks, handlers.PassageStoreCheck(deps.PassageDB))
	}
	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(checks...))

	return r
}
