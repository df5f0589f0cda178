package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/vectorstore"
)

// Health states reported by HealthHandler.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck probes one dependency of a chat turn.
type HealthCheck struct {
	Name string
	// Critical checks make the service unhealthy when they fail; others only degrade it.
	Critical bool
	Check    func(ctx context.Context) error
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// QueryEmbedder is satisfied by *llm.EmbeddingsClient.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStoreCheck fails when collection is missing or the store is unreachable.
// Without the collection no passage can be retrieved, so the check is critical.
func VectorStoreCheck(store vectorstore.VectorStore, collection string) HealthCheck {
	return HealthCheck{
		Name:     "vector_store",
		Critical: true,
		Check: func(ctx context.Context) error {
			exists, err := store.CollectionExists(ctx, collection)
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("collection %q does not exist", collection)
			}
			return nil
		},
	}
}

// EmbeddingsCheck embeds a short probe query.
func EmbeddingsCheck(embedder QueryEmbedder) HealthCheck {
	return HealthCheck{
		Name:     "embeddings",
		Critical: true,
		Check: func(ctx context.Context) error {
			_, err := embedder.EmbedQuery(ctx, "health")
			return err
		},
	}
}

// PassageStoreCheck pings the passage database. Points that carry their own
// text are still answerable without it, so a failure only degrades the service.
func PassageStoreCheck(db Pinger) HealthCheck {
	return HealthCheck{
		Name:  "passage_store",
		Check: db.PingContext,
	}
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler running checks in order.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		timeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// "healthy", "degraded" or "unhealthy"
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	// One entry per failed check, "name: error".
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP reports the state of every configured dependency.
// Degraded still answers 200; unhealthy answers 503.
//
// swagger:route GET /health healthCheck
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status: StatusHealthy,
		Checks: make(map[string]string, len(h.checks)),
	}
	for _, c := range h.checks {
		if err := c.Check(checkCtx); err != nil {
			logger.WarnContext(ctx, "health check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = "error"
			resp.Issues = append(resp.Issues, c.Name+": "+err.Error())
			if c.Critical {
				resp.Status = StatusUnhealthy
			} else if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	resp.Timestamp = time.Now().UTC().Format(time.RFC3339)

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}
