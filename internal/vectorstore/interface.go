package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks github.com/abch2309-ux/azure-openai-rag-workshop/internal/vectorstore VectorStore

import "context"

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Payload map[string]any
}

// VectorStore defines the read-only vector operations the chat turn needs.
type VectorStore interface {
	// Search returns the k points nearest to query, most similar first.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// CollectionExists reports whether the collection is present.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
