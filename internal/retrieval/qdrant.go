package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/storage"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/vectorstore"
)

// Embedder turns a query into the vector used for similarity search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher implements Searcher on top of a vector store. Point payloads
// follow the common ingestion layout {"content": ..., "metadata": {"source": ...}};
// flat "text"/"source" keys are accepted too. When a payload carries no text
// and a PassageStore is configured, the text is looked up by point id.
type VectorSearcher struct {
	embedder   Embedder
	store      vectorstore.VectorStore
	collection string
	passages   storage.PassageStore
}

// NewVectorSearcher creates a searcher over collection. passages may be nil.
func NewVectorSearcher(embedder Embedder, store vectorstore.VectorStore, collection string, passages storage.PassageStore) *VectorSearcher {
	return &VectorSearcher{
		embedder:   embedder,
		store:      store,
		collection: collection,
		passages:   passages,
	}
}

// SimilaritySearch implements Searcher.
func (s *VectorSearcher) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.store.Search(ctx, s.collection, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}

	docs := make([]Document, 0, len(results))
	for _, result := range results {
		doc := documentFromPayload(result.Payload)
		doc.Metadata["point_id"] = result.PointID

		if doc.Content == "" && s.passages != nil {
			rec, err := s.passages.GetByID(ctx, result.PointID)
			if errors.Is(err, storage.ErrNotFound) {
				logger.WarnContext(ctx, "passage text missing, skipping point", "point_id", result.PointID)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to load passage %s: %w", result.PointID, err)
			}
			doc.Content = rec.Content
			if doc.Source() == "" {
				doc.Metadata[MetadataSource] = rec.Source
			}
		}

		docs = append(docs, doc)
	}

	logger.DebugContext(ctx, "similarity search completed", "collection", s.collection, "k", k, "results", len(docs))
	return docs, nil
}

func documentFromPayload(payload map[string]any) Document {
	metadata := make(map[string]any)
	if nested, ok := payload["metadata"].(map[string]any); ok {
		for k, v := range nested {
			metadata[k] = v
		}
	}
	if _, ok := metadata[MetadataSource]; !ok {
		if src, ok := payload[MetadataSource].(string); ok {
			metadata[MetadataSource] = src
		}
	}

	content, _ := payload["content"].(string)
	if content == "" {
		content, _ = payload["text"].(string)
	}

	return Document{Content: content, Metadata: metadata}
}
