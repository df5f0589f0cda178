// Package retrieval fetches knowledge passages relevant to a chat question
// and formats them as labeled source lines.
package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_searcher.go -package=mocks github.com/abch2309-ux/azure-openai-rag-workshop/internal/retrieval Searcher

import "context"

// MetadataSource is the metadata key holding a document's source identifier.
const MetadataSource = "source"

// Document is one similarity-search hit.
type Document struct {
	Content  string
	Metadata map[string]any
}

// Source returns the document's source identifier, or "" if it has none.
func (d Document) Source() string {
	s, _ := d.Metadata[MetadataSource].(string)
	return s
}

// Searcher returns the k documents most relevant to query, most relevant first.
// Implementations must be safe for concurrent use.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}

// Passage is a retrieved snippet ready for prompt injection. Text never
// contains line breaks.
type Passage struct {
	SourceID string
	Text     string
}
