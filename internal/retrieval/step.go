package retrieval

import (
	"context"
	"regexp"
	"strings"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// Step runs the retrieval part of a chat turn.
type Step struct {
	searcher Searcher
}

// NewStep creates a Step backed by searcher.
func NewStep(searcher Searcher) *Step {
	return &Step{searcher: searcher}
}

// Retrieve returns the top k passages for query in the searcher's order.
// Searcher errors are returned unchanged.
func (s *Step) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	docs, err := s.searcher.SimilaritySearch(ctx, query, k)
	if err != nil {
		return nil, err
	}

	passages := make([]Passage, 0, len(docs))
	for _, doc := range docs {
		passages = append(passages, Passage{
			SourceID: doc.Source(),
			Text:     NormalizeText(doc.Content),
		})
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "passages retrieved", "k", k, "count", len(passages))
	return passages, nil
}

// NormalizeText collapses every run of line-break characters into one space.
func NormalizeText(s string) string {
	return lineBreaks.ReplaceAllString(s, " ")
}

// FormatSource renders a passage as "sourceId: text".
func FormatSource(p Passage) string {
	return p.SourceID + ": " + p.Text
}

// FormatSources renders each passage with FormatSource, preserving order.
func FormatSources(passages []Passage) []string {
	lines := make([]string, 0, len(passages))
	for _, p := range passages {
		lines = append(lines, FormatSource(p))
	}
	return lines
}

// SourceBlock joins the formatted passages one per line.
func SourceBlock(passages []Passage) string {
	return strings.Join(FormatSources(passages), "\n")
}
