package retrieval_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/retrieval"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/retrieval/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doc(source, content string) retrieval.Document {
	return retrieval.Document{
		Content:  content,
		Metadata: map[string]any{retrieval.MetadataSource: source},
	}
}

func TestStep_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	searcher := mocks.NewMockSearcher(ctrl)
	searcher.EXPECT().
		SimilaritySearch(gomock.Any(), "What is the refund policy?", 3).
		Return([]retrieval.Document{
			doc("terms.txt", "Refunds\nwithin 30 days"),
			doc("support.txt", "line1\r\nline2"),
			doc("privacy policy.txt", "no breaks"),
		}, nil)

	passages, err := retrieval.NewStep(searcher).Retrieve(context.Background(), "What is the refund policy?", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	want := []retrieval.Passage{
		{SourceID: "terms.txt", Text: "Refunds within 30 days"},
		{SourceID: "support.txt", Text: "line1 line2"},
		{SourceID: "privacy policy.txt", Text: "no breaks"},
	}
	if diff := cmp.Diff(want, passages); diff != "" {
		t.Errorf("Retrieve() mismatch (-want +got):\n%s", diff)
	}
}

func TestStep_Retrieve_PropagatesError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	unavailable := errors.New("service unavailable")
	searcher := mocks.NewMockSearcher(ctrl)
	// exactly one call: failures are not retried
	searcher.EXPECT().SimilaritySearch(gomock.Any(), "q", 3).Return(nil, unavailable).Times(1)

	passages, err := retrieval.NewStep(searcher).Retrieve(context.Background(), "q", 3)
	if !errors.Is(err, unavailable) {
		t.Errorf("Retrieve() error = %v, want %v", err, unavailable)
	}
	if passages != nil {
		t.Errorf("Retrieve() passages = %v, want nil", passages)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "line1\r\nline2", want: "line1 line2"},
		{in: "a\n\n\nb", want: "a b"},
		{in: "a\rb\nc", want: "a b c"},
		{in: "\nleading and trailing\n", want: " leading and trailing "},
		{in: "tabs\tstay", want: "tabs\tstay"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		if got := retrieval.NormalizeText(tt.in); got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSourceBlock(t *testing.T) {
	passages := []retrieval.Passage{
		{SourceID: "terms.txt", Text: "Refunds within 30 days"},
		{SourceID: "info: colon.txt", Text: "Support hours 9-5"},
	}

	if got, want := retrieval.SourceBlock(passages), "terms.txt: Refunds within 30 days\ninfo: colon.txt: Support hours 9-5"; got != want {
		t.Errorf("SourceBlock() = %q, want %q", got, want)
	}
	if got := retrieval.SourceBlock(nil); got != "" {
		t.Errorf("SourceBlock(nil) = %q, want empty", got)
	}
}

func TestFormatSources_RecoversSourceIDs(t *testing.T) {
	passages := []retrieval.Passage{
		{SourceID: "terms.txt", Text: retrieval.NormalizeText("Refunds\nwithin 30 days")},
		{SourceID: "  spaced id ", Text: "x"},
		{SourceID: "ünïcode.md", Text: retrieval.NormalizeText("a\r\nb")},
	}

	lines := retrieval.FormatSources(passages)
	if len(lines) != len(passages) {
		t.Fatalf("FormatSources() returned %d lines, want %d", len(lines), len(passages))
	}
	for i, line := range lines {
		if strings.Contains(line, "\n") {
			t.Errorf("line %d contains a newline: %q", i, line)
		}
		id, text, ok := strings.Cut(line, ": ")
		if !ok {
			t.Errorf("line %d = %q has no separator", i, line)
			continue
		}
		if id != passages[i].SourceID {
			t.Errorf("line %d id = %q, want %q", i, id, passages[i].SourceID)
		}
		if text != passages[i].Text {
			t.Errorf("line %d text = %q, want %q", i, text, passages[i].Text)
		}
	}
}
