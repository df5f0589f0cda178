package prompt

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/tokens"
)

// lengthAccountant charges one token per byte of content, which keeps the
// expected totals easy to read.
type lengthAccountant struct{}

func (lengthAccountant) Estimate(_ llm.Role, content string) int {
	return len(content)
}

func TestNew(t *testing.T) {
	b := New("be brief", "gpt-35-turbo", lengthAccountant{})

	if b.Tokens() != len("be brief") {
		t.Errorf("Tokens() = %d, want %d", b.Tokens(), len("be brief"))
	}
	if b.Model() != "gpt-35-turbo" {
		t.Errorf("Model() = %q, want gpt-35-turbo", b.Model())
	}
	want := []llm.Message{{Role: llm.RoleSystem, Content: "be brief"}}
	if diff := cmp.Diff(want, b.Messages()); diff != "" {
		t.Errorf("Messages() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuilder_AppendAndPop(t *testing.T) {
	b := New("sys", "m", lengthAccountant{})

	if err := b.AppendMessage(llm.RoleUser, "question"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if err := b.AppendMessage(llm.RoleAssistant, "answer"); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	if got, want := b.Tokens(), len("sys")+len("question")+len("answer"); got != want {
		t.Errorf("Tokens() = %d, want %d", got, want)
	}

	if !b.PopMessage() {
		t.Fatal("PopMessage() = false, want true")
	}
	if got, want := b.Tokens(), len("sys")+len("question"); got != want {
		t.Errorf("Tokens() after pop = %d, want %d", got, want)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}

	// LIFO: the user message goes next, then the system message is protected.
	if !b.PopMessage() {
		t.Fatal("PopMessage() = false, want true")
	}
	if b.PopMessage() {
		t.Error("PopMessage() removed the system message")
	}
	if b.Len() != 1 || b.Tokens() != len("sys") {
		t.Errorf("Len()/Tokens() = %d/%d, want 1/%d", b.Len(), b.Tokens(), len("sys"))
	}
}

func TestBuilder_TokensMatchesSumOfEstimates(t *testing.T) {
	acc := tokens.NewHeuristic()
	b := New("You answer from sources only.", "m", acc)

	ops := []struct {
		pop     bool
		role    llm.Role
		content string
	}{
		{role: llm.RoleUser, content: "What is the refund policy?"},
		{role: llm.RoleAssistant, content: "Refunds are accepted within 30 days."},
		{pop: true},
		{role: llm.RoleUser, content: "And for digital goods?"},
		{pop: true},
		{pop: true},
		{pop: true},
		{role: llm.RoleAssistant, content: ""},
	}

	for i, op := range ops {
		if op.pop {
			b.PopMessage()
		} else if err := b.AppendMessage(op.role, op.content); err != nil {
			t.Fatalf("op %d: AppendMessage() error = %v", i, err)
		}
		if got, want := b.Tokens(), tokens.Sum(acc, b.messages); got != want {
			t.Fatalf("op %d: Tokens() = %d, want sum of estimates %d", i, got, want)
		}
	}
}

func TestBuilder_MessagesFinalizes(t *testing.T) {
	b := New("sys", "m", lengthAccountant{})
	_ = b.AppendMessage(llm.RoleUser, "q")

	got := b.Messages()
	if !b.Finalized() {
		t.Error("Finalized() = false after Messages()")
	}

	if err := b.AppendMessage(llm.RoleUser, "late"); !errors.Is(err, ErrFinalized) {
		t.Errorf("AppendMessage() after export error = %v, want ErrFinalized", err)
	}
	if b.PopMessage() {
		t.Error("PopMessage() after export = true, want false")
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}

	// The exported slice is a copy.
	got[0].Content = "mutated"
	if b.Messages()[0].Content != "sys" {
		t.Error("Messages() exposed internal storage")
	}
}
