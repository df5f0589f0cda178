// Package prompt assembles the message list sent to the generation model
// while tracking its estimated token cost.
package prompt

import (
	"errors"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/tokens"
)

// ErrFinalized is returned when a builder is mutated after Messages was called.
var ErrFinalized = errors.New("prompt already finalized")

// Builder holds an ordered prompt whose first entry is always the system
// message. It is owned by a single turn and is not safe for concurrent use.
type Builder struct {
	model     string
	acc       tokens.Accountant
	messages  []llm.Message
	costs     []int
	tokens    int
	finalized bool
}

// New creates a builder seeded with the system prompt for model.
func New(systemPrompt, model string, acc tokens.Accountant) *Builder {
	cost := acc.Estimate(llm.RoleSystem, systemPrompt)
	return &Builder{
		model:    model,
		acc:      acc,
		messages: []llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}},
		costs:    []int{cost},
		tokens:   cost,
	}
}

// AppendMessage adds a message to the end of the prompt. It performs no
// budget check; callers inspect Tokens afterwards and PopMessage to undo.
func (b *Builder) AppendMessage(role llm.Role, content string) error {
	if b.finalized {
		return ErrFinalized
	}
	cost := b.acc.Estimate(role, content)
	b.messages = append(b.messages, llm.Message{Role: role, Content: content})
	b.costs = append(b.costs, cost)
	b.tokens += cost
	return nil
}

// PopMessage removes the most recently appended message and subtracts its
// cost. It reports false, leaving the builder unchanged, when only the system
// message remains or the builder is finalized.
func (b *Builder) PopMessage() bool {
	if b.finalized || len(b.messages) <= 1 {
		return false
	}
	last := len(b.messages) - 1
	b.tokens -= b.costs[last]
	b.messages = b.messages[:last]
	b.costs = b.costs[:last]
	return true
}

// Tokens returns the running token total of the messages currently held.
func (b *Builder) Tokens() int {
	return b.tokens
}

// Model returns the model identifier the prompt is built for.
func (b *Builder) Model() string {
	return b.model
}

// Len returns the number of messages, including the system message.
func (b *Builder) Len() int {
	return len(b.messages)
}

// Finalized reports whether Messages has been called.
func (b *Builder) Finalized() bool {
	return b.finalized
}

// Messages returns a copy of the prompt in append order and finalizes the
// builder; later AppendMessage and PopMessage calls are refused.
func (b *Builder) Messages() []llm.Message {
	b.finalized = true
	out := make([]llm.Message, len(b.messages))
	copy(out, b.messages)
	return out
}
