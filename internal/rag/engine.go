package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks github.com/abch2309-ux/azure-openai-rag-workshop/internal/rag Generator
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_engine.go -package=mocks github.com/abch2309-ux/azure-openai-rag-workshop/internal/rag Engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/prompt"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/retrieval"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/tokens"
)

const (
	// DefaultRetrievalCount is the number of passages fetched per turn.
	DefaultRetrievalCount = 3
	// DefaultTokenCeiling bounds the estimated size of the assembled prompt.
	DefaultTokenCeiling = 4000
)

// DefaultSystemPrompt instructs the model to answer only from the injected sources.
const DefaultSystemPrompt = `Assistant helps the Consto Real Estate company customers with support questions regarding terms of service, privacy policy, and questions about support requests. Be brief in your answers.
Answer ONLY with the facts listed in the list of sources below. If there isn't enough information below, say you don't know. Do not generate answers that don't use the sources below. If asking a clarifying question to the user would help, ask the question.
For tabular information return it as an html table. Do not return markdown format. If the question is not in English, answer in the language used in the question.
Each source has a name followed by colon and the actual information, always include the source name for each fact you use in the response. Use square brackets to reference the source, for example: [info1.txt]. Don't combine sources, list each source separately, for example: [info1.txt][info2.txt].`

// Engine runs retrieval-augmented chat turns.
type Engine interface {
	// Chat answers the last message of messages using retrieved sources and
	// as much of the earlier history as fits the token ceiling.
	Chat(ctx context.Context, messages []llm.Message) (Completion, error)
}

// Generator produces the assistant reply for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, messages []llm.Message) (string, error)
}

// Option configures an engine.
type Option func(*ragEngine)

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(s string) Option {
	return func(e *ragEngine) { e.systemPrompt = s }
}

// WithModel sets the model identifier the prompt is built for.
func WithModel(model string) Option {
	return func(e *ragEngine) { e.model = model }
}

// WithRetrievalCount sets how many passages are retrieved per turn.
func WithRetrievalCount(k int) Option {
	return func(e *ragEngine) { e.k = k }
}

// WithTokenCeiling sets the prompt token ceiling.
func WithTokenCeiling(n int) Option {
	return func(e *ragEngine) { e.ceiling = n }
}

// ragEngine implements Engine. It holds only immutable collaborators and is
// safe for concurrent use; each turn builds its own prompt.
type ragEngine struct {
	retriever    *retrieval.Step
	generator    Generator
	accountant   tokens.Accountant
	systemPrompt string
	model        string
	k            int
	ceiling      int
}

// NewEngine creates a new RAG engine.
func NewEngine(searcher retrieval.Searcher, generator Generator, accountant tokens.Accountant, opts ...Option) Engine {
	e := &ragEngine{
		retriever:    retrieval.NewStep(searcher),
		generator:    generator,
		accountant:   accountant,
		systemPrompt: DefaultSystemPrompt,
		k:            DefaultRetrievalCount,
		ceiling:      DefaultTokenCeiling,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Chat implements Engine.
func (e *ragEngine) Chat(ctx context.Context, messages []llm.Message) (Completion, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(messages) == 0 {
		return Completion{}, ErrEmptyConversation
	}

	query := messages[len(messages)-1].Content
	logger.InfoContext(ctx, "chat turn started", "history_length", len(messages)-1, "query_length", len(query))

	passages, err := e.retriever.Retrieve(ctx, query, e.k)
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return Completion{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	augmented := query + "\n\nSources:\n" + retrieval.SourceBlock(passages)

	builder := prompt.New(e.systemPrompt, e.model, e.accountant)
	_ = builder.AppendMessage(llm.RoleUser, augmented)

	included := appendHistory(builder, messages[:len(messages)-1], e.ceiling)
	logger.InfoContext(ctx, "prompt assembled",
		"passages", len(passages),
		"history_included", included,
		"history_excluded", len(messages)-1-included,
		"prompt_tokens", builder.Tokens(),
		"token_ceiling", e.ceiling,
	)

	final := builder.Messages()
	thoughts := trace(query, final)
	logger.DebugContext(ctx, "prompt trace", "thoughts", thoughts)

	answer, err := e.generator.Generate(ctx, final)
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "error", err)
		return Completion{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	logger.InfoContext(ctx, "chat turn completed", "answer_length", len(answer))

	return Completion{
		Message:    llm.Message{Role: llm.RoleAssistant, Content: answer},
		DataPoints: retrieval.FormatSources(passages),
		Thoughts:   strings.ReplaceAll(thoughts, "\n", "<br>"),
	}, nil
}

// appendHistory appends history newest first and stops at the first message
// that pushes the prompt over ceiling, after removing it again. Older messages
// are never tried once one has been rejected. It returns how many were kept.
func appendHistory(b *prompt.Builder, history []llm.Message, ceiling int) int {
	included := 0
	for i := len(history) - 1; i >= 0; i-- {
		_ = b.AppendMessage(history[i].Role, history[i].Content)
		if b.Tokens() > ceiling {
			b.PopMessage()
			break
		}
		included++
	}
	return included
}

// trace renders the search query and the prompt in builder order. History
// therefore appears after the user message, newest first.
func trace(query string, messages []llm.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return "Search query:\n" + query + "\n\nConversation:\n" + strings.Join(lines, "\n\n")
}
