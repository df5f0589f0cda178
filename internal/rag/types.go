package rag

import (
	"errors"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
)

var (
	// ErrEmptyConversation is returned when a turn has no messages.
	ErrEmptyConversation = errors.New("conversation has no messages")
	// ErrRetrieval wraps failures of the retrieval collaborator.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration wraps failures of the generation collaborator.
	ErrGeneration = errors.New("generation failed")
)

// Completion is the result of one chat turn.
type Completion struct {
	// Message is the assistant reply.
	Message llm.Message
	// DataPoints are the retrieved passages formatted as "source: text", in retrieval order.
	DataPoints []string
	// Thoughts is a human-readable trace of the search query and the prompt
	// sent to the model, with line breaks rendered as "<br>".
	Thoughts string
}
