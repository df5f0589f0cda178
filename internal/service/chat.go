package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_service.go -package=mocks -mock_names=ChatService=MockChatService github.com/abch2309-ux/azure-openai-rag-workshop/internal/service ChatService

import (
	"context"
	"fmt"
	"strings"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/rag"
)

// ChatRequest represents a chat request in the domain layer.
type ChatRequest struct {
	// Messages is the conversation in chronological order. The last entry is
	// the question being asked.
	Messages []llm.Message
}

// ChatResponse represents a chat response in the domain layer.
type ChatResponse struct {
	Message    llm.Message
	DataPoints []string
	Thoughts   string
}

// ChatService provides chat functionality.
type ChatService interface {
	// ProcessChat validates a conversation and answers its last message.
	ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// chatService implements ChatService.
type chatService struct {
	engine rag.Engine
}

// NewChatService creates a new ChatService.
func NewChatService(engine rag.Engine) ChatService {
	return &chatService{engine: engine}
}

// ProcessChat processes a chat request.
func (s *chatService) ProcessChat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := validate(req); err != nil {
		logger.WarnContext(ctx, "invalid chat request", "error", err)
		return ChatResponse{}, err
	}

	completion, err := s.engine.Chat(ctx, req.Messages)
	if err != nil {
		logger.ErrorContext(ctx, "failed to complete chat turn", "error", err)
		return ChatResponse{}, ExternalError(err, "failed to complete chat turn")
	}

	logger.InfoContext(ctx, "chat request processed successfully",
		"messages", len(req.Messages),
		"data_points", len(completion.DataPoints),
		"reply_length", len(completion.Message.Content),
	)
	return ChatResponse{
		Message:    completion.Message,
		DataPoints: completion.DataPoints,
		Thoughts:   completion.Thoughts,
	}, nil
}

func validate(req ChatRequest) error {
	if len(req.Messages) == 0 {
		return &ValidationError{Field: "messages", Message: "cannot be empty"}
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unknown role %q", m.Role),
			}
		}
	}
	last := len(req.Messages) - 1
	if strings.TrimSpace(req.Messages[last].Content) == "" {
		return &ValidationError{
			Field:   fmt.Sprintf("messages[%d].content", last),
			Message: "cannot be empty",
		}
	}
	return nil
}
