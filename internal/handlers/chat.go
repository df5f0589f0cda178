package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/contextutil"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/service"
)

// maxRequestBytes caps the size of a chat request body.
const maxRequestBytes = 1 << 20

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest represents the HTTP request payload for chat.
//
// swagger:model ChatRequest
type ChatRequest struct {
	// Conversation in chronological order; the last message is the question.
	Messages []llm.Message `json:"messages"`
}

// ChatResponse represents the HTTP response payload for chat.
//
// swagger:model ChatResponse
type ChatResponse struct {
	Message llm.Message  `json:"message"`
	Context ChatEvidence `json:"context"`
}

// ChatEvidence carries the retrieved sources and the prompt trace.
type ChatEvidence struct {
	// Retrieved passages formatted as "source: text".
	DataPoints []string `json:"data_points"`
	// Search query and prompt, with line breaks rendered as <br>.
	Thoughts string `json:"thoughts"`
}

// ErrorResponse represents an error response. RequestID matches the
// request_id attribute of the server-side log lines for the request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ServeHTTP handles HTTP requests for chat.
//
// swagger:route POST /chat chat
//
// # Answer the last message of a conversation
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  schema:
//	    "$ref": "#/definitions/ChatResponse"
//	'400':
//	  description: Invalid request
//	'502':
//	  description: Retrieval or generation failed
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		h.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		h.writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	svcResp, err := h.chatService.ProcessChat(ctx, service.ChatRequest{Messages: req.Messages})
	if err != nil {
		h.handleServiceError(w, r, err, "Failed to process chat request")
		return
	}

	dataPoints := svcResp.DataPoints
	if dataPoints == nil {
		dataPoints = []string{}
	}
	resp := ChatResponse{
		Message: svcResp.Message,
		Context: ChatEvidence{
			DataPoints: dataPoints,
			Thoughts:   svcResp.Thoughts,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func (h *ChatHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}

	if errors.Is(err, service.ErrInvalidInput) {
		h.writeError(w, r, http.StatusBadRequest, "Invalid input")
		return
	}

	if errors.Is(err, service.ErrExternalService) {
		h.writeError(w, r, http.StatusBadGateway, "External service error")
		return
	}

	h.writeError(w, r, http.StatusInternalServerError, defaultMsg)
}

// writeError writes an error response.
func (h *ChatHandler) writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     message,
		RequestID: contextutil.RequestIDFromContext(r.Context()),
	})
}
