package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/service"
	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/service/mocks"
	vectorstore_mocks "github.com/abch2309-ux/azure-openai-rag-workshop/internal/vectorstore/mocks"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func newTestRouter(ctrl *gomock.Controller) (http.Handler, *mocks.MockChatService, *vectorstore_mocks.MockVectorStore) {
	chatService := mocks.NewMockChatService(ctrl)
	store := vectorstore_mocks.NewMockVectorStore(ctrl)
	router := NewRouter(&Deps{
		ChatService:      chatService,
		VectorStore:      store,
		QdrantCollection: "kbindex",
		Embedder:         stubEmbedder{},
		RequestTimeout:   5 * time.Second,
	})
	return router, chatService, store
}

func TestNewRouter(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _, _ := newTestRouter(ctrl)
	if router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		mockSetup  func(*mocks.MockChatService, *vectorstore_mocks.MockVectorStore)
		wantStatus int
	}{
		{
			name:   "POST /chat",
			method: http.MethodPost,
			path:   "/chat",
			body:   `{"messages":[{"role":"user","content":"hi"}]}`,
			mockSetup: func(c *mocks.MockChatService, _ *vectorstore_mocks.MockVectorStore) {
				c.EXPECT().ProcessChat(gomock.Any(), service.ChatRequest{
					Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
				}).Return(service.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "hello"}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /chat with invalid body",
			method:     http.MethodPost,
			path:       "/chat",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "GET /chat method not allowed",
			method:     http.MethodGet,
			path:       "/chat",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:   "GET /health",
			method: http.MethodGet,
			path:   "/health",
			mockSetup: func(_ *mocks.MockChatService, s *vectorstore_mocks.MockVectorStore) {
				s.EXPECT().CollectionExists(gomock.Any(), "kbindex").Return(true, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "OPTIONS /chat preflight",
			method:     http.MethodOptions,
			path:       "/chat",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/api/ask",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			router, chatService, store := newTestRouter(ctrl)
			if tt.mockSetup != nil {
				tt.mockSetup(chatService, store)
			}

			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Router %s %s status = %v, want %v", tt.method, tt.path, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_MiddlewareApplied(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, chatService, _ := newTestRouter(ctrl)
	chatService.EXPECT().ProcessChat(gomock.Any(), gomock.Any()).
		Return(service.ChatResponse{Message: llm.Message{Role: llm.RoleAssistant, Content: "hello"}}, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set("Origin", "http://localhost:8000")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:8000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:8000", got)
	}
	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Errorf("%s = %q, want req-42", RequestIDHeader, got)
	}

	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["context"]; !ok {
		t.Errorf("response has no context field: %v", resp)
	}
}

func TestRouter_RecoversFromPanics(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, chatService, _ := newTestRouter(ctrl)
	chatService.EXPECT().ProcessChat(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, service.ChatRequest) (service.ChatResponse, error) {
			panic("boom")
		})

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
}

func TestRouter_ErrorCarriesRequestID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, chatService, _ := newTestRouter(ctrl)
	chatService.EXPECT().ProcessChat(gomock.Any(), gomock.Any()).
		Return(service.ChatResponse{}, service.ExternalError(context.DeadlineExceeded, "failed to complete chat turn"))

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	req.Header.Set(RequestIDHeader, "req-502")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusBadGateway)
	}
	var resp struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID != "req-502" {
		t.Errorf("request_id = %q, want req-502", resp.RequestID)
	}
}
