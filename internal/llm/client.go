package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/auth"
)

// Client is a client for an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL string
	Model   string
	tokens  auth.TokenProvider
	client  *http.Client
}

// NewClient creates a new LLM client. Every request is authenticated with a
// bearer token obtained from tokens.
func NewClient(baseURL string, tokens auth.TokenProvider, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		tokens:  tokens,
		client:  http.DefaultClient,
	}
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature"`
	N           int       `json:"n,omitempty"`
}

// ChatChoiceMessage represents the message in a chat choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      ChatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// ChatWithMessages sends an ordered message list to the chat completions API
// and returns the content of the first choice.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	model := params.Model
	if model == "" {
		model = c.Model
	}

	payload := ChatRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
		N:           params.N,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to obtain credential: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Generator binds a Client to fixed completion parameters so callers only
// supply the messages of a turn.
type Generator struct {
	client *Client
	params ChatParams
}

// NewGenerator creates a Generator that sends every request with params.
func NewGenerator(client *Client, params ChatParams) *Generator {
	return &Generator{client: client, params: params}
}

// Generate returns the assistant reply for messages.
func (g *Generator) Generate(ctx context.Context, messages []Message) (string, error) {
	return g.client.ChatWithMessages(ctx, messages, g.params)
}
