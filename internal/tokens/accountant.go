// Package tokens estimates the token cost of chat messages for prompt budgeting.
package tokens

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/abch2309-ux/azure-openai-rag-workshop/internal/llm"
)

// MessageOverhead is the framing cost charged for every chat message.
const MessageOverhead = 3

// fallbackEncoding is used for model ids tiktoken does not recognise.
const fallbackEncoding = "cl100k_base"

func init() {
	// BPE ranks are embedded in the binary; no download at startup.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Accountant estimates the token cost of a single role+content message.
// Implementations must be deterministic so running totals can be compared
// against a fixed ceiling.
type Accountant interface {
	Estimate(role llm.Role, content string) int
}

// Sum returns the total estimated cost of messages.
func Sum(acc Accountant, messages []llm.Message) int {
	total := 0
	for _, m := range messages {
		total += acc.Estimate(m.Role, m.Content)
	}
	return total
}

// New returns the accountant named by kind ("tiktoken" or "heuristic") for model.
func New(kind, model string) (Accountant, error) {
	switch kind {
	case "heuristic":
		return NewHeuristic(), nil
	case "tiktoken":
		return NewTiktoken(model)
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", kind)
	}
}

// Heuristic approximates tokens as one per four runes.
type Heuristic struct {
	RunesPerToken int
}

// NewHeuristic returns a Heuristic with the usual four-runes-per-token ratio.
func NewHeuristic() *Heuristic {
	return &Heuristic{RunesPerToken: 4}
}

// Estimate implements Accountant.
func (h *Heuristic) Estimate(role llm.Role, content string) int {
	return MessageOverhead + h.count(string(role)) + h.count(content)
}

func (h *Heuristic) count(s string) int {
	ratio := h.RunesPerToken
	if ratio <= 0 {
		ratio = 4
	}
	n := utf8.RuneCountInString(s)
	// round up so any non-empty text costs at least one token
	return (n + ratio - 1) / ratio
}

// Tiktoken counts BPE tokens with the encoding used by the target model.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for model, falling back to cl100k_base.
func NewTiktoken(model string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("tokenizer: get encoding: %w", err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// Estimate implements Accountant.
func (t *Tiktoken) Estimate(role llm.Role, content string) int {
	return MessageOverhead + t.count(string(role)) + t.count(content)
}

func (t *Tiktoken) count(s string) int {
	if s == "" {
		return 0
	}
	return len(t.enc.Encode(s, nil, nil))
}
