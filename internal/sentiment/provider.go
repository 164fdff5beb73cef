// Package sentiment classifies free-text feedback comments through a
// provider-agnostic LLM gateway.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotJSON is returned when a JSON-mode request gets a reply that is not a
// JSON object. The router treats it like any other provider failure and
// falls through to the next provider.
var ErrNotJSON = errors.New("reply is not a JSON object")

// StatusError is a non-200 answer from a provider API.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Code, e.Body)
}

// checkJSON enforces req.JSON on a reply. Code fences are tolerated here and
// stripped later by the classifier.
func checkJSON(req CompletionRequest, content string) error {
	if !req.JSON {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFence(content)), &obj); err != nil {
		return fmt.Errorf("%w: %.80q", ErrNotJSON, content)
	}
	return nil
}

// Message is one chat message sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a completion.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	// JSON asks the provider to constrain output to a JSON object, where supported.
	JSON bool `json:"json,omitempty"`
}

// CompletionResponse is the output of a completion.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// Provider is implemented by every LLM backend.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}
