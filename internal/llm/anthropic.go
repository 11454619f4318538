package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/top3hunter/recommend-service/internal/domain"
)

const (
	defaultAnthropicURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
)

// AnthropicProvider generates recommendations through the Anthropic messages
// API with a forced tool choice matching the product schema.
type AnthropicProvider struct {
	client  *http.Client
	baseURL string
}

// NewAnthropicProvider constructs the Anthropic provider.
func NewAnthropicProvider() *AnthropicProvider {
	return &AnthropicProvider{client: &http.Client{}, baseURL: defaultAnthropicURL}
}

// NewAnthropicProviderWithURL constructs the provider against a custom
// endpoint. Used by tests to point at a fake server.
func NewAnthropicProviderWithURL(baseURL string, client *http.Client) *AnthropicProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &AnthropicProvider{client: client, baseURL: baseURL}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicRequest struct {
	Model      string             `json:"model"`
	MaxTokens  int                `json:"max_tokens"`
	System     string             `json:"system"`
	Messages   []anthropicMessage `json:"messages"`
	Tools      []anthropicTool    `json:"tools"`
	ToolChoice map[string]string  `json:"tool_choice"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content"`
}

// GenerateProducts posts the prompt with a forced tool choice and decodes the
// tool_use block from the response.
func (p *AnthropicProvider) GenerateProducts(ctx context.Context, req GenerateRequest) ([]domain.ProductRecommendation, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     req.Model,
		MaxTokens: 4000,
		System:    req.SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.UserPrompt},
		},
		Tools: []anthropicTool{
			{Name: ToolName, Description: toolDescription, InputSchema: toolSchema()},
		},
		ToolChoice: map[string]string{"type": "tool", "name": ToolName},
	})
	if err != nil {
		return nil, &ExtractionError{Reason: ReasonProvider, Message: "failed to encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &ExtractionError{Reason: ReasonProvider, Message: "failed to build request", Err: err}
	}
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, &ExtractionError{Reason: ReasonTimeout, Message: "model request timed out", Err: err}
		}
		return nil, &ExtractionError{Reason: ReasonProvider, Message: "model request failed", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, &ExtractionError{Reason: ReasonQuotaExceeded, Message: "model API quota exceeded"}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &ExtractionError{Reason: ReasonProvider, Message: fmt.Sprintf("model API returned %d", resp.StatusCode)}
	}

	var data anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &ExtractionError{Reason: ReasonMalformedOutput, Message: "failed to decode model response", Err: err}
	}

	for _, block := range data.Content {
		if block.Type == "tool_use" && block.Name == ToolName {
			return decodeToolArguments(block.Input)
		}
	}

	return nil, &ExtractionError{Reason: ReasonMalformedOutput, Message: "model response has no tool_use block"}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
