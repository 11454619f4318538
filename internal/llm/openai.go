package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// OpenAIProvider generates recommendations through the OpenAI chat
// completions API with a function tool matching the product schema.
type OpenAIProvider struct {
	baseURL string
}

// NewOpenAIProvider constructs the OpenAI provider.
func NewOpenAIProvider() *OpenAIProvider {
	return &OpenAIProvider{}
}

// NewOpenAIProviderWithBaseURL constructs the provider against a custom
// endpoint. Used by tests to point at a fake server.
func NewOpenAIProviderWithBaseURL(baseURL string) *OpenAIProvider {
	return &OpenAIProvider{baseURL: baseURL}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// GenerateProducts sends the prompt with the report_top3_products tool and
// decodes the tool call the model makes in response.
func (p *OpenAIProvider) GenerateProducts(ctx context.Context, req GenerateRequest) ([]domain.ProductRecommendation, error) {
	opts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if p.baseURL != "" {
		opts = append(opts, option.WithBaseURL(p.baseURL))
	}
	client := openai.NewClient(opts...)

	params := openai.ChatCompletionNewParams{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Tools: []openai.ChatCompletionToolUnionParam{
			{
				OfFunction: &openai.ChatCompletionFunctionToolParam{
					Function: openai.FunctionDefinitionParam{
						Name:        ToolName,
						Description: openai.String(toolDescription),
						Parameters:  toolSchema(),
					},
					Type: constant.ValueOf[constant.Function](),
				},
			},
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(4000),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, &ExtractionError{Reason: ReasonMalformedOutput, Message: "completion has no choices"}
	}

	for _, call := range resp.Choices[0].Message.ToolCalls {
		if call.Function.Name == ToolName {
			return decodeToolArguments([]byte(call.Function.Arguments))
		}
	}

	return nil, &ExtractionError{Reason: ReasonMalformedOutput, Message: "model did not call the report tool"}
}

func classifyOpenAIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExtractionError{Reason: ReasonTimeout, Message: "model request timed out", Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return &ExtractionError{Reason: ReasonQuotaExceeded, Message: "model API quota exceeded", Err: err}
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return &ExtractionError{Reason: ReasonTimeout, Message: "model request timed out", Err: err}
		}
		return &ExtractionError{Reason: ReasonProvider, Message: "model API request failed", Err: err}
	}

	return &ExtractionError{Reason: ReasonProvider, Message: "model request failed", Err: err}
}
