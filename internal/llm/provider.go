package llm

import (
	"context"
	"encoding/json"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// ToolName is the function the model must call to report its recommendations.
const ToolName = "report_top3_products"

const toolDescription = "Report the top 3 product recommendations derived from the supplied search results."

// GenerateRequest carries everything a provider needs for one structured
// generation. Credentials and model selection come from the configuration
// store per request, so admin changes apply within the refresh bound.
type GenerateRequest struct {
	APIKey       string
	Model        string
	SystemPrompt string
	UserPrompt   string
}

// Provider is the capability contract for language-model vendors. Concrete
// providers differ only in request/response translation; all of them return
// strictly-typed products or a classified *ExtractionError.
type Provider interface {
	Name() string
	GenerateProducts(ctx context.Context, req GenerateRequest) ([]domain.ProductRecommendation, error)
}

// toolSchema is the JSON schema for the forced tool call, shared by all
// providers (OpenAI takes it as function parameters, Anthropic as input_schema).
func toolSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"products": map[string]any{
				"type":     "array",
				"minItems": 3,
				"maxItems": 3,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"rank":         map[string]any{"type": "integer", "minimum": 1, "maximum": 3},
						"product_name": map[string]any{"type": "string"},
						"description":  map[string]any{"type": "string"},
						"source_link":  map[string]any{"type": "string"},
						"price":        map[string]any{"type": "string"},
						"rating":       map[string]any{"type": "number", "minimum": 0, "maximum": 5},
						"pros":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"cons":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"best_for":     map[string]any{"type": "string"},
					},
					"required": []string{"rank", "product_name", "description", "source_link"},
				},
			},
		},
		"required": []string{"products"},
	}
}

type toolPayload struct {
	Products []domain.ProductRecommendation `json:"products"`
}

// decodeToolArguments converts raw tool-call argument JSON into typed
// products. Anything that does not decode is malformed output; raw provider
// JSON never crosses this boundary.
func decodeToolArguments(raw []byte) ([]domain.ProductRecommendation, error) {
	var payload toolPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ExtractionError{
			Reason:  ReasonMalformedOutput,
			Message: "tool arguments are not valid JSON",
			Err:     err,
		}
	}
	if len(payload.Products) == 0 {
		return nil, &ExtractionError{
			Reason:  ReasonMalformedOutput,
			Message: "tool arguments contain no products",
		}
	}
	return payload.Products, nil
}
