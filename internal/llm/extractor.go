package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/log"
)

const repairInstruction = `

STRICT FORMAT REQUIREMENTS: your previous answer was rejected. Return exactly 3 products with ranks 1, 2 and 3, each exactly once. Every source_link must be copied verbatim from a link in the search results above. Do not invent or modify links.`

// Extractor turns search results into exactly three validated product
// recommendations using the configured language-model provider.
type Extractor struct {
	settings  *settings.Service
	providers map[string]Provider
}

// NewExtractor creates an extractor over the given providers. Provider
// selection happens per request through the configuration store.
func NewExtractor(cfg *settings.Service, providers ...Provider) *Extractor {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Extractor{settings: cfg, providers: m}
}

// Extract builds the prompt from the configured templates, requests a
// structured generation, and validates the result. A structurally invalid
// generation gets one repair attempt with a stricter instruction; quota and
// network failures propagate immediately.
func (e *Extractor) Extract(ctx context.Context, keyword string, results []domain.SearchResult) ([]domain.ProductRecommendation, error) {
	if len(results) == 0 {
		return nil, &ExtractionError{Reason: ReasonInvalid, Message: "no search results to analyze"}
	}

	providerName, err := e.settings.Get(settings.KeyLLMProvider)
	if err != nil {
		return nil, err
	}
	provider, ok := e.providers[strings.ToLower(strings.TrimSpace(providerName))]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerName)
	}

	apiKey, err := e.settings.Get(settings.KeyLLMAPIKey)
	if err != nil {
		return nil, err
	}
	model, err := e.settings.Get(settings.KeyLLMModelName)
	if err != nil {
		return nil, err
	}
	systemPrompt, err := e.settings.Get(settings.KeySystemPrompt)
	if err != nil {
		return nil, err
	}
	template, err := e.settings.Get(settings.KeyUserPromptTemplate)
	if err != nil {
		return nil, err
	}

	userPrompt, err := buildUserPrompt(template, keyword, results)
	if err != nil {
		return nil, err
	}

	timeout := e.settings.Seconds(settings.KeyLLMTimeout, 60*time.Second)
	req := GenerateRequest{
		APIKey:       apiKey,
		Model:        model,
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
	}

	products, genErr := e.generate(ctx, provider, req, timeout)
	if genErr == nil {
		if valErr := validateProducts(products, results); valErr == nil {
			return sortByRank(products), nil
		} else {
			genErr = valErr
		}
	}

	if !repairable(genErr) {
		return nil, genErr
	}

	l := log.Ctx(ctx)
	l.Warn().Err(genErr).
		Str(log.FieldKeyword, keyword).
		Str(log.FieldProvider, provider.Name()).
		Msg("model output rejected, attempting repair")

	req.UserPrompt = userPrompt + repairInstruction
	products, genErr = e.generate(ctx, provider, req, timeout)
	if genErr != nil {
		if repairable(genErr) {
			return nil, &ExtractionError{Reason: ReasonInvalid, Message: "model output still invalid after repair", Err: genErr}
		}
		return nil, genErr
	}
	if valErr := validateProducts(products, results); valErr != nil {
		return nil, &ExtractionError{Reason: ReasonInvalid, Message: "model output still invalid after repair", Err: valErr}
	}
	return sortByRank(products), nil
}

func (e *Extractor) generate(ctx context.Context, provider Provider, req GenerateRequest, timeout time.Duration) ([]domain.ProductRecommendation, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return provider.GenerateProducts(ctx, req)
}

// repairable reports whether a failure may be fixed by re-prompting.
func repairable(err error) bool {
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		return false
	}
	return exErr.Reason == ReasonMalformedOutput || exErr.Reason == ReasonInvalid
}

// buildUserPrompt substitutes the keyword and the serialized search results
// into the configured template.
func buildUserPrompt(template, keyword string, results []domain.SearchResult) (string, error) {
	serialized, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize search results: %w", err)
	}
	prompt := strings.ReplaceAll(template, "[USER_KEYWORD]", keyword)
	prompt = strings.ReplaceAll(prompt, "[SEARCH_RESULTS]", string(serialized))
	return prompt, nil
}

// validateProducts enforces the structural contract: exactly three entries,
// ranks forming the set {1,2,3}, and every source link drawn from the search
// results supplied for this request.
func validateProducts(products []domain.ProductRecommendation, results []domain.SearchResult) error {
	if len(products) != 3 {
		return &ExtractionError{
			Reason:  ReasonInvalid,
			Message: fmt.Sprintf("expected exactly 3 products, got %d", len(products)),
		}
	}

	links := make(map[string]struct{}, len(results))
	for _, r := range results {
		links[r.Link] = struct{}{}
	}

	seenRanks := make(map[int]struct{}, 3)
	for _, p := range products {
		if p.Rank < 1 || p.Rank > 3 {
			return &ExtractionError{
				Reason:  ReasonInvalid,
				Message: fmt.Sprintf("rank %d out of range", p.Rank),
			}
		}
		if _, dup := seenRanks[p.Rank]; dup {
			return &ExtractionError{
				Reason:  ReasonInvalid,
				Message: fmt.Sprintf("duplicate rank %d", p.Rank),
			}
		}
		seenRanks[p.Rank] = struct{}{}

		if _, ok := links[p.SourceLink]; !ok {
			return &ExtractionError{
				Reason:  ReasonInvalid,
				Message: fmt.Sprintf("source link %q is not among the supplied search results", p.SourceLink),
			}
		}
	}
	return nil
}

func sortByRank(products []domain.ProductRecommendation) []domain.ProductRecommendation {
	sort.Slice(products, func(i, j int) bool { return products[i].Rank < products[j].Rank })
	return products
}
