package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/repository"
	"github.com/top3hunter/recommend-service/internal/settings"
)

type stubRepo struct {
	configs []domain.Configuration
}

func (r *stubRepo) GetByKey(_ context.Context, key string) (*domain.Configuration, error) {
	for _, c := range r.configs {
		if c.Key == key {
			return &c, nil
		}
	}
	return nil, repository.ErrConfigNotFound
}

func (r *stubRepo) GetByGroup(_ context.Context, _ string) ([]domain.Configuration, error) {
	return r.configs, nil
}

func (r *stubRepo) List(_ context.Context) ([]domain.Configuration, error) {
	return r.configs, nil
}

func (r *stubRepo) Upsert(_ context.Context, cfg *domain.Configuration) error {
	r.configs = append(r.configs, *cfg)
	return nil
}

func (r *stubRepo) Delete(_ context.Context, _ string) error { return nil }

func (r *stubRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.configs)), nil
}

func extractorSettings(t *testing.T, provider string) *settings.Service {
	t.Helper()

	repo := &stubRepo{}
	for k, v := range map[string]string{
		settings.KeyLLMProvider:        provider,
		settings.KeyLLMAPIKey:          "sk-test",
		settings.KeyLLMModelName:       "test-model",
		settings.KeySystemPrompt:       "You recommend products.",
		settings.KeyUserPromptTemplate: "Keyword: [USER_KEYWORD]\nResults:\n[SEARCH_RESULTS]",
		settings.KeyLLMTimeout:         "5",
	} {
		repo.configs = append(repo.configs, domain.Configuration{Key: k, Value: v, Group: domain.GroupAPI})
	}
	svc := settings.NewService(repo)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return svc
}

// fakeProvider returns queued responses in order.
type fakeProvider struct {
	name     string
	requests []GenerateRequest
	queue    []func() ([]domain.ProductRecommendation, error)
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) GenerateProducts(_ context.Context, req GenerateRequest) ([]domain.ProductRecommendation, error) {
	p.requests = append(p.requests, req)
	if len(p.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := p.queue[0]
	p.queue = p.queue[1:]
	return next()
}

func testResults() []domain.SearchResult {
	return []domain.SearchResult{
		{Title: "A", Link: "https://example.com/a", Position: 1},
		{Title: "B", Link: "https://example.com/b", Position: 2},
		{Title: "C", Link: "https://example.com/c", Position: 3},
	}
}

func validProducts() []domain.ProductRecommendation {
	return []domain.ProductRecommendation{
		{Rank: 2, ProductName: "B", Description: "d", SourceLink: "https://example.com/b"},
		{Rank: 1, ProductName: "A", Description: "d", SourceLink: "https://example.com/a"},
		{Rank: 3, ProductName: "C", Description: "d", SourceLink: "https://example.com/c"},
	}
}

func TestExtractSortsValidProducts(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "anthropic", queue: []func() ([]domain.ProductRecommendation, error){
		func() ([]domain.ProductRecommendation, error) { return validProducts(), nil },
	}}
	ex := NewExtractor(extractorSettings(t, "anthropic"), provider)

	products, err := ex.Extract(context.Background(), "laptop", testResults())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}
	for i, p := range products {
		if p.Rank != i+1 {
			t.Errorf("products[%d].Rank = %d, want %d", i, p.Rank, i+1)
		}
	}

	if len(provider.requests) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.requests))
	}
	prompt := provider.requests[0].UserPrompt
	if !strings.Contains(prompt, "laptop") {
		t.Error("user prompt missing keyword")
	}
	if !strings.Contains(prompt, "https://example.com/a") {
		t.Error("user prompt missing serialized search results")
	}
	if strings.Contains(prompt, "[USER_KEYWORD]") || strings.Contains(prompt, "[SEARCH_RESULTS]") {
		t.Error("placeholders were not substituted")
	}
}

func TestExtractRepairsUnknownSourceLink(t *testing.T) {
	t.Parallel()

	bad := validProducts()
	bad[0].SourceLink = "https://evil.example.com/made-up"

	provider := &fakeProvider{name: "anthropic", queue: []func() ([]domain.ProductRecommendation, error){
		func() ([]domain.ProductRecommendation, error) { return bad, nil },
		func() ([]domain.ProductRecommendation, error) { return validProducts(), nil },
	}}
	ex := NewExtractor(extractorSettings(t, "anthropic"), provider)

	products, err := ex.Extract(context.Background(), "laptop", testResults())
	if err != nil {
		t.Fatalf("Extract after repair: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}

	if len(provider.requests) != 2 {
		t.Fatalf("provider called %d times, want 2", len(provider.requests))
	}
	if provider.requests[1].UserPrompt == provider.requests[0].UserPrompt {
		t.Error("repair attempt should carry a stricter prompt")
	}
}

func TestExtractFailsAfterSecondInvalidAttempt(t *testing.T) {
	t.Parallel()

	bad := func() ([]domain.ProductRecommendation, error) {
		p := validProducts()
		p[0].Rank = 1
		p[1].Rank = 1
		return p, nil
	}
	provider := &fakeProvider{name: "anthropic", queue: []func() ([]domain.ProductRecommendation, error){bad, bad}}
	ex := NewExtractor(extractorSettings(t, "anthropic"), provider)

	_, err := ex.Extract(context.Background(), "laptop", testResults())
	var exErr *ExtractionError
	if !errors.As(err, &exErr) || exErr.Reason != ReasonInvalid {
		t.Fatalf("error = %v, want validation_failed", err)
	}
	if len(provider.requests) != 2 {
		t.Fatalf("provider called %d times, want exactly 2", len(provider.requests))
	}
}

func TestExtractQuotaErrorNotRepaired(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "anthropic", queue: []func() ([]domain.ProductRecommendation, error){
		func() ([]domain.ProductRecommendation, error) {
			return nil, &ExtractionError{Reason: ReasonQuotaExceeded, Message: "quota"}
		},
	}}
	ex := NewExtractor(extractorSettings(t, "anthropic"), provider)

	_, err := ex.Extract(context.Background(), "laptop", testResults())
	var exErr *ExtractionError
	if !errors.As(err, &exErr) || exErr.Reason != ReasonQuotaExceeded {
		t.Fatalf("error = %v, want quota_exceeded", err)
	}
	if len(provider.requests) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.requests))
	}
}

func TestExtractMalformedOutputRepairedOnce(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{name: "openai", queue: []func() ([]domain.ProductRecommendation, error){
		func() ([]domain.ProductRecommendation, error) {
			return nil, &ExtractionError{Reason: ReasonMalformedOutput, Message: "no tool call"}
		},
		func() ([]domain.ProductRecommendation, error) { return validProducts(), nil },
	}}
	ex := NewExtractor(extractorSettings(t, "openai"), provider)

	products, err := ex.Extract(context.Background(), "laptop", testResults())
	if err != nil {
		t.Fatalf("Extract after repair: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("got %d products, want 3", len(products))
	}
}

func TestExtractUnknownProvider(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(extractorSettings(t, "bedrock"))
	_, err := ex.Extract(context.Background(), "laptop", testResults())
	if err == nil || !strings.Contains(err.Error(), "unsupported LLM provider") {
		t.Fatalf("error = %v, want unsupported provider", err)
	}
}

func TestExtractEmptyResults(t *testing.T) {
	t.Parallel()

	ex := NewExtractor(extractorSettings(t, "anthropic"), &fakeProvider{name: "anthropic"})
	_, err := ex.Extract(context.Background(), "laptop", nil)
	var exErr *ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("error = %v, want ExtractionError", err)
	}
}
