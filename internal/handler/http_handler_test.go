package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/llm"
	"github.com/top3hunter/recommend-service/internal/search"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/response"
)

type fakeRecommender struct {
	resp *domain.RecommendResponse
	err  error
}

func (f *fakeRecommender) Recommend(_ context.Context, _ string) (*domain.RecommendResponse, error) {
	return f.resp, f.err
}

func (f *fakeRecommender) InvalidateKeyword(_ context.Context, _ string) error {
	return nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func performSearch(t *testing.T, recommender *fakeRecommender, body string) (*httptest.ResponseRecorder, response.Response) {
	t.Helper()

	r := gin.New()
	h := NewRecommendHandler(recommender)
	r.POST("/api/v1/search", h.Recommend)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var parsed response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("unmarshal response body %q: %v", w.Body.String(), err)
	}
	return w, parsed
}

func TestRecommendSuccess(t *testing.T) {
	t.Parallel()

	recommender := &fakeRecommender{resp: &domain.RecommendResponse{
		Products: []domain.ProductRecommendation{
			{Rank: 1, ProductName: "A", Description: "d", SourceLink: "https://example.com/a"},
			{Rank: 2, ProductName: "B", Description: "d", SourceLink: "https://example.com/b"},
			{Rank: 3, ProductName: "C", Description: "d", SourceLink: "https://example.com/c"},
		},
		TotalResults: 10,
		SearchTime:   1.23,
	}}

	w, parsed := performSearch(t, recommender, `{"keyword": "laptop"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !parsed.Success {
		t.Error("success = false")
	}
}

func TestRecommendMissingKeywordBody(t *testing.T) {
	t.Parallel()

	w, parsed := performSearch(t, &fakeRecommender{}, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if parsed.Error == nil || parsed.Error.Code != "INVALID_KEYWORD" {
		t.Fatalf("error = %+v, want INVALID_KEYWORD", parsed.Error)
	}
}

func TestRecommendErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid keyword",
			err:        fmt.Errorf("%w: bad chars", domain.ErrInvalidKeyword),
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_KEYWORD",
		},
		{
			name:       "missing configuration",
			err:        fmt.Errorf("%w: SERPER_API_KEY", settings.ErrConfigMissing),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "CONFIG_MISSING",
		},
		{
			name:       "search timeout",
			err:        &search.Error{Kind: search.KindTimeout, Message: "deadline"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "SEARCH_UPSTREAM_TIMEOUT",
		},
		{
			name:       "search rate limited",
			err:        &search.Error{Kind: search.KindRateLimited, Message: "429"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "SEARCH_UPSTREAM_RATE_LIMITED",
		},
		{
			name:       "search auth failed",
			err:        &search.Error{Kind: search.KindAuthFailed, Message: "403"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "SEARCH_UPSTREAM_AUTH_FAILED",
		},
		{
			name:       "extraction quota",
			err:        &llm.ExtractionError{Reason: llm.ReasonQuotaExceeded, Message: "quota"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "EXTRACTION_QUOTA_EXCEEDED",
		},
		{
			name:       "extraction invalid",
			err:        &llm.ExtractionError{Reason: llm.ReasonInvalid, Message: "still bad"},
			wantStatus: http.StatusBadGateway,
			wantCode:   "EXTRACTION_FAILED",
		},
		{
			name:       "unexpected error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, parsed := performSearch(t, &fakeRecommender{err: tt.err}, `{"keyword": "laptop"}`)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if parsed.Error == nil || parsed.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", parsed.Error, tt.wantCode)
			}
		})
	}
}
