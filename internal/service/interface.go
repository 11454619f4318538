package service

import (
	"context"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// RecommendService produces top-3 product recommendations for a keyword.
type RecommendService interface {
	// Recommend runs the full pipeline: validation, cache lookup, web search,
	// structured extraction, and cache store.
	Recommend(ctx context.Context, keyword string) (*domain.RecommendResponse, error)
	// InvalidateKeyword drops the cached result for a keyword, if any.
	InvalidateKeyword(ctx context.Context, keyword string) error
}

// ProductExtractor turns search results into validated recommendations.
type ProductExtractor interface {
	Extract(ctx context.Context, keyword string, results []domain.SearchResult) ([]domain.ProductRecommendation, error)
}
