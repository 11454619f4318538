package cache

import (
	"context"
	"time"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// ResultCache defines the interface for caching computed recommendations.
type ResultCache interface {
	Get(ctx context.Context, key string) (*domain.RecommendResponse, error)
	Set(ctx context.Context, key string, resp *domain.RecommendResponse, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
