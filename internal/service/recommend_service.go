package service

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/top3hunter/recommend-service/internal/cache"
	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/search"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/log"
)

type recommendService struct {
	settings  *settings.Service
	search    search.Client
	extractor ProductExtractor
	cache     cache.ResultCache
	keyPrefix string

	sf singleflight.Group
}

// NewRecommendService wires the recommendation pipeline. cache may be nil when
// Redis is unavailable; the pipeline then recomputes every request.
func NewRecommendService(cfg *settings.Service, searcher search.Client, extractor ProductExtractor, resultCache cache.ResultCache, keyPrefix string) RecommendService {
	return &recommendService{
		settings:  cfg,
		search:    searcher,
		extractor: extractor,
		cache:     resultCache,
		keyPrefix: keyPrefix,
	}
}

func (s *recommendService) Recommend(ctx context.Context, keyword string) (*domain.RecommendResponse, error) {
	keyword, err := domain.ValidateKeyword(keyword)
	if err != nil {
		return nil, err
	}
	if err := s.settings.Require(settings.RequiredKeys...); err != nil {
		return nil, err
	}

	key := cache.QueryKey(s.keyPrefix, keyword)

	// Concurrent requests for the same normalized keyword share one
	// computation; followers receive the leader's result.
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.lookupOrCompute(ctx, key, keyword)
	})
	if err != nil {
		return nil, err
	}

	resp := v.(*domain.RecommendResponse)
	return resp, nil
}

func (s *recommendService) lookupOrCompute(ctx context.Context, key, keyword string) (*domain.RecommendResponse, error) {
	started := time.Now()
	l := log.Ctx(ctx)
	cacheEnabled := s.cache != nil && s.settings.Bool(settings.KeyEnableCache, true)

	if cacheEnabled {
		cached, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			hit := *cached
			hit.Cached = true
			l.Debug().Str(log.FieldKeyword, keyword).Str(log.FieldCacheKey, key).Msg("cache hit")
			return &hit, nil
		case !errors.Is(err, cache.ErrCacheMiss):
			// Treat a broken cache as a miss and serve from upstream.
			l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("cache read failed, recomputing")
		}
	}

	resp, err := s.compute(ctx, keyword)
	if err != nil {
		return nil, err
	}

	// search_time spans the whole miss path, from slot acquisition through
	// extraction. It is stamped before the cache write so the stored copy
	// carries the same value later hits return.
	resp.SearchTime = roundSeconds(time.Since(started))

	if cacheEnabled {
		ttl := s.settings.Seconds(settings.KeyCacheTTLQuery, 6*time.Hour)
		if err := s.cache.Set(ctx, key, resp, ttl); err != nil {
			l.Warn().Err(err).Str(log.FieldCacheKey, key).Msg("cache write failed")
		}
	}
	return resp, nil
}

func (s *recommendService) compute(ctx context.Context, keyword string) (*domain.RecommendResponse, error) {
	limit := s.settings.Int(settings.KeyMaxSearchResults, 10)
	results, err := s.search.Search(ctx, keyword, limit)
	if err != nil {
		return nil, err
	}

	products, err := s.extractor.Extract(ctx, keyword, results)
	if err != nil {
		return nil, err
	}

	return &domain.RecommendResponse{
		Products:     products,
		TotalResults: len(results),
		Cached:       false,
	}, nil
}

func (s *recommendService) InvalidateKeyword(ctx context.Context, keyword string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cache.QueryKey(s.keyPrefix, keyword))
}

// roundSeconds reports elapsed time in seconds with two decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
