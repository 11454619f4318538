package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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

func (r *stubRepo) GetByGroup(_ context.Context, group string) ([]domain.Configuration, error) {
	var out []domain.Configuration
	for _, c := range r.configs {
		if c.Group == group {
			out = append(out, c)
		}
	}
	return out, nil
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

func newTestSettings(t *testing.T, values map[string]string) *settings.Service {
	t.Helper()

	repo := &stubRepo{}
	for k, v := range values {
		repo.configs = append(repo.configs, domain.Configuration{Key: k, Value: v, Group: domain.GroupAPI})
	}
	svc := settings.NewService(repo)
	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return svc
}

func serperSettings(t *testing.T) *settings.Service {
	return newTestSettings(t, map[string]string{
		settings.KeySerperAPIKey:  "test-key",
		settings.KeySearchTimeout: "5",
	})
}

func TestSearchParsesResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-KEY"); got != "test-key" {
			t.Errorf("X-API-KEY = %q, want test-key", got)
		}
		var req serperRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Query != "best laptop reviews buy guide comparison" {
			t.Errorf("query = %q", req.Query)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"knowledgeGraph": map[string]any{
				"title":           "ThinkPad X1",
				"descriptionLink": "https://example.com/kg",
				"description":     "Business laptop line",
			},
			"organic": []map[string]any{
				{"title": "Best laptops 2026", "link": "https://example.com/1", "snippet": "roundup", "position": 1},
				{"title": "Laptop buying guide", "link": "https://example.com/2", "snippet": "guide", "position": 2},
			},
		})
	}))
	defer srv.Close()

	client := NewSerperClientWithURL(serperSettings(t), srv.URL, srv.Client())
	results, err := client.Search(context.Background(), "laptop", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Link != "https://example.com/kg" {
		t.Errorf("knowledge graph should rank first, got %q", results[0].Link)
	}
	if results[1].Position != 1 || results[2].Position != 2 {
		t.Errorf("organic positions wrong: %d, %d", results[1].Position, results[2].Position)
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		organic := make([]map[string]any, 10)
		for i := range organic {
			organic[i] = map[string]any{"title": "t", "link": "https://example.com", "position": i + 1}
		}
		json.NewEncoder(w).Encode(map[string]any{"organic": organic})
	}))
	defer srv.Close()

	client := NewSerperClientWithURL(serperSettings(t), srv.URL, srv.Client())
	results, err := client.Search(context.Background(), "laptop", 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4", len(results))
	}
}

func TestSearchRetriesServerErrorOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"organic": []map[string]any{
				{"title": "ok", "link": "https://example.com/1", "position": 1},
			},
		})
	}))
	defer srv.Close()

	client := NewSerperClientWithURL(serperSettings(t), srv.URL, srv.Client())
	results, err := client.Search(context.Background(), "laptop", 10)
	if err != nil {
		t.Fatalf("Search after retry: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream called %d times, want 2", got)
	}
}

func TestSearchRateLimitNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewSerperClientWithURL(serperSettings(t), srv.URL, srv.Client())
	_, err := client.Search(context.Background(), "laptop", 10)

	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != KindRateLimited {
		t.Fatalf("error = %v, want rate_limited", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want 1", got)
	}
}

func TestSearchAuthFailureNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewSerperClientWithURL(serperSettings(t), srv.URL, srv.Client())
	_, err := client.Search(context.Background(), "laptop", 10)

	var serr *Error
	if !errors.As(err, &serr) || serr.Kind != KindAuthFailed {
		t.Fatalf("error = %v, want auth_failed", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream called %d times, want 1", got)
	}
}

func TestSearchMissingAPIKey(t *testing.T) {
	t.Parallel()

	client := NewSerperClient(newTestSettings(t, nil))
	_, err := client.Search(context.Background(), "laptop", 10)
	if !errors.Is(err, settings.ErrConfigMissing) {
		t.Fatalf("error = %v, want ErrConfigMissing", err)
	}
}
