package search

import (
	"context"

	"github.com/top3hunter/recommend-service/internal/domain"
)

// Client defines the interface for the external web search provider.
type Client interface {
	// Search returns ranked web results for a product keyword, at most limit
	// entries. Failures are classified as *Error.
	Search(ctx context.Context, keyword string, limit int) ([]domain.SearchResult, error)
}
