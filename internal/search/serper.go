package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/log"
)

const defaultSerperURL = "https://google.serper.dev/search"

// retryBackoff is the pause before the single retry of a transient failure.
const retryBackoff = 500 * time.Millisecond

// SerperClient queries the Serper web search API. Credentials and the request
// timeout are read from the settings service per call, so admin changes take
// effect within the configuration refresh bound.
type SerperClient struct {
	settings *settings.Service
	client   *http.Client
	baseURL  string
}

// NewSerperClient constructs a Serper search client.
func NewSerperClient(cfg *settings.Service) *SerperClient {
	return &SerperClient{
		settings: cfg,
		client:   &http.Client{},
		baseURL:  defaultSerperURL,
	}
}

// NewSerperClientWithURL constructs a Serper client against a custom endpoint.
// Used by tests to point at a fake server.
func NewSerperClientWithURL(cfg *settings.Service, baseURL string, client *http.Client) *SerperClient {
	if client == nil {
		client = &http.Client{}
	}
	return &SerperClient{settings: cfg, client: client, baseURL: baseURL}
}

type serperRequest struct {
	Query string `json:"q"`
	Num   int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
		Favicon  string `json:"favicon"`
		Date     string `json:"date"`
	} `json:"organic"`
	KnowledgeGraph *struct {
		Title           string `json:"title"`
		DescriptionLink string `json:"descriptionLink"`
		Description     string `json:"description"`
	} `json:"knowledgeGraph"`
}

// Search posts a product query to Serper and returns normalized results.
// Timeouts and 5xx responses are retried once with backoff; rate limiting and
// auth failures surface immediately.
func (s *SerperClient) Search(ctx context.Context, keyword string, limit int) ([]domain.SearchResult, error) {
	apiKey, err := s.settings.Get(settings.KeySerperAPIKey)
	if err != nil {
		return nil, err
	}
	timeout := s.settings.Seconds(settings.KeySearchTimeout, 30*time.Second)

	results, err := s.doSearch(ctx, apiKey, keyword, limit, timeout)
	if err == nil {
		return results, nil
	}

	var serr *Error
	if !errors.As(err, &serr) || !serr.Retryable() {
		return nil, err
	}

	l := log.Ctx(ctx)
	l.Warn().Err(err).Str(log.FieldKeyword, keyword).Msg("search failed, retrying once")

	select {
	case <-ctx.Done():
		return nil, &Error{Kind: KindTimeout, Message: "request cancelled before retry", Err: ctx.Err()}
	case <-time.After(retryBackoff):
	}

	return s.doSearch(ctx, apiKey, keyword, limit, timeout)
}

func (s *SerperClient) doSearch(ctx context.Context, apiKey, keyword string, limit int, timeout time.Duration) ([]domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(serperRequest{
		Query: buildQuery(keyword),
		Num:   limit,
	})
	if err != nil {
		return nil, &Error{Kind: KindProvider, Message: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindProvider, Message: "failed to build request", Err: err}
	}
	req.Header.Set("X-API-KEY", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Kind: KindTimeout, Message: "search request timed out", Err: err}
		}
		return nil, &Error{Kind: KindProvider, Message: "search request failed", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Kind: KindAuthFailed, Message: "search API key rejected"}
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Kind: KindRateLimited, Message: "search API rate limit exceeded"}
	case resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Kind: KindProvider, Message: fmt.Sprintf("search API returned %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, &Error{Kind: KindProvider, Message: fmt.Sprintf("unexpected search API status %d", resp.StatusCode)}
	}

	var data serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &Error{Kind: KindProvider, Message: "failed to decode search response", Err: err}
	}

	return parseResults(&data, limit), nil
}

// buildQuery wraps the raw keyword in purchase-intent terms so results skew
// toward reviews and buying guides.
func buildQuery(keyword string) string {
	return fmt.Sprintf("best %s reviews buy guide comparison", keyword)
}

func parseResults(data *serperResponse, limit int) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(data.Organic)+1)

	// The knowledge graph block, when present, ranks ahead of organic hits.
	if kg := data.KnowledgeGraph; kg != nil && kg.DescriptionLink != "" {
		results = append(results, domain.SearchResult{
			Title:    kg.Title,
			Link:     kg.DescriptionLink,
			Snippet:  kg.Description,
			Position: 0,
		})
	}

	for _, item := range data.Organic {
		results = append(results, domain.SearchResult{
			Title:    item.Title,
			Link:     item.Link,
			Snippet:  item.Snippet,
			Position: item.Position,
			Favicon:  item.Favicon,
			Date:     item.Date,
		})
	}

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
