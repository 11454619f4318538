package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKeyword is returned for empty, oversized, or malformed keywords,
// before any external call is attempted.
var ErrInvalidKeyword = errors.New("invalid keyword")

const maxKeywordLength = 200

// Characters never valid in a product keyword.
var forbiddenKeywordChars = []string{"<", ">", "|", "{", "}", "[", "]", "\\", "^", "`"}

// RecommendRequest is the inbound keyword submission.
type RecommendRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

// SearchResult is a single normalized web search hit. Results are produced per
// request and never persisted.
type SearchResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
	Favicon  string `json:"favicon,omitempty"`
	Date     string `json:"date,omitempty"`
}

// ProductRecommendation is one ranked product in the top-3 answer.
// SourceLink must equal the link of one of the search results supplied to the
// extractor for the same request.
type ProductRecommendation struct {
	Rank        int      `json:"rank"`
	ProductName string   `json:"product_name"`
	Description string   `json:"description"`
	SourceLink  string   `json:"source_link"`
	Price       string   `json:"price,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Pros        []string `json:"pros,omitempty"`
	Cons        []string `json:"cons,omitempty"`
	BestFor     string   `json:"best_for,omitempty"`
}

// RecommendResponse is the final answer for a keyword. Immutable once
// constructed; cached copies are returned verbatim with Cached flipped to true.
type RecommendResponse struct {
	Products     []ProductRecommendation `json:"products"`
	TotalResults int                     `json:"total_results"`
	SearchTime   float64                 `json:"search_time"`
	Cached       bool                    `json:"cached"`
}

// ValidateKeyword rejects empty, oversized, and malformed keywords and returns
// the trimmed form.
func ValidateKeyword(keyword string) (string, error) {
	trimmed := strings.TrimSpace(keyword)
	if trimmed == "" {
		return "", fmt.Errorf("%w: keyword must not be empty", ErrInvalidKeyword)
	}
	if len(keyword) > maxKeywordLength {
		return "", fmt.Errorf("%w: keyword exceeds %d characters", ErrInvalidKeyword, maxKeywordLength)
	}
	for _, ch := range forbiddenKeywordChars {
		if strings.Contains(trimmed, ch) {
			return "", fmt.Errorf("%w: keyword contains forbidden character %q", ErrInvalidKeyword, ch)
		}
	}
	return trimmed, nil
}
