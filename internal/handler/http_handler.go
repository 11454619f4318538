package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/llm"
	"github.com/top3hunter/recommend-service/internal/search"
	"github.com/top3hunter/recommend-service/internal/service"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/log"
	"github.com/top3hunter/recommend-service/pkg/response"
)

// RecommendHandler serves the public recommendation endpoint.
type RecommendHandler struct {
	recommender service.RecommendService
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(recommender service.RecommendService) *RecommendHandler {
	return &RecommendHandler{recommender: recommender}
}

// Recommend handles POST /api/v1/search.
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req domain.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_KEYWORD", "keyword is required")
		return
	}

	resp, err := h.recommender.Recommend(c.Request.Context(), req.Keyword)
	if err != nil {
		h.writeError(c, req.Keyword, err)
		return
	}

	response.Success(c, resp)
}

// writeError maps pipeline failures onto HTTP statuses and stable error codes.
func (h *RecommendHandler) writeError(c *gin.Context, keyword string, err error) {
	l := log.Ctx(c.Request.Context())

	if errors.Is(err, domain.ErrInvalidKeyword) {
		response.Error(c, http.StatusBadRequest, "INVALID_KEYWORD", err.Error())
		return
	}

	if errors.Is(err, settings.ErrConfigMissing) {
		l.Error().Err(err).Str(log.FieldKeyword, keyword).Msg("recommendation blocked by missing configuration")
		response.Error(c, http.StatusInternalServerError, "CONFIG_MISSING", "service is not fully configured")
		return
	}

	var searchErr *search.Error
	if errors.As(err, &searchErr) {
		l.Error().Err(err).Str(log.FieldKeyword, keyword).Msg("search provider failed")
		response.BadGateway(c, searchErrorCode(searchErr.Kind), "web search provider failed")
		return
	}

	var exErr *llm.ExtractionError
	if errors.As(err, &exErr) {
		l.Error().Err(err).Str(log.FieldKeyword, keyword).Msg("product extraction failed")
		response.BadGateway(c, extractionErrorCode(exErr.Reason), "product extraction failed")
		return
	}

	l.Error().Err(err).Str(log.FieldKeyword, keyword).Msg("recommendation failed")
	response.InternalError(c, "recommendation failed")
}

func searchErrorCode(kind search.ErrorKind) string {
	switch kind {
	case search.KindTimeout:
		return "SEARCH_UPSTREAM_TIMEOUT"
	case search.KindRateLimited:
		return "SEARCH_UPSTREAM_RATE_LIMITED"
	case search.KindAuthFailed:
		return "SEARCH_UPSTREAM_AUTH_FAILED"
	default:
		return "SEARCH_UPSTREAM_ERROR"
	}
}

func extractionErrorCode(reason llm.Reason) string {
	switch reason {
	case llm.ReasonQuotaExceeded:
		return "EXTRACTION_QUOTA_EXCEEDED"
	case llm.ReasonTimeout:
		return "EXTRACTION_TIMEOUT"
	default:
		return "EXTRACTION_FAILED"
	}
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
