package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/top3hunter/recommend-service/internal/config"
	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/repository"
	"github.com/top3hunter/recommend-service/internal/service"
	"github.com/top3hunter/recommend-service/internal/settings"
	"github.com/top3hunter/recommend-service/pkg/jwt"
	"github.com/top3hunter/recommend-service/pkg/log"
	"github.com/top3hunter/recommend-service/pkg/middleware"
	"github.com/top3hunter/recommend-service/pkg/response"
)

// AdminHandler serves authentication and configuration management.
type AdminHandler struct {
	admin       config.AdminConfig
	tokens      *jwt.Manager
	settings    *settings.Service
	recommender service.RecommendService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin config.AdminConfig, tokens *jwt.Manager, cfg *settings.Service, recommender service.RecommendService) *AdminHandler {
	return &AdminHandler{
		admin:       admin,
		tokens:      tokens,
		settings:    cfg,
		recommender: recommender,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// Login handles POST /api/v1/admin/login.
func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "username and password are required")
		return
	}

	if req.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password)) != nil {
		response.Unauthorized(c, "invalid credentials")
		return
	}

	token, expiresAt, err := h.tokens.Generate(req.Username)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("failed to sign admin token")
		response.InternalError(c, "failed to create session")
		return
	}

	response.Success(c, loginResponse{Token: token, ExpiresAt: expiresAt})
}

// ListConfig handles GET /api/v1/admin/config.
func (h *AdminHandler) ListConfig(c *gin.Context) {
	configs, err := h.settings.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load configuration")
		return
	}
	response.Success(c, maskSecrets(configs))
}

// ListConfigGroup handles GET /api/v1/admin/config/groups/:group.
func (h *AdminHandler) ListConfigGroup(c *gin.Context) {
	configs, err := h.settings.ListGroup(c.Request.Context(), c.Param("group"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, maskSecrets(configs))
}

type updateConfigRequest struct {
	Value string `json:"value" binding:"required"`
	Group string `json:"group"`
}

// UpdateConfig handles PUT /api/v1/admin/config/:key.
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "value is required")
		return
	}

	key := c.Param("key")
	cfg, err := h.settings.Update(c.Request.Context(), key, req.Value, req.Group)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	l := log.Ctx(c.Request.Context())
	l.Info().
		Str(log.FieldConfigKey, key).
		Str("admin", middleware.GetUsername(c)).
		Msg("configuration updated")

	response.Success(c, maskSecret(*cfg))
}

type batchUpdateRequest struct {
	Updates []struct {
		Key   string `json:"key" binding:"required"`
		Value string `json:"value" binding:"required"`
		Group string `json:"group"`
	} `json:"updates" binding:"required,min=1"`
}

// BatchUpdateConfig handles POST /api/v1/admin/config/batch.
func (h *AdminHandler) BatchUpdateConfig(c *gin.Context) {
	var req batchUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "updates are required")
		return
	}

	updated := make([]domain.Configuration, 0, len(req.Updates))
	for _, u := range req.Updates {
		cfg, err := h.settings.Update(c.Request.Context(), u.Key, u.Value, u.Group)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		updated = append(updated, maskSecret(*cfg))
	}

	l := log.Ctx(c.Request.Context())
	l.Info().
		Int("count", len(updated)).
		Str("admin", middleware.GetUsername(c)).
		Msg("configuration batch updated")

	response.Success(c, updated)
}

// DeleteConfig handles DELETE /api/v1/admin/config/:key.
func (h *AdminHandler) DeleteConfig(c *gin.Context) {
	key := c.Param("key")
	if err := h.settings.Delete(c.Request.Context(), key); err != nil {
		if errors.Is(err, repository.ErrConfigNotFound) {
			response.NotFound(c, "configuration key not found")
			return
		}
		response.InternalError(c, "failed to delete configuration")
		return
	}

	l := log.Ctx(c.Request.Context())
	l.Info().
		Str(log.FieldConfigKey, key).
		Str("admin", middleware.GetUsername(c)).
		Msg("configuration deleted")

	c.Status(http.StatusNoContent)
}

type invalidateRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

// InvalidateCache handles POST /api/v1/admin/cache/invalidate.
func (h *AdminHandler) InvalidateCache(c *gin.Context) {
	var req invalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "keyword is required")
		return
	}

	if err := h.recommender.InvalidateKeyword(c.Request.Context(), req.Keyword); err != nil {
		response.InternalError(c, "failed to invalidate cache entry")
		return
	}

	response.Success(c, gin.H{"invalidated": req.Keyword})
}

// maskSecret hides credential values in admin reads. Keys remain visible so
// operators can tell whether a credential is configured.
func maskSecret(cfg domain.Configuration) domain.Configuration {
	if settings.IsSecretKey(cfg.Key) && cfg.Value != "" {
		cfg.Value = "********"
	}
	return cfg
}

func maskSecrets(configs []domain.Configuration) []domain.Configuration {
	out := make([]domain.Configuration, len(configs))
	for i, cfg := range configs {
		out[i] = maskSecret(cfg)
	}
	return out
}
