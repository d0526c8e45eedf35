package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenInvalidator drops a cached credential after the stored value changes.
type TokenInvalidator interface {
	Invalidate()
}

type Handler struct {
	Repo   *Repo
	Tokens TokenInvalidator
	Logger *zap.Logger
}

func NewHandler(repo *Repo, tokens TokenInvalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Tokens: tokens, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/bgm-token", h.getToken)    // GET /settings/bgm-token
	rg.PUT("/bgm-token", h.setToken)    // PUT /settings/bgm-token
	rg.DELETE("/bgm-token", h.delToken) // DELETE /settings/bgm-token
}

func (h *Handler) getToken(c *gin.Context) {
	token, err := h.Repo.Get(c.Request.Context(), KeyBgmToken)
	if err != nil {
		h.Logger.Error("get bgm token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	// never echo the token itself, only whether one is configured
	c.JSON(http.StatusOK, gin.H{"configured": token != ""})
}

func (h *Handler) setToken(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}

	if err := h.Repo.Set(c.Request.Context(), KeyBgmToken, req.Token); err != nil {
		h.Logger.Error("set bgm token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "set failed"})
		return
	}
	if h.Tokens != nil {
		h.Tokens.Invalidate()
	}
	c.JSON(http.StatusOK, gin.H{"configured": true})
}

func (h *Handler) delToken(c *gin.Context) {
	if err := h.Repo.Delete(c.Request.Context(), KeyBgmToken); err != nil {
		h.Logger.Error("delete bgm token failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if h.Tokens != nil {
		h.Tokens.Invalidate()
	}
	c.Status(http.StatusNoContent)
}
