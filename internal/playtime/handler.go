package playtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"galhub/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Logger *zap.Logger
}

func NewHandler(repo *Repo, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Logger: logger}
}

// RegisterRoutes attaches session endpoints under the games group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/sessions", h.record)      // POST /games/:id/sessions
	rg.GET("/:id/sessions", h.list)         // GET /games/:id/sessions
	rg.GET("/:id/statistics", h.statistics) // GET /games/:id/statistics
	rg.GET("/:id/playtime/today", h.today)  // GET /games/:id/playtime/today
	rg.GET("/sessions/recent", h.recent)    // GET /games/sessions/recent
}

func (h *Handler) record(c *gin.Context) {
	gameID, ok := pathGameID(c)
	if !ok {
		return
	}

	var req struct {
		StartTime int64 `json:"start_time"`
		EndTime   int64 `json:"end_time"`
		Duration  int64 `json:"duration"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.StartTime <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time required"})
		return
	}

	id, err := h.Repo.Record(c.Request.Context(), models.PlaySession{
		GameID:    gameID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Duration:  req.Duration,
	})
	if err != nil {
		h.Logger.Error("record session failed", zap.Int64("game_id", gameID), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) list(c *gin.Context) {
	gameID, ok := pathGameID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	sessions, err := h.Repo.List(c.Request.Context(), gameID, limit, offset)
	if err != nil {
		h.Logger.Error("list sessions failed", zap.Int64("game_id", gameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sessions})
}

func (h *Handler) statistics(c *gin.Context) {
	gameID, ok := pathGameID(c)
	if !ok {
		return
	}
	stats, err := h.Repo.Statistics(c.Request.Context(), gameID)
	if err != nil {
		h.Logger.Error("game statistics failed", zap.Int64("game_id", gameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "statistics failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) today(c *gin.Context) {
	gameID, ok := pathGameID(c)
	if !ok {
		return
	}
	day := time.Now().Format("2006-01-02")
	total, err := h.Repo.PlaytimeForDay(c.Request.Context(), gameID, day)
	if err != nil {
		h.Logger.Error("today playtime failed", zap.Int64("game_id", gameID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "playtime failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_id": gameID, "day": day, "playtime": total})
}

func (h *Handler) recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.Repo.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		h.Logger.Error("recent sessions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": sessions})
}

func pathGameID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game id"})
		return 0, false
	}
	return id, true
}
