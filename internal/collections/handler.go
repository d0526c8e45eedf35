package collections

import (
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)                       // POST   /collections
	rg.GET("", h.list)                          // GET    /collections?parent_id=
	rg.GET("/tree", h.tree)                     // GET    /collections/tree
	rg.GET("/:id", h.get)                       // GET    /collections/:id
	rg.PATCH("/:id", h.update)                  // PATCH  /collections/:id
	rg.DELETE("/:id", h.remove)                 // DELETE /collections/:id
	rg.GET("/:id/games", h.games)               // GET    /collections/:id/games
	rg.PUT("/:id/games", h.setGames)            // PUT    /collections/:id/games
	rg.POST("/:id/games", h.addGame)            // POST   /collections/:id/games
	rg.DELETE("/:id/games/:gameID", h.dropGame) // DELETE /collections/:id/games/:gameID
}

func (h *Handler) create(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		ParentID  *int64 `json:"parent_id"`
		Icon      string `json:"icon"`
		SortOrder int    `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
		return
	}
	if req.ParentID != nil {
		ok, err := h.Repo.Exists(c.Request.Context(), *req.ParentID)
		if err != nil {
			h.Logger.Error("parent lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
			return
		}
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent collection not found"})
			return
		}
	}

	id, err := h.Repo.Create(c.Request.Context(), models.Collection{
		Name:      req.Name,
		ParentID:  req.ParentID,
		Icon:      req.Icon,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		h.Logger.Error("create collection failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid collection"})
		return
	}
	created, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil || created == nil {
		h.Logger.Error("load created collection failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) list(c *gin.Context) {
	var (
		items []models.Collection
		err   error
	)
	switch parent := c.Query("parent_id"); parent {
	case "":
		items, err = h.Repo.List(c.Request.Context())
	case "root":
		items, err = h.Repo.Roots(c.Request.Context())
	default:
		id, perr := strconv.ParseInt(parent, 10, 64)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent_id"})
			return
		}
		items, err = h.Repo.Children(c.Request.Context(), id)
	}
	if err != nil {
		h.Logger.Error("list collections failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) tree(c *gin.Context) {
	groups, err := h.Repo.Tree(c.Request.Context())
	if err != nil {
		h.Logger.Error("collection tree failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tree failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	col, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("get collection failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if col == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	count, err := h.Repo.CountGames(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("count games failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, models.CollectionWithCount{Collection: *col, GameCount: count})
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var patch models.CollectionPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patch"})
		return
	}
	if patch.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty patch"})
		return
	}
	if parent, ok := patch.ParentID.Value(); ok {
		if parent == id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "collection cannot be its own parent"})
			return
		}
		exists, err := h.Repo.Exists(c.Request.Context(), parent)
		if err != nil {
			h.Logger.Error("parent lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
			return
		}
		if !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "parent collection not found"})
			return
		}
	}

	updated, err := h.Repo.Update(c.Request.Context(), id, patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if updated == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) remove(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	deleted, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("delete collection failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) games(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ids, err := h.Repo.GameIDs(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("games in collection failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_ids": ids})
}

// setGames replaces the collection's membership with the posted id list,
// preserving the given order.
func (h *Handler) setGames(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		GameIDs []int64 `json:"game_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.GameIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_ids required"})
		return
	}
	exists, err := h.Repo.Exists(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("collection lookup failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	if err := h.Repo.SetGames(c.Request.Context(), id, req.GameIDs); err != nil {
		h.Logger.Error("set games failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game list"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection_id": id, "count": len(req.GameIDs)})
}

func (h *Handler) addGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		GameID    int64 `json:"game_id"`
		SortOrder int   `json:"sort_order"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.GameID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game_id required"})
		return
	}
	exists, err := h.Repo.Exists(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("collection lookup failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "add failed"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "collection not found"})
		return
	}
	if err := h.Repo.AddGame(c.Request.Context(), req.GameID, id, req.SortOrder); err != nil {
		h.Logger.Error("add game failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid game"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"collection_id": id, "game_id": req.GameID})
}

func (h *Handler) dropGame(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	gameID, ok := pathID(c, "gameID")
	if !ok {
		return
	}
	removed, err := h.Repo.RemoveGame(c.Request.Context(), gameID, id)
	if err != nil {
		h.Logger.Error("remove game failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove failed"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "game not in collection"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": gameID})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
