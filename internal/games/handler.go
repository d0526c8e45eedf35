package games

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"galhub/internal/metadata"
	"galhub/internal/source"
	synchub "galhub/internal/sync"
	"galhub/pkg/models"
)

// MetadataResolver is the slice of the resolver the handler needs; tests
// substitute a fake.
type MetadataResolver interface {
	Resolve(ctx context.Context, req metadata.ResolveRequest) (models.Game, error)
	LookupID(ctx context.Context, ids models.IDSet) (*models.SourceRecord, error)
}

// Broadcaster pushes change events to connected sync clients.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type Handler struct {
	Repo     *Repo
	Resolver MetadataResolver
	Hub      Broadcaster
	Logger   *zap.Logger
}

func NewHandler(repo *Repo, resolver MetadataResolver, hub Broadcaster, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Resolver: resolver, Hub: hub, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)              // GET /games
	rg.POST("", h.create)           // POST /games
	rg.POST("/resolve", h.resolve)  // POST /games/resolve (preview, no persist)
	rg.GET("/lookup", h.lookup)     // GET /games/lookup?vndb_id=v17
	rg.GET("/exists", h.exists)     // GET /games/exists?bgm_id=326
	rg.GET("/:id", h.getByID)       // GET /games/:id
	rg.PATCH("/:id", h.update)      // PATCH /games/:id
	rg.DELETE("/:id", h.deleteByID) // DELETE /games/:id
}

type resolveRequest struct {
	Query   string             `json:"query"`
	BgmID   string             `json:"bgm_id"`
	VndbID  string             `json:"vndb_id"`
	YmgalID string             `json:"ymgal_id"`
	IsID    *bool              `json:"is_id"`
	Custom  *models.CustomData `json:"custom_data"`
}

func (r resolveRequest) toMetadata() metadata.ResolveRequest {
	return metadata.ResolveRequest{
		Query:  r.Query,
		IDs:    models.IDSet{BgmID: r.BgmID, VndbID: r.VndbID, YmgalID: r.YmgalID},
		IsID:   r.IsID,
		Custom: r.Custom,
	}
}

// resolve runs a resolution and returns the merged result without storing it.
func (h *Handler) resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	game, err := h.Resolver.Resolve(c.Request.Context(), req.toMetadata())
	if err != nil {
		h.resolveError(c, err)
		return
	}
	c.JSON(http.StatusOK, game)
}

// create resolves and stores a new game.
func (h *Handler) create(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	game, err := h.Resolver.Resolve(c.Request.Context(), req.toMetadata())
	if err != nil {
		h.resolveError(c, err)
		return
	}

	existing, err := h.Repo.FindBySourceIDs(c.Request.Context(), game.IDs())
	if err != nil {
		h.Logger.Error("duplicate check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": "game already in library",
			"id":    existing.ID,
		})
		return
	}

	id, err := h.Repo.Insert(c.Request.Context(), &game)
	if err != nil {
		h.Logger.Error("insert game failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	game.ID = id

	h.broadcast("game.insert", &game)
	c.JSON(http.StatusCreated, game)
}

// lookup fetches exactly one source directly; unlike resolve, source failures
// surface to the client.
func (h *Handler) lookup(c *gin.Context) {
	ids := models.IDSet{
		BgmID:   c.Query("bgm_id"),
		VndbID:  c.Query("vndb_id"),
		YmgalID: c.Query("ymgal_id"),
	}
	if ids.Count() != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one source id required"})
		return
	}

	rec, err := h.Resolver.LookupID(c.Request.Context(), ids)
	if err != nil {
		switch {
		case source.IsNotFound(err):
			c.JSON(http.StatusNotFound, gin.H{"error": "not found at source"})
		case source.IsMissingCredential(err):
			c.JSON(http.StatusFailedDependency, gin.H{"error": "source token not configured"})
		default:
			h.Logger.Warn("lookup failed", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "source unavailable"})
		}
		return
	}
	c.JSON(http.StatusOK, rec)
}

// exists reports whether any stored game already claims one of the given
// source ids, so clients can check before inserting.
func (h *Handler) exists(c *gin.Context) {
	ids := models.IDSet{
		BgmID:   c.Query("bgm_id"),
		VndbID:  c.Query("vndb_id"),
		YmgalID: c.Query("ymgal_id"),
	}
	if ids.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one source id required"})
		return
	}

	g, err := h.Repo.FindBySourceIDs(c.Request.Context(), ids)
	if err != nil {
		h.Logger.Error("exists check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusOK, gin.H{"exists": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": true, "id": g.ID})
}

func (h *Handler) list(c *gin.Context) {
	opts := ListOptions{
		Sort:   c.Query("sort"),
		Order:  c.Query("order"),
		Search: c.Query("q"),
		Limit:  parseInt(c.Query("limit"), 50),
		Offset: parseInt(c.Query("offset"), 0),
	}

	items, total, err := h.Repo.List(c.Request.Context(), opts)
	if err != nil {
		h.Logger.Error("list games failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  opts.Limit,
		"offset": opts.Offset,
		"items":  items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	g, err := h.Repo.Get(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("get game failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *Handler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var patch models.GamePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patch"})
		return
	}
	if patch.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty patch"})
		return
	}

	g, err := h.Repo.Update(c.Request.Context(), id, patch)
	if err != nil {
		h.Logger.Error("update game failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.broadcast("game.update", g)
	c.JSON(http.StatusOK, g)
}

func (h *Handler) deleteByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := h.Repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.Logger.Error("delete game failed", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	h.broadcast("game.delete", &models.Game{ID: id})
	c.Status(http.StatusNoContent)
}

func (h *Handler) resolveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, metadata.ErrMalformedQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is not a recognized id"})
	case errors.Is(err, metadata.ErrNoDataFromAnySource):
		c.JSON(http.StatusNotFound, gin.H{"error": "no source returned data"})
	default:
		h.Logger.Error("resolve failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve failed"})
	}
}

func (h *Handler) broadcast(event string, g *models.Game) {
	if h.Hub == nil {
		return
	}
	h.Hub.BroadcastJSON(synchub.GameEvent{
		Type:   event,
		GameID: g.ID,
		Name:   g.Name,
		At:     time.Now().UTC(),
	})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
