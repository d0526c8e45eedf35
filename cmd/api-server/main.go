package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"galhub/internal/auth"
	"galhub/internal/collections"
	"galhub/internal/config"
	"galhub/internal/games"
	"galhub/internal/logging"
	"galhub/internal/metadata"
	"galhub/internal/playtime"
	"galhub/internal/settings"
	"galhub/internal/source"
	synchub "galhub/internal/sync"
	"galhub/pkg/database"
)

func main() {
	cfg, err := config.Load(config.NewViper())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	db := database.MustOpen(database.Config{Path: cfg.DatabasePath})
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("db migrate failed", zap.Error(err))
	}

	// source adapters; the bangumi token lives in the settings table and is
	// cached with a ttl so resolutions don't hit the db every time
	settingsRepo := settings.NewRepo(db)
	tokenCache := source.NewTokenCache(settingsRepo.BgmTokenLookup(), cfg.TokenCacheTTL)

	resolver, err := metadata.NewResolver(metadata.ResolverConfig{
		Bangumi: source.NewBangumi(tokenCache),
		VNDB:    source.NewVNDB(),
		Ymgal:   source.NewYmgal(),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("init resolver", zap.Error(err))
	}

	router := gin.Default()
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := synchub.NewHub()
	router.GET("/ws", synchub.WSHandler(hub, logger))
	tcpSrv := synchub.NewServer(cfg.SyncAddress, hub, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.DatabasePath})
	})

	router.GET("/ready", func(c *gin.Context) {
		stats := hub.Stats()
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":      "not_ready",
				"db_error":    err.Error(),
				"tcp_clients": stats.TCPClients,
				"ws_clients":  stats.WSClients,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":      "ready",
			"db":          "ok",
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
	})

	// Auth
	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Duration: cfg.JWTTTL,
	}
	authRepo := auth.NewRepo(db)
	auth.NewHandler(authRepo, tokenSvc, logger).RegisterRoutes(router.Group("/auth"))

	protected := router.Group("/users")
	protected.Use(auth.Middleware(tokenSvc, authRepo))
	protected.GET("/me", func(c *gin.Context) {
		claims := auth.MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{
			"id":       claims.UserID,
			"username": claims.Username,
		})
	})

	// Library (protected)
	gamesGroup := router.Group("/games")
	gamesGroup.Use(auth.Middleware(tokenSvc, authRepo))
	gamesRepo := games.NewRepo(db)
	games.NewHandler(gamesRepo, resolver, hub, logger).RegisterRoutes(gamesGroup)
	playtime.NewHandler(playtime.NewRepo(db), logger).RegisterRoutes(gamesGroup)

	// Collections (protected)
	collectionsGroup := router.Group("/collections")
	collectionsGroup.Use(auth.Middleware(tokenSvc, authRepo))
	collections.NewHandler(collections.NewRepo(db), logger).RegisterRoutes(collectionsGroup)

	// Settings (protected)
	settingsGroup := router.Group("/settings")
	settingsGroup.Use(auth.Middleware(tokenSvc, authRepo))
	settings.NewHandler(settingsRepo, tokenCache, logger).RegisterRoutes(settingsGroup)

	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddress,
		Handler: router,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("http api listening", zap.String("addr", cfg.HTTPAddress))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	logger.Info("shutting down servers")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", zap.Error(err))
	}
	if err := tcpSrv.Close(); err != nil {
		logger.Error("tcp shutdown error", zap.Error(err))
	}

	wg.Wait()
	logger.Info("servers stopped")
}
