// Package server exposes the coordinator's command surface over HTTP
// on the loopback interface, plus the websocket event stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/bridge"
	"github.com/lumenbrowser/lumen/internal/config"
	"github.com/lumenbrowser/lumen/internal/domain/downloads"
	"github.com/lumenbrowser/lumen/internal/domain/tabs"
	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/monitoring"
	"github.com/lumenbrowser/lumen/internal/navigation"
	"github.com/lumenbrowser/lumen/internal/store"
)

// Deps are the collaborators the server fronts.
type Deps struct {
	Tabs      *tabs.Manager
	Store     *store.Store
	Downloads *downloads.Tracker
	Omnibox   *navigation.Omnibox
	Stream    *bridge.Stream
	Metrics   *monitoring.Metrics
	AssetRoot string
}

// Server is the HTTP command surface.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	router *gin.Engine
	http   *http.Server
	log    *logging.Logger
}

// New creates a server with all routes registered.
func New(cfg config.ServerConfig, deps Deps, log *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		router: router,
		log:    log.Named("server"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if s.deps.Stream != nil {
		r.GET("/stream", s.deps.Stream.Handle)
	}

	r.GET("/tabs", s.listTabs)
	r.POST("/tabs", s.createTab)
	r.GET("/tabs/:id", s.getTab)
	r.DELETE("/tabs/:id", s.closeTab)
	r.POST("/tabs/:id/activate", s.activateTab)
	r.POST("/tabs/:id/navigate", s.navigateTab)

	r.GET("/navigation", s.navigationState)
	r.POST("/navigation/back", s.back)
	r.POST("/navigation/forward", s.forward)
	r.POST("/navigation/reload", s.reload)
	r.POST("/navigation/omnibox", s.omnibox)

	r.GET("/tabs/:id/find", s.findState)
	r.POST("/tabs/:id/find", s.findStart)
	r.POST("/tabs/:id/find/next", s.findNext)
	r.DELETE("/tabs/:id/find", s.findStop)

	r.GET("/bookmarks", s.listBookmarks)
	r.POST("/bookmarks", s.addBookmark)
	r.PUT("/bookmarks/:id", s.updateBookmark)
	r.POST("/bookmarks/:id/move", s.moveBookmark)
	r.DELETE("/bookmarks/:id", s.deleteBookmark)

	r.GET("/folders", s.listFolders)
	r.POST("/folders", s.addFolder)
	r.PUT("/folders/:id", s.renameFolder)
	r.DELETE("/folders/:id", s.deleteFolder)

	r.GET("/history", s.listHistory)
	r.DELETE("/history/:id", s.deleteHistory)
	r.DELETE("/history", s.clearHistory)

	r.GET("/downloads", s.listDownloads)
	r.DELETE("/downloads", s.clearDownloads)

	r.GET("/settings", s.listSettings)
	r.GET("/settings/:key", s.getSetting)
	r.PUT("/settings/:key", s.setSetting)
	r.DELETE("/settings/:key", s.deleteSetting)

	r.POST("/session/save", s.saveSession)
	r.POST("/session/restore", s.restoreSession)

	if s.deps.AssetRoot != "" {
		r.GET("/internal/:host/*asset", s.serveAsset)
	}
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts serving and blocks until the listener fails or Shutdown
// is called.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket stream stays open
	}
	s.log.Info("listening", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	stats := s.deps.Tabs.Stats()
	body := gin.H{
		"status": "ok",
		"tabs":   stats.TotalTabs,
	}
	if s.deps.Metrics != nil {
		body["uptime_seconds"] = s.deps.Metrics.Uptime().Seconds()
	}
	c.JSON(http.StatusOK, body)
}

// serveAsset maps /internal/<host>/<path> onto the asset root through
// the scheme resolver, which rejects anything escaping the root.
func (s *Server) serveAsset(c *gin.Context) {
	address := fmt.Sprintf("%s://%s%s", navigation.Scheme, c.Param("host"), c.Param("asset"))
	resolved, err := navigation.ResolveAsset(s.deps.AssetRoot, address)
	if err != nil {
		s.log.Warn("asset rejected", zap.String("address", address), zap.Error(err))
		c.Status(http.StatusNotFound)
		return
	}
	c.File(resolved)
}
