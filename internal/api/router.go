// internal/api/router.go
package api

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PsychoPedia/internal/content"
	"github.com/Corphon/PsychoPedia/internal/di"
	"github.com/Corphon/PsychoPedia/internal/export"
	"github.com/Corphon/PsychoPedia/internal/highlights"
	"github.com/Corphon/PsychoPedia/internal/metrics"
	"github.com/Corphon/PsychoPedia/internal/profile"
	"github.com/Corphon/PsychoPedia/internal/search"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

// DependenciesFrom resolves the registered services. Options such as
// DefaultLocale are left for the caller to fill in.
func DependenciesFrom(container *di.Container) (Dependencies, error) {
	var (
		deps Dependencies
		err  error
	)
	if deps.Content, err = di.Resolve[*content.Store](container, di.Content); err != nil {
		return deps, err
	}
	if deps.Search, err = di.Resolve[*search.Searcher](container, di.Search); err != nil {
		return deps, err
	}
	if deps.Highlights, err = di.Resolve[*highlights.Service](container, di.Highlights); err != nil {
		return deps, err
	}
	if deps.States, err = di.Resolve[*profile.StateStore](container, di.States); err != nil {
		return deps, err
	}
	if deps.Exporter, err = di.Resolve[*export.Exporter](container, di.Exporter); err != nil {
		return deps, err
	}
	if deps.Palette, err = di.Resolve[PaletteStore](container, di.Palette); err != nil {
		return deps, err
	}
	deps.Hub = di.Optional[*Hub](container, di.Hub)
	deps.Metrics = di.Optional[*metrics.Metrics](container, di.Metrics)
	return deps, nil
}

// NewRouter builds the HTTP engine.
func NewRouter(deps Dependencies) *gin.Engine {
	handler := NewHandler(deps)
	logger := utils.GetLogger().With("http")

	r := gin.New()
	r.Use(requestIDMiddleware())
	r.Use(recoveryMiddleware(handler.rh, logger))
	r.Use(corsMiddleware())
	r.Use(accessLogMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Writes share one per-IP budget per minute.
	writes := []gin.HandlerFunc{}
	if deps.WriteRateLimit > 0 {
		writes = append(writes, NewRateLimiter(deps.WriteRateLimit, time.Minute).Middleware(handler.rh))
	}
	limited := func(h gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), h)
	}

	mountStatic(r, deps.StaticDir)

	r.GET("/ws/articles/:domain/:topic", handler.ArticleWebSocket)

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)
		api.GET("/search", handler.Search)
		api.POST("/render", limited(handler.RenderText)...)
		api.POST("/content/reload", limited(handler.ReloadContent)...)
		api.GET("/ws/status", handler.WebSocketStatus)

		// ===============================
		// Articles
		// ===============================
		articles := api.Group("/articles")
		{
			articles.GET("", handler.ListArticles)
			articles.GET("/:domain/:topic", handler.GetArticle)
			articles.GET("/:domain/:topic/export", handler.ExportArticle)
		}

		// ===============================
		// Palette
		// ===============================
		api.GET("/palette", handler.GetPalette)
		api.PUT("/palette", limited(handler.UpdatePalette)...)

		// ===============================
		// Reader profiles
		// ===============================
		profiles := api.Group("/profiles/:profile")
		{
			profiles.GET("/state", handler.GetReaderState)
			profiles.PUT("/state", limited(handler.UpdateReaderState)...)

			profiles.GET("/highlights", handler.ListHighlights)
			profiles.POST("/highlights", limited(handler.AddHighlight)...)
			profiles.DELETE("/highlights/:id", limited(handler.DeleteHighlight)...)
			profiles.DELETE("/articles/:domain/:topic/highlights", limited(handler.ClearArticleHighlights)...)
		}
	}

	return r
}

// mountStatic serves the built web client when it exists.
func mountStatic(r *gin.Engine, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	r.Static("/static", dir)

	index := filepath.Join(dir, "index.html")
	if _, err := os.Stat(index); err == nil {
		r.StaticFile("/", index)
	}
}
