// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/PsychoPedia/internal/api"
	"github.com/Corphon/PsychoPedia/internal/config"
	"github.com/Corphon/PsychoPedia/internal/content"
	"github.com/Corphon/PsychoPedia/internal/di"
	"github.com/Corphon/PsychoPedia/internal/export"
	"github.com/Corphon/PsychoPedia/internal/highlights"
	"github.com/Corphon/PsychoPedia/internal/metrics"
	"github.com/Corphon/PsychoPedia/internal/profile"
	"github.com/Corphon/PsychoPedia/internal/search"
	"github.com/Corphon/PsychoPedia/internal/storage"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

const (
	shutdownTimeout = 15 * time.Second
	cacheSweep      = 5 * time.Minute
)

// Server is the part of *http.Server the app drives.
type Server interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// App owns the service graph and the HTTP server.
type App struct {
	config    *config.AppConfig
	container *di.Container
	storage   *storage.FileStorage
	content   *content.Store
	search    *search.Searcher
	hub       *api.Hub
	router    *gin.Engine
	server    Server
	logger    *utils.Logger

	reloadMu sync.Mutex
}

// New builds every service from cfg, loads the content tree and indexes it.
// config.InitConfig must have run, the palette is read through it.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{
		config:    cfg,
		container: di.NewContainer(),
		logger:    utils.GetLogger().With("app"),
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	fs, err := storage.NewFileStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.storage = fs

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.NewMetrics()
		a.container.Register(di.Metrics, m)
	}

	a.content = content.NewStore(cfg.ContentDir, cfg.DefaultLocale)
	a.search = search.NewSearcher()
	if _, err := a.Reload(ctx); err != nil {
		return nil, err
	}

	a.hub = api.NewHub(m)
	provider := highlights.NewFileProvider(fs, config.DefaultColor)

	a.container.Register(di.Content, a.content)
	a.container.Register(di.Search, a.search)
	a.container.Register(di.Highlights, highlights.NewService(provider, a.hub, m))
	a.container.Register(di.States, profile.NewStateStore(fs))
	a.container.Register(di.Exporter, export.New(cfg.DefaultColor))
	a.container.Register(di.Palette, api.PaletteStore(config.PaletteSettings{}))
	a.container.Register(di.Hub, a.hub)

	deps, err := api.DependenciesFrom(a.container)
	if err != nil {
		return nil, fmt.Errorf("resolve services: %w", err)
	}
	deps.Reload = a.Reload
	deps.DefaultLocale = cfg.DefaultLocale
	deps.MaxSearchResults = cfg.MaxSearchResults
	deps.WriteRateLimit = cfg.WriteRateLimit
	deps.StaticDir = cfg.StaticDir
	deps.DebugMode = cfg.DebugMode
	a.router = api.NewRouter(deps)

	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("services initialized", map[string]interface{}{
		"services": a.container.Names(),
	})
	return a, nil
}

// Reload re-reads the content tree and swaps the search indexes.
func (a *App) Reload(ctx context.Context) (content.LoadStats, error) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	stats, err := a.content.Load(ctx)
	if err != nil {
		return stats, fmt.Errorf("load content: %w", err)
	}
	a.search.Rebuild(a.content)

	a.logger.Info("content indexed", map[string]interface{}{
		"dir":      a.config.ContentDir,
		"articles": stats.Articles,
		"skipped":  stats.Skipped,
	})
	return stats, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run()
	defer a.hub.Stop()

	cacheCtx, stopCache := context.WithCancel(ctx)
	defer stopCache()
	a.storage.StartCacheCleanup(cacheCtx, cacheSweep)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", map[string]interface{}{"port": a.config.Port})
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("server stopped", nil)
	return nil
}

func (a *App) Config() *config.AppConfig {
	return a.config
}

func (a *App) Container() *di.Container {
	return a.container
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

func (a *App) IsDebugMode() bool {
	return a.config != nil && a.config.DebugMode
}
