// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Corphon/PsychoPedia/internal/app"
	"github.com/Corphon/PsychoPedia/internal/config"
	"github.com/Corphon/PsychoPedia/internal/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "psychopedia:", err)
		os.Exit(1)
	}
}

func run() error {
	baseConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := utils.InitLogger(utils.LogConfig{
		Level:  baseConfig.LogLevel,
		Pretty: baseConfig.LogPretty,
		File:   filepath.Join(baseConfig.LogDir, "server.log"),
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger := utils.GetLogger().With("main")

	if err := config.InitConfig(baseConfig.DataDir); err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	cfg := config.GetCurrentConfig()
	logger.Info("configuration loaded", map[string]interface{}{
		"port":           cfg.Port,
		"data_dir":       cfg.DataDir,
		"content_dir":    cfg.ContentDir,
		"default_locale": cfg.DefaultLocale,
		"metrics":        cfg.MetricsEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
