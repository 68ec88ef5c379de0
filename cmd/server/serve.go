package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/config"
	"github.com/CageChen/syntaxia/internal/handler"
	"github.com/CageChen/syntaxia/internal/logging"
	"github.com/CageChen/syntaxia/internal/render"
	"github.com/CageChen/syntaxia/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the HTTP server",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.L()
	defer func() { _ = logging.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	renderer, err := newRenderer(ctx, cfg)
	if err != nil {
		return err
	}

	logger.Info("syntaxia starting",
		zap.String("config", cfg.GetConfigFilePath()),
		zap.String("root", describeRoot(cfg)),
		zap.Int("port", cfg.Port),
		zap.String("theme", cfg.Theme),
	)

	wsHandler := handler.NewWSHandler(logger.Named("ws"))

	// Setup file watcher if enabled
	if cfg.Watch && cfg.S3 == nil && cfg.GitRef == "" {
		w, err := startWatcher(cfg, renderer, wsHandler, logger)
		if err != nil {
			logger.Warn("file watcher disabled", zap.Error(err))
		} else {
			defer func() { _ = w.Stop() }()
			logger.Info("file watcher enabled")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterOptions{
		Pipeline: renderer,
		Stats:    renderer.CacheStats,
		Theme:    cfg.Theme,
		WS:       wsHandler,
		Metrics:  cfg.Metrics,
		Logger:   logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("url", fmt.Sprintf("http://localhost:%d", cfg.Port)))
		errCh <- srv.ListenAndServe()
	}()

	// Open browser if requested
	if cfg.Open {
		go openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startWatcher invalidates cached renders and notifies browsers on changes.
func startWatcher(cfg *config.Config, r *render.Renderer, ws *handler.WSHandler, logger *zap.Logger) (*watcher.Watcher, error) {
	w, err := watcher.New(cfg.AbsRoot(), r, logger.Named("watcher"))
	if err != nil {
		return nil, err
	}
	w.OnChange(func(e watcher.Event) {
		if n := r.Invalidate(e.Path); n > 0 {
			logger.Debug("invalidated cached renders", zap.String("path", e.Path), zap.Int("entries", n))
		}
		ws.OnFileChange(e)
	})
	if err := w.Start(); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}

func describeRoot(cfg *config.Config) string {
	switch {
	case cfg.S3 != nil:
		return "s3://" + cfg.S3.Bucket + "/" + cfg.S3.Prefix
	case cfg.GitRef != "":
		return cfg.AbsRoot() + "@" + cfg.GitRef
	}
	return cfg.AbsRoot()
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler", url}
	case "darwin":
		cmd = "open"
		args = []string{url}
	default: // linux, etc.
		cmd = "xdg-open"
		args = []string{url}
	}

	_ = exec.Command(cmd, args...).Start()
}
