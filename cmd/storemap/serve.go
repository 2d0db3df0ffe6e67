package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/warp/storemap/api"
	"github.com/warp/storemap/catalog"
	"github.com/warp/storemap/mapimage"
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Starts the HTTP API and loads the catalog in the background.

Startup sequence:
  1. Open the SQLite store (cache + refresh run log)
  2. Start listening; requests are served from the empty or cached state
  3. Init: show the cache, fetch once, swap in fresh data
  4. On SIGINT/SIGTERM, drain requests (30s) and close the database`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := openApp(cfg, logger, catalog.WithNotify(func(st catalog.Status) {
		logger.Info("Status", zap.String("kind", string(st.Kind)), zap.String("message", st.Message))
	}))
	if err != nil {
		return err
	}
	defer a.Close()

	renderer := mapimage.Blank(0, 0)
	if cfg.MapImage != "" {
		if renderer, err = mapimage.Open(cfg.MapImage); err != nil {
			return err
		}
	}

	loc, _ := cfg.Location()
	handler := api.NewHandler(a.controller, logger)
	handler.Runs = a.db
	handler.Map = renderer
	handler.ListLimit = cfg.ListLimit
	handler.Location = loc

	server := &http.Server{
		Addr: cfg.Addr,
		Handler: api.NewRouter(handler, api.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			StaticDir:      cfg.StaticDir,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", cfg.Addr), zap.String("endpoint", cfg.Endpoint))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.controller.Init(gctx, false)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}
