package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/storemap/cache"
	"github.com/warp/storemap/catalog"
	"github.com/warp/storemap/config"
	"github.com/warp/storemap/remote"
	"github.com/warp/storemap/store/sqlite"
)

// app holds the wired components shared by the subcommands.
type app struct {
	db         *sqlite.Store
	cache      *cache.Store
	loader     *remote.Loader
	controller *catalog.Controller
}

// openApp opens the database and builds the controller.
func openApp(cfg *config.Config, logger *zap.Logger, opts ...catalog.Option) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(cfg.DBPath, sqlite.WithQuota(cfg.CacheQuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{
		db:     db,
		cache:  cache.New(db),
		loader: remote.NewLoader(cfg.Endpoint, logger),
	}

	opts = append([]catalog.Option{
		catalog.WithLogger(logger),
		catalog.WithLocation(loc),
		catalog.WithRunRecorder(db),
	}, opts...)
	a.controller = catalog.NewController(a.loader, a.cache, opts...)
	return a, nil
}

func (a *app) Close() error {
	return a.db.Close()
}
