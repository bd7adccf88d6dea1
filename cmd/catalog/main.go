package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/masad40/next-sc/internal/catalog"
	"github.com/masad40/next-sc/internal/config"
	"github.com/masad40/next-sc/pkg/kit"
)

func main() {
	os.Exit(run())
}

func run() int {
	service := "catalog"

	cfg, err := config.Load()
	if err != nil {
		log := kit.NewLogger(service, config.DefaultLogLevel)
		log.Error("load config", zap.Error(err))
		return 1
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg.Catalog, log)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return 1
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &catalog.Server{Store: store, Log: log}
	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		CORSOrigins:    cfg.Catalog.CORSOrigins,
	})

	if err := kit.RunHTTPServer(ctx, cfg.Catalog.Address(), h, log, cfg.ShutdownTimeout); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func openStore(ctx context.Context, cfg config.Catalog, log *zap.Logger) (catalog.Store, func(), error) {
	ids, err := catalog.NewIDGenerator(cfg.IDScheme)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DatabaseURL == "" {
		log.Info("using in-memory catalog", zap.String("id_scheme", cfg.IDScheme))
		return catalog.NewMemStore(ids, catalog.SeedItems()...), func() {}, nil
	}

	db, err := catalog.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	store := catalog.NewPostgresStore(db, ids)
	if err := store.Migrate(ctx, catalog.SeedItems()); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	log.Info("using postgres catalog", zap.String("id_scheme", cfg.IDScheme))
	return store, func() { _ = db.Close() }, nil
}
