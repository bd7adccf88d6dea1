package main

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/masad40/next-sc/internal/config"
	"github.com/masad40/next-sc/internal/storefront"
	"github.com/masad40/next-sc/pkg/kit"
)

const (
	redisPrefix    = "storefront:catalog:"
	redisRetention = 24 * time.Hour
)

func main() {
	os.Exit(run())
}

func run() int {
	service := "storefront"

	cfg, err := config.Load()
	if err != nil {
		log := kit.NewLogger(service, config.DefaultLogLevel)
		log.Error("load config", zap.Error(err))
		return 1
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	sf := cfg.Storefront
	if sf.SessionSecret == config.DefaultSessionSecret {
		log.Warn("SESSION_SECRET not set, using the development secret")
	}
	if sf.ImageAPIKey == "" {
		log.Warn("IMGBB_API_KEY not set, image uploads will fail")
	}

	ctx := context.Background()

	cache, closeCache, err := openCache(ctx, sf, log)
	if err != nil {
		log.Error("open cache", zap.Error(err))
		return 1
	}
	defer closeCache()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	cc := storefront.NewCatalogClient(sf.CatalogURL, cache)
	cc.Log = log
	cc.ListTTL = sf.ListTTL
	cc.ItemTTL = sf.ItemTTL
	cc.CacheResults = storefront.NewCacheResults(reg)

	sessions, err := storefront.NewSessionManager(sf.SessionSecret, sf.DemoEmail, sf.DemoPassword, sf.SessionTTL)
	if err != nil {
		log.Error("init sessions", zap.Error(err))
		return 1
	}

	views, err := storefront.NewViews()
	if err != nil {
		log.Error("parse templates", zap.Error(err))
		return 1
	}

	s := &storefront.Server{
		Catalog: cc,
		Submit: &storefront.Submitter{
			Images:  storefront.NewImageHost(sf.ImageUploadURL, sf.ImageAPIKey),
			Catalog: cc,
			Log:     log,
		},
		Sessions:     sessions,
		Views:        views,
		LoginLimiter: storefront.NewLoginLimiter(sf.TrustProxy),
		Log:          log,
		DemoEmail:    sf.DemoEmail,
		DemoPassword: sf.DemoPassword,
	}

	h, err := storefront.NewHandler(s, storefront.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		CatalogURL:     sf.CatalogURL,
	})
	if err != nil {
		log.Error("init storefront handler", zap.Error(err))
		return 1
	}

	if err := kit.RunHTTPServer(ctx, sf.Address(), h, log, cfg.ShutdownTimeout); err != nil {
		log.Error("http server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func openCache(ctx context.Context, cfg config.Storefront, log *zap.Logger) (storefront.ResponseCache, func(), error) {
	if cfg.RedisAddr == "" {
		log.Info("using in-memory catalog cache")
		return storefront.NewMemoryCache(0), func() {}, nil
	}

	rc := storefront.NewRedisCache(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), redisPrefix, redisRetention)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		_ = rc.Close()
		return nil, nil, err
	}

	log.Info("using redis catalog cache", zap.String("addr", cfg.RedisAddr))
	return rc, func() { _ = rc.Close() }, nil
}
