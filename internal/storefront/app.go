package storefront

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/masad40/next-sc/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string

	// CatalogURL is proxied under /api and probed by /readyz.
	CatalogURL string
}

const (
	loginAttempts = 5
	loginWindow   = time.Minute
)

// NewLoginLimiter allows five login attempts per client per minute.
// trustProxy keys on X-Forwarded-For and is only safe behind a proxy that
// sets it.
func NewLoginLimiter(trustProxy bool) *kit.IPRateLimiter {
	l := kit.NewIPRateLimiter(loginAttempts, loginWindow)
	l.TrustForwardedFor = trustProxy
	return l
}

// NewCacheResults registers the catalog cache counter on reg.
func NewCacheResults(reg prometheus.Registerer) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_catalog_cache_total",
		Help: "Catalog cache lookups by result",
	}, []string{"result"})
	reg.MustRegister(c)
	return c
}

func NewHandler(s *Server, deps HTTPDeps) (http.Handler, error) {
	catalogURL := strings.TrimRight(deps.CatalogURL, "/")

	api, err := NewReverseProxy(catalogURL, deps.Log)
	if err != nil {
		return nil, err
	}

	if s.Log == nil {
		s.Log = deps.Log
	}
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	if s.Search == nil {
		s.Search = &Searcher{}
	}
	if s.LoginLimiter == nil {
		s.LoginLimiter = NewLoginLimiter(false)
	}

	r := chi.NewRouter()
	setupMiddleware(r, deps)
	setupMetrics(r, deps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(catalogURL, s.Log))
	r.Handle("/api/*", http.StripPrefix("/api", api))

	r.Mount("/", s.Routes())
	return r, nil
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.ChiRoutePatternOrPath))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(catalogURL string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := checkReady(ctx, catalogURL+"/readyz"); err != nil {
			log.Warn("readyz failed: catalog", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
