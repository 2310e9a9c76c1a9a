package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-register/internal/common"
	"github.com/noah-isme/pos-register/internal/config"
	"github.com/noah-isme/pos-register/internal/health"
	"github.com/noah-isme/pos-register/internal/obs"
	"github.com/noah-isme/pos-register/internal/ratelimit"
	"github.com/noah-isme/pos-register/internal/register"
	"github.com/noah-isme/pos-register/internal/security"
)

type routerDeps struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Registers      *register.Handler
	Redis          *redis.Client
	Metrics        prometheus.Registerer
	Gatherer       prometheus.Gatherer
	TracingEnabled bool
	PprofEnabled   bool
	PprofUser      string
	PprofPass      string
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.MetricsEnabled {
		buckets := obs.ParseBucketsCSV(cfg.MetricsBucketsMS)
		r.Use(obs.HTTPObs{Metrics: obs.NewHTTPMetrics(cfg.MetricsNamespace, buckets, d.Metrics)}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", common.IdempotencyHeader},
		ExposedHeaders:   []string{"Location", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.MetricsEnabled {
		gatherer := d.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	if d.PprofEnabled {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), d.PprofUser, d.PprofPass))
	}

	healthHandler := health.Handler{}
	if d.Redis != nil {
		healthHandler.Checkers = append(healthHandler.Checkers, health.CheckFunc{
			Label: "redis",
			Fn:    func(ctx context.Context) error { return d.Redis.Ping(ctx).Err() },
		})
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter("register-api")
	if d.Redis != nil {
		limiter = ratelimit.RedisLimiter{Client: d.Redis}
	}
	limit := ratelimit.Handler{
		Limiter: limiter,
		Config:  ratelimit.Config{Key: ratelimit.ByRemoteAddr, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { d.Logger.Warn().Err(err).Msg("rate limiter unavailable") },
	}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.Headers{Enable: cfg.SecurityHeadersEnabled, EnableHSTS: cfg.HSTSEnabled}.Middleware)
		v.Use(security.BodyLimit{Max: cfg.MaxBodyBytes}.Middleware)
		v.Use(limit.Middleware)
		d.Registers.Routes(v, idem.Middleware)
	})
	return r
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
