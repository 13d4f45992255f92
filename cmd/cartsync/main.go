package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arbolmarket/cartsync/internal/api"
	"github.com/arbolmarket/cartsync/internal/cart"
	"github.com/arbolmarket/cartsync/pkg/config"
	"github.com/arbolmarket/cartsync/pkg/kv"
	"github.com/arbolmarket/cartsync/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartsync"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartsync",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	var backend kv.Backend
	if cfg.Redis.Configured() {
		redisBackend, err := kv.NewRedisBackend(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisBackend.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		backend = redisBackend
	} else {
		logg.Warn(ctx, "no redis endpoint configured, cart state will not survive restarts")
		backend = kv.NewMemoryBackend()
	}

	store, err := kv.NewStore(backend)
	if err != nil {
		logg.Error(ctx, "failed to build persisted store", err)
		os.Exit(1)
	}

	session := api.NewSession(store)
	if session.Restore(ctx) {
		logg.Info(logg.WithSessionID(ctx, session.UserID()), "restored persisted session")
	}

	client, err := api.NewHTTPClient(cfg.API, session, logg)
	if err != nil {
		logg.Error(ctx, "failed to build storefront client", err)
		os.Exit(1)
	}

	container, err := cart.NewContainer(store)
	if err != nil {
		logg.Error(ctx, "failed to build cart container", err)
		os.Exit(1)
	}
	if err := container.Load(ctx); err != nil {
		logg.Error(ctx, "failed to load persisted cart", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := cart.NewMetrics(registry)

	service, err := cart.NewService(cart.ServiceParams{
		Container: container,
		Session:   session,
		CartAPI:   client,
		Catalog:   client,
		Store:     store,
		Logger:    logg,
		Metrics:   metrics,
		Config:    cfg.Cart,
	})
	if err != nil {
		logg.Error(ctx, "failed to build cart service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting cartsync")

	server := &http.Server{
		Addr:    addr,
		Handler: newRouter(service, registry),
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "cartsync stopped unexpectedly", err)
		os.Exit(1)
	}
}

// newRouter exposes the local ops surface: liveness, metrics, and a
// read-only snapshot of the active cart.
func newRouter(service cart.Service, registry *prometheus.Registry) http.Handler {
	router := chi.NewRouter()

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Get("/cart", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(service.State())
	})

	return router
}
