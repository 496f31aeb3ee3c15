// Command example wires the full cache stack into a small claims API:
// a cached property endpoint with tag invalidation on mutation, a
// stampede-protected claim-status endpoint, a rate-limited login, and
// health/metrics endpoints.
//
// Run it against a local Redis:
//
//	REDIS_ENABLED=true go run ./example
//
// or without Redis at all; the service degrades to the in-process tier.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/claimguard/cachekit"
	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/cachekeys"
	"github.com/claimguard/cachekit/pkg/health"
	"github.com/claimguard/cachekit/pkg/httpcache"
	"github.com/claimguard/cachekit/pkg/logger"
)

type property struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	County    string    `json:"county"`
	FloodZone string    `json:"flood_zone"`
	FetchedAt time.Time `json:"fetched_at"`
}

type appConfig struct {
	Cache  cachekit.Config
	Sentry logger.SentryConfig
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := env.Parse(&cfg); err != nil {
		logger.New().Error("failed to parse config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Mirrors warnings and errors to Sentry when SENTRY_DSN is set;
	// plain stdout JSON otherwise.
	log := logger.NewWithSentry(cfg.Sentry)

	svc := cachekit.NewFromConfig(ctx, cfg.Cache, log)
	defer svc.Close()

	prometheus.MustRegister(svc.MetricsCollector("claims"))

	// Dedicated store for whole-response caching, separate from the
	// service's data cache so a Clear on one never flushes the other.
	responses := cache.NewMemory[httpcache.Response](nil,
		cache.WithMaxMemory(32<<20),
		cache.WithDefaultTTL(cachekeys.DefaultPolicy().TTL(cachekeys.ClassPropertyDetailed)),
	)
	defer responses.Close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", health.LivenessHandler())
	r.Get("/readyz", readiness(svc))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/properties", func(r chi.Router) {
		r.Use(httpcache.New(responses,
			httpcache.WithTags("properties"),
			httpcache.WithLogger(log),
		))
		r.Get("/{id}", getProperty)
		r.Put("/{id}", updateProperty(svc))
	})

	r.Get("/api/claims/{id}/status", getClaimStatus(svc))
	r.Post("/login", login(svc, log))

	srv := &http.Server{
		Addr:              getEnv("ADDRESS", ":8080"),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// getProperty simulates a slow upstream lookup; the response-cache
// middleware absorbs repeat reads.
func getProperty(w http.ResponseWriter, r *http.Request) {
	time.Sleep(150 * time.Millisecond) // pretend county-records call

	writeJSON(w, http.StatusOK, property{
		ID:        chi.URLParam(r, "id"),
		Address:   "1 Ocean Dr",
		County:    "monroe",
		FloodZone: "AE",
		FetchedAt: time.Now(),
	})
}

// updateProperty mutates a property. The middleware invalidates the
// "properties" tag once this returns 2xx, so the next read is fresh.
func updateProperty(svc *cachekit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var p property
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad payload", http.StatusBadRequest)
			return
		}
		p.ID = id

		if err := svc.CacheProperty(r.Context(), id, p); err != nil {
			http.Error(w, "cache write failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// getClaimStatus demonstrates get-or-compute: concurrent requests for
// the same claim share one upstream call.
func getClaimStatus(svc *cachekit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ttl := cachekeys.DefaultPolicy().TTL(cachekeys.ClassClaimStatus)

		var status string
		res, err := svc.GetOrSet(r.Context(), cachekeys.ClaimStatus(id), &status, ttl, func(ctx context.Context) (any, error) {
			time.Sleep(200 * time.Millisecond) // pretend adjuster-system call
			return "under_review", nil
		})
		if err != nil {
			http.Error(w, "status lookup failed", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"claim_id": id,
			"status":   status,
			"cached":   res.Cached,
			"ttl_s":    int(res.TTL.Seconds()),
		})
	}
}

// login applies a fixed-window limit of 5 attempts per 15 minutes per
// client address.
func login(svc *cachekit.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := svc.CheckRateLimit(r.Context(), r.RemoteAddr, "login", 5, 15*time.Minute)

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if !d.Allowed {
			log.WarnContext(r.Context(), "login rate limited", slog.String("addr", r.RemoteAddr))
			http.Error(w, "too many attempts", http.StatusTooManyRequests)
			return
		}

		// Real credential checking would happen here.
		writeJSON(w, http.StatusOK, map[string]string{"result": "ok"})
	}
}

func readiness(svc *cachekit.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := svc.HealthCheck(r.Context())

		code := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, map[string]any{
			"status":     h.Status,
			"redis":      h.Redis,
			"memory":     h.Memory,
			"latency_ms": h.Latency.Milliseconds(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, "encode response:", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
