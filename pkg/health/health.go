package health

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	defaultTimeout = 5 * time.Second

	// StatusHealthy indicates all checks passed.
	StatusHealthy = "healthy"
	// StatusDegraded indicates only optional checks failed; the service
	// still works, with reduced capability (e.g., cache running on the
	// local tier because Redis is unreachable).
	StatusDegraded = "degraded"
	// StatusUnhealthy indicates a required check failed.
	StatusUnhealthy = "unhealthy"
)

// CheckFunc is the standard health check function signature, matching
// the healthcheck closures exposed by the redis and cache packages.
type CheckFunc func(ctx context.Context) error

// Probe is a named health check. Optional probes degrade the overall
// status instead of failing it.
type Probe struct {
	Func     CheckFunc
	Optional bool
}

// Required wraps a CheckFunc as a mandatory probe.
func Required(fn CheckFunc) Probe {
	return Probe{Func: fn}
}

// BestEffort wraps a CheckFunc as an optional probe whose failure only
// degrades the service.
func BestEffort(fn CheckFunc) Probe {
	return Probe{Func: fn, Optional: true}
}

// Checks is a map of named probes.
type Checks map[string]Probe

// Response represents a health check response.
type Response struct {
	Checks map[string]Result `json:"checks,omitempty"`
	Status string            `json:"status"`
	// Latency is the wall time of the slowest probe.
	Latency time.Duration `json:"latency_ms"`
}

// Result represents the outcome of a single probe.
type Result struct {
	Status  string        `json:"status"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ms"`
}

// config holds health check configuration.
type config struct {
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures health check behavior.
type Option func(*config)

// WithTimeout sets the timeout for all checks.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for error logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// newConfig creates a config with defaults, modified by options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Run executes all probes in parallel and aggregates the result:
// unhealthy if any required probe failed, degraded if only optional
// probes failed, healthy otherwise.
func Run(ctx context.Context, checks Checks, opts ...Option) *Response {
	return runChecks(ctx, checks, newConfig(opts...))
}

func runChecks(ctx context.Context, checks Checks, cfg *config) *Response {
	if len(checks) == 0 {
		return &Response{Status: StatusHealthy}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	var (
		mu          sync.Mutex
		wg          sync.WaitGroup
		results     = make(map[string]Result, len(checks))
		hasRequired bool
		hasOptional bool
		slowest     time.Duration
	)

	for name, probe := range checks {
		wg.Add(1)
		go func(name string, probe Probe) {
			defer wg.Done()

			start := time.Now()
			err := probe.Func(ctx)
			latency := time.Since(start)

			result := Result{Status: StatusHealthy, Latency: latency}
			if err != nil {
				result.Error = err.Error()
				if probe.Optional {
					result.Status = StatusDegraded
				} else {
					result.Status = StatusUnhealthy
				}
				cfg.logger.WarnContext(ctx, "health check failed",
					slog.String("check", name),
					slog.Bool("optional", probe.Optional),
					slog.String("error", err.Error()),
				)
			}

			mu.Lock()
			results[name] = result
			if err != nil {
				if probe.Optional {
					hasOptional = true
				} else {
					hasRequired = true
				}
			}
			slowest = max(slowest, latency)
			mu.Unlock()
		}(name, probe)
	}

	wg.Wait()

	status := StatusHealthy
	switch {
	case hasRequired:
		status = StatusUnhealthy
	case hasOptional:
		status = StatusDegraded
	}

	return &Response{
		Status:  status,
		Checks:  results,
		Latency: slowest,
	}
}
