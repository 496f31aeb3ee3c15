package httpcache

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/cachekeys"
)

// Response is a memoized HTTP response. Only the content type survives
// from the original header set; everything else (dates, request IDs,
// cookies) is request-scoped and must not be replayed.
type Response struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
	Status      int    `json:"status"`
}

// Config configures the response-cache middleware.
type Config struct {
	// TTL for cached responses. Zero uses the store's default TTL.
	TTL time.Duration
	// Tags attached to every cached response, for bulk invalidation
	// after mutating writes elsewhere.
	Tags []string
	// InvalidateTags are dropped after a successful non-GET request
	// passes through the middleware. Defaults to Tags.
	InvalidateTags []string
	// UserKey extracts an identifier that partitions the cache per
	// user. Nil means responses are shared across users.
	UserKey func(r *http.Request) string
	// Skip bypasses the cache for individual requests (e.g., an
	// explicit Cache-Control: no-cache from an admin tool).
	Skip func(r *http.Request) bool
	// Logger for degraded-mode warnings. Nil discards.
	Logger *slog.Logger
}

// Option configures Config.
type Option func(*Config)

// WithTTL sets the TTL for cached responses.
func WithTTL(d time.Duration) Option {
	return func(c *Config) { c.TTL = d }
}

// WithTags sets the invalidation tags attached to cached responses.
func WithTags(tags ...string) Option {
	return func(c *Config) { c.Tags = tags }
}

// WithInvalidateTags sets the tags dropped after successful mutations.
func WithInvalidateTags(tags ...string) Option {
	return func(c *Config) { c.InvalidateTags = tags }
}

// WithUserKey partitions cached responses by the extracted identifier.
func WithUserKey(fn func(r *http.Request) string) Option {
	return func(c *Config) { c.UserKey = fn }
}

// WithSkip bypasses the cache when fn returns true.
func WithSkip(fn func(r *http.Request) bool) Option {
	return func(c *Config) { c.Skip = fn }
}

// WithLogger sets the middleware logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// New returns middleware that memoizes GET responses in the given store.
//
// GET requests are keyed by endpoint, query parameters, and the optional
// user identifier. Hits are replayed with "X-Cache: HIT"; misses run the
// handler and cache successful JSON responses with "X-Cache: MISS".
// Error and non-JSON responses are never cached.
//
// Non-GET requests bypass the cache and, when they succeed, invalidate
// the configured tags — the mutation-invalidates-cache pattern.
func New(store cache.TaggedCache[Response], opts ...Option) func(http.Handler) http.Handler {
	cfg := &Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.InvalidateTags == nil {
		cfg.InvalidateTags = cfg.Tags
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				rec := newRecorder(w)
				next.ServeHTTP(rec, r)
				rec.flushHeader()
				if rec.status >= 200 && rec.status < 300 {
					invalidate(r, store, cfg)
				}
				return
			}

			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := cacheKey(r, cfg)
			start := time.Now()

			if resp, err := store.Get(r.Context(), key); err == nil {
				serveCached(w, key, resp, start)
				return
			}

			rec := newRecorder(w)
			rec.header.Set("X-Cache", "MISS")
			rec.header.Set("X-Cache-Key", shortKey(key))
			next.ServeHTTP(rec, r)
			rec.flushHeader()

			if cacheable(rec) {
				err := store.SetTagged(r.Context(), key, Response{
					Status:      rec.status,
					ContentType: rec.header.Get("Content-Type"),
					Body:        rec.body.Bytes(),
				}, cfg.TTL, cfg.Tags...)
				if err != nil {
					cfg.Logger.WarnContext(r.Context(), "failed to cache response",
						slog.String("key", key),
						slog.String("error", err.Error()),
					)
				}
			}
		})
	}
}

// cacheKey builds a stable key from endpoint, sorted query parameters,
// and the optional user identifier.
func cacheKey(r *http.Request, cfg *Config) string {
	params := make([]string, 0, len(r.URL.Query()))
	for k, vs := range r.URL.Query() {
		for _, v := range vs {
			params = append(params, k+"="+v)
		}
	}
	sort.Strings(params)

	var user string
	if cfg.UserKey != nil {
		user = cfg.UserKey(r)
	}

	return "http:" + r.URL.Path + ":" + cachekeys.Hash(strings.Join(params, "&"), user)
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16]
	}
	return key
}

func serveCached(w http.ResponseWriter, key string, resp Response, start time.Time) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set("X-Cache", "HIT")
	w.Header().Set("X-Cache-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10)+"ms")
	w.Header().Set("X-Cache-Key", shortKey(key))
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// cacheable reports whether a recorded response may be stored: only
// successful JSON responses are.
func cacheable(rec *recorder) bool {
	if rec.status < 200 || rec.status >= 300 {
		return false
	}
	return strings.Contains(rec.header.Get("Content-Type"), "application/json")
}

func invalidate(r *http.Request, store cache.TaggedCache[Response], cfg *Config) {
	for _, tag := range cfg.InvalidateTags {
		if _, err := store.InvalidateByTag(r.Context(), tag); err != nil {
			cfg.Logger.WarnContext(r.Context(), "post-mutation invalidation failed",
				slog.String("tag", tag),
				slog.String("error", err.Error()),
			)
		}
	}
}

// recorder tees the response to the client while keeping a copy for the
// cache. Headers are buffered so cache headers can be attached before
// the handler commits the status line.
type recorder struct {
	dst     http.ResponseWriter
	header  http.Header
	body    bytes.Buffer
	start   time.Time
	status  int
	wroteHd bool
}

func newRecorder(dst http.ResponseWriter) *recorder {
	return &recorder{
		dst:    dst,
		header: make(http.Header),
		start:  time.Now(),
		status: http.StatusOK,
	}
}

func (r *recorder) Header() http.Header {
	return r.header
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHd {
		return
	}
	r.status = status
	r.wroteHd = true
	// Stamp the handler's elapsed time at commit; only cache-managed
	// responses carry the header.
	if r.header.Get("X-Cache") != "" {
		r.header.Set("X-Cache-Time", strconv.FormatInt(time.Since(r.start).Milliseconds(), 10)+"ms")
	}
	dst := r.dst.Header()
	for k, vs := range r.header {
		dst[k] = vs
	}
	r.dst.WriteHeader(status)
}

func (r *recorder) Write(p []byte) (int, error) {
	if !r.wroteHd {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(p)
	return r.dst.Write(p)
}

// flushHeader commits the status line for handlers that never write a
// body.
func (r *recorder) flushHeader() {
	if !r.wroteHd {
		r.WriteHeader(r.status)
	}
}
