package httpcache_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/claimguard/cachekit/pkg/cache"
	"github.com/claimguard/cachekit/pkg/httpcache"
)

func newStore(t *testing.T) cache.TaggedCache[httpcache.Response] {
	t.Helper()
	store := cache.NewMemory[httpcache.Response](nil)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func jsonHandler(calls *atomic.Int32, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestMiddleware_GetHitAndMiss(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store)(jsonHandler(&calls, `{"ok":true}`))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/properties/42", nil))

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))
	require.NotEmpty(t, first.Header().Get("X-Cache-Key"))
	require.True(t, strings.HasSuffix(first.Header().Get("X-Cache-Time"), "ms"))
	require.Equal(t, `{"ok":true}`, first.Body.String())
	require.Equal(t, int32(1), calls.Load())

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/properties/42", nil))

	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Equal(t, "application/json", second.Header().Get("Content-Type"))
	require.True(t, strings.HasSuffix(second.Header().Get("X-Cache-Time"), "ms"))
	require.Equal(t, `{"ok":true}`, second.Body.String())
	require.Equal(t, int32(1), calls.Load(), "hit must not invoke the handler")
}

func TestMiddleware_KeyIncludesQueryParams(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store)(jsonHandler(&calls, `[]`))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search?county=monroe", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search?county=dade", nil))

	require.Equal(t, int32(2), calls.Load(), "different queries must not share an entry")

	// Parameter order must not matter.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/search?a=1&b=2", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/search?b=2&a=1", nil))

	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.Equal(t, int32(3), calls.Load())
}

func TestMiddleware_UserKeyPartitionsCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store,
		httpcache.WithUserKey(func(r *http.Request) string {
			return r.Header.Get("X-User-ID")
		}),
	)(jsonHandler(&calls, `{}`))

	alice := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
	alice.Header.Set("X-User-ID", "alice")
	bob := httptest.NewRequest(http.MethodGet, "/api/claims", nil)
	bob.Header.Set("X-User-ID", "bob")

	handler.ServeHTTP(httptest.NewRecorder(), alice)
	handler.ServeHTTP(httptest.NewRecorder(), bob)

	require.Equal(t, int32(2), calls.Load(), "users must not share entries")
}

func TestMiddleware_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/fail", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	require.Equal(t, int32(2), calls.Load(), "error responses must not be cached")
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestMiddleware_DoesNotCacheNonJSON(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/page", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/page", nil))

	require.Equal(t, int32(2), calls.Load())
}

func TestMiddleware_MutationInvalidatesTags(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	mw := httpcache.New(store, httpcache.WithTags("properties"))
	getHandler := mw(jsonHandler(&calls, `{"v":1}`))
	postHandler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	// Warm the cache.
	handler := getHandler
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))

	// A successful mutation drops the tag.
	postHandler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/properties", nil))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/properties", nil))
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.Equal(t, int32(2), calls.Load())
}

func TestMiddleware_FailedMutationKeepsCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	mw := httpcache.New(store, httpcache.WithTags("claims"))
	getHandler := mw(jsonHandler(&calls, `{}`))
	postHandler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	getHandler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/claims", nil))
	postHandler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/claims", nil))

	rec := httptest.NewRecorder()
	getHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/claims", nil))
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"), "failed mutation must not invalidate")
}

func TestMiddleware_SkipBypassesCache(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store,
		httpcache.WithSkip(func(r *http.Request) bool {
			return r.Header.Get("Cache-Control") == "no-cache"
		}),
	)(jsonHandler(&calls, `{}`))

	req := httptest.NewRequest(http.MethodGet, "/api/live", nil)
	req.Header.Set("Cache-Control", "no-cache")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, int32(2), calls.Load())
	require.Empty(t, rec.Header().Get("X-Cache"), "skipped requests carry no cache headers")
}

func TestMiddleware_TTLOverride(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	store := newStore(t)
	handler := httpcache.New(store, httpcache.WithTTL(10*time.Millisecond))(jsonHandler(&calls, `{}`))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	time.Sleep(20 * time.Millisecond)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	require.Equal(t, int32(2), calls.Load())
}

func TestMiddleware_HeadRequestBypasses(t *testing.T) {
	t.Parallel()

	store := newStore(t)
	handler := httpcache.New(store, httpcache.WithTags("static"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, store.SetTagged(context.Background(), "sentinel", httpcache.Response{Status: 200}, time.Minute, "static"))

	// HEAD is a non-GET: it passes through and, being successful,
	// invalidates the configured tags like any other mutation.
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodHead, "/api/static", nil))

	_, err := store.Get(context.Background(), "sentinel")
	require.ErrorIs(t, err, cache.ErrNotFound)
}
