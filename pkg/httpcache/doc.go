// Package httpcache memoizes whole HTTP responses in a tagged cache.
//
// The middleware wraps any net/http handler (chi-compatible). GET
// responses are cached under a key derived from the endpoint, sorted
// query parameters, and an optional per-user identifier; non-GET
// requests bypass the cache and invalidate the configured tags once the
// mutation succeeds, so readers never see stale data longer than one
// round trip.
//
//	store := cache.NewMemory[httpcache.Response](nil,
//	    cache.WithMaxMemory(64 << 20),
//	)
//	r.With(httpcache.New(store,
//	    httpcache.WithTTL(2 * time.Hour),
//	    httpcache.WithTags("properties"),
//	)).Get("/api/properties/{id}", getProperty)
//
// Every response carries "X-Cache: HIT|MISS", "X-Cache-Time", and a
// truncated "X-Cache-Key" for debugging. Only successful JSON responses
// are stored; errors and non-JSON payloads always pass through.
package httpcache
