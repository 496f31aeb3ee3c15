// Package cachekeys defines the cache key namespace and TTL policy for
// the claims platform.
//
// Key formats are a wire contract shared with other services reading the
// same Redis database, so the builders here must be used instead of
// ad-hoc string concatenation:
//
//	cachekeys.PropertyData("p1")        // "property:data:p1"
//	cachekeys.RateLimit("login", "u42") // "rate:login:u42"
//
// The [Policy] table maps logical resource classes to TTLs and
// invalidation tags. The defaults match the platform policy (sessions
// 24h, claim status 5m, flood zones 7d, and so on) and can be overlaid
// from YAML with [Policy.ApplyYAML]. Invalid overrides are corrected to
// the defaults with a logged warning — configuration is never fatal.
package cachekeys
