// Package ratelimit implements an approximate fixed-window rate limiter
// on top of the cache layer.
//
// Each (identifier, action) pair owns a counter under the
// "rate:{action}:{identifier}" key. The counter is created on the first
// request of a window, incremented within it, and replaced once the
// window expires; the entry's TTL matches the window so abandoned
// counters clean themselves up.
//
// The failure policy is explicit because different callers want
// different tradeoffs when the counter store is down: the default fails
// open (availability over strict throttling — right for login-style
// limits), while WithFailClosed denies during outages (right for limits
// guarding expensive AI calls).
package ratelimit
