// Package health aggregates named health probes into a tri-state
// service status: healthy, degraded, or unhealthy.
//
// Probes come in two flavors. Required probes guard fundamentals — if
// the in-process cache tier cannot round-trip a value, the service is
// unhealthy. Optional probes cover capabilities the service can live
// without: an unreachable Redis backend degrades the cache to its local
// tier but does not make the service unready.
//
//	checks := health.Checks{
//	    "memory": health.Required(localProbe),
//	    "redis":  health.BestEffort(redis.Healthcheck(client)),
//	}
//	resp := health.Run(ctx, checks)
//
// [LivenessHandler] and [ReadinessHandler] expose the result over HTTP
// for Kubernetes-style probing; degraded still reports ready.
package health
