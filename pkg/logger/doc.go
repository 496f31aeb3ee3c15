// Package logger builds the slog loggers used across the cache platform.
//
// Two concerns layer on top of log/slog:
//
//   - Context extraction: request-scoped values (request IDs, user IDs,
//     cache tier) are pulled out of context.Context at log time by
//     ContextExtractor functions, so call sites never thread them by
//     hand.
//   - Fan-out: NewWithSentry mirrors warn/error records to Sentry while
//     everything still lands on stdout as JSON. With an empty DSN it
//     degrades to stdout only, which keeps local development quiet.
//
// Typical wiring:
//
//	log := logger.NewWithSentry(logger.SentryConfig{DSN: dsn},
//	    func(ctx context.Context) (slog.Attr, bool) {
//	        if id, ok := ctx.Value(requestIDKey).(string); ok {
//	            return slog.String("request_id", id), true
//	        }
//	        return slog.Attr{}, false
//	    },
//	)
//
// Components that accept an optional *slog.Logger default to NewNope,
// so an unconfigured logger is silence rather than a nil dereference.
package logger
