package redis

import (
	"context"
	"io"
)

// Shutdown returns a function that gracefully closes the Redis client.
// Register it with whatever owns the process shutdown sequence.
//
// Example:
//
//	shutdownHooks = append(shutdownHooks, redis.Shutdown(client))
func Shutdown(client io.Closer) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Close()
	}
}
