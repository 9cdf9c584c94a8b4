package port

import (
	"context"
	"time"
)

// RateLimitStore persists timestamped attempts for sliding-window throttling.
// Keys scope attempts to a rule plus caller identity.
type RateLimitStore interface {
	// Record appends an attempt at the given instant.
	Record(ctx context.Context, key string, at time.Time) error
	// Count reports how many attempts fall inside the window ending at now.
	Count(ctx context.Context, key string, window time.Duration, now time.Time) (int, error)
	// Prune discards attempts that fell out of the window ending at now.
	Prune(ctx context.Context, key string, window time.Duration, now time.Time) error
	// Earliest returns the oldest attempt still inside the window, if any.
	Earliest(ctx context.Context, key string, window time.Duration, now time.Time) (time.Time, bool, error)
}
