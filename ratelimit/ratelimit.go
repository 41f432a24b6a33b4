// Package ratelimit implements the freestanding token-bucket rate limiter
// described in spec §5: continuous refill capped at capacity, a blocking
// Take that enforces a minimum wait to avoid tight spinning, and
// cancellation via context.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// minWait is the enforced minimum for any nonzero wait in Take, avoiding tight spinning when many callers contend for a small capacity
// (spec §5, "enforced minimum wait of 10 ms").
const minWait = 10 * time.Millisecond

// Bucket is a token bucket with the given capacity and refill rate
// (tokens/sec), wrapping golang.org/x/time/rate so the refill math itself
// is never hand-rolled.
type Bucket struct {
	limiter *rate.Limiter
}

// New returns a Bucket that holds at most capacity tokens and refills at
// ratePerSecond tokens/sec. The bucket starts full, matching x/time/rate's
// default burst-is-full-on-construction behavior.
func New(capacity int, ratePerSecond float64) *Bucket {
	return &Bucket{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), capacity)}
}

// Take reserves n tokens and blocks until the reservation is due, or
// returns ctx.Err() (handing the reserved tokens back) if ctx is cancelled
// first. A nonzero wait is never shorter than minWait. When n exceeds the
// bucket's capacity, Take returns context.DeadlineExceeded at once.
func (b *Bucket) Take(ctx context.Context, n int) error {
	res := b.limiter.ReserveN(time.Now(), n)
	if !res.OK() {
		// n exceeds the bucket's burst (capacity); it can never be
		// satisfied no matter how long we wait.
		return context.DeadlineExceeded
	}
	delay := res.Delay()
	if delay <= 0 {
		return nil
	}
	if delay < minWait {
		delay = minWait
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		res.Cancel()
		return ctx.Err()
	}
}

// Available reports the number of tokens currently available, capped at
// capacity, for inspection in tests and diagnostics (testable property
// 10: "after idle time t, available tokens = min(capacity, previous +
// rate*t)").
func (b *Bucket) Available() float64 {
	return b.limiter.TokensAt(time.Now())
}
