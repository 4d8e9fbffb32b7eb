package provider

import (
	"context"
	"time"

	"github.com/trustproxy/proxysentry/internal/queue"
)

// Orchestrate runs every provider concurrently, each pushing into q, until ctx is cancelled. Each
// provider's own Run loop decides its internal cadence; Orchestrate's job is just fan-out and
// aggregating their terminal errors.
func Orchestrate(ctx context.Context, providers []Provider, q *queue.Queue) <-chan error {
	errCh := make(chan error, len(providers))
	for _, p := range providers {
		p := p
		go func() {
			errCh <- p.Run(ctx, q)
		}()
	}
	return errCh
}

// nextInterval calculates the duration until the next modulo boundary of interval, the same
// approach the teacher's status-report loop uses (so a 10s cadence started at 00:00:03 ticks at
// 00:00:10, 00:00:20, ... rather than drifting off an arbitrary start time).
func nextInterval(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// tickForever invokes fn every interval (aligned via nextInterval) until ctx is cancelled. Used by
// FileProvider callers that want the teacher's periodic-reload cadence instead of a raw
// time.Ticker, which would drift relative to wall-clock boundaries.
func tickForever(ctx context.Context, interval time.Duration, fn func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(nextInterval(time.Now(), interval)):
			fn()
		}
	}
}
