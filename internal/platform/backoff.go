package platform

import (
	"context"
	"math/rand"
	"time"
)

// BackoffPolicy parameterizes jittered exponential backoff shared by the
// platform adapter and the LLM router (§4.2, §4.4).
type BackoffPolicy struct {
	Base       time.Duration
	Factor     float64
	MaxRetries int
	Cap        time.Duration
}

// DefaultBackoffPolicy matches the router's documented defaults: base
// 500ms, factor 2, at most 3 retries, capped at 30s.
var DefaultBackoffPolicy = BackoffPolicy{
	Base:       500 * time.Millisecond,
	Factor:     2.0,
	MaxRetries: 3,
	Cap:        30 * time.Second,
}

// Delay returns the jittered delay before retry attempt n (0-indexed).
func (p BackoffPolicy) Delay(n int) time.Duration {
	d := float64(p.Base)
	for i := 0; i < n; i++ {
		d *= p.Factor
	}
	if cap := float64(p.Cap); d > cap {
		d = cap
	}
	jitter := d * (0.5 + rand.Float64()*0.5)
	return time.Duration(jitter)
}

// Sleep waits for the retry-n delay or until ctx is cancelled, whichever
// comes first.
func (p BackoffPolicy) Sleep(ctx context.Context, n int) error {
	t := time.NewTimer(p.Delay(n))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
