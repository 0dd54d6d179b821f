package security

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// RateLimiter paces outgoing requests with a fixed-window budget per key.
type RateLimiter struct {
	mu         sync.Mutex
	rate       int           // requests per interval
	interval   time.Duration // window length
	buckets    map[string]*bucket
	maxBuckets int // maximum number of buckets to track
	nowFunc    func() time.Time
}

type bucket struct {
	tokens    int
	lastReset time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per interval and key.
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		rate:       rate,
		interval:   interval,
		buckets:    make(map[string]*bucket),
		maxBuckets: 1000,
		nowFunc:    time.Now,
	}
}

// reserve consumes a request and returns zero, or returns how long to wait
// until key's window resets.
func (rl *RateLimiter) reserve(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFunc()

	b, exists := rl.buckets[key]
	if !exists {
		if len(rl.buckets) >= rl.maxBuckets {
			rl.cleanup(now)
		}
		rl.buckets[key] = &bucket{tokens: rl.rate - 1, lastReset: now}
		return 0
	}

	if elapsed := now.Sub(b.lastReset); elapsed >= rl.interval {
		b.tokens = rl.rate - 1
		b.lastReset = now
		return 0
	}

	if b.tokens > 0 {
		b.tokens--
		return 0
	}

	return b.lastReset.Add(rl.interval).Sub(now)
}

// Wait blocks until key has budget left or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	for {
		delay := rl.reserve(key)
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// cleanup removes buckets that haven't been used recently
func (rl *RateLimiter) cleanup(now time.Time) {
	cutoff := now.Add(-2 * rl.interval)
	for key, b := range rl.buckets {
		if b.lastReset.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Transport wraps next so every request waits for its host's budget.
func (rl *RateLimiter) Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if err := rl.Wait(req.Context(), req.URL.Host); err != nil {
			return nil, err
		}
		return next.RoundTrip(req)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
