// Package ratelimit throttles callers per identity and action with token
// buckets. Policy (how many, how fast) comes from configuration.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a caller may perform an action now
type Limiter interface {
	Allow(identity, action string) bool
}

// idleTTL is how long an unused bucket is kept before it is swept
const idleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucket keeps one rate.Limiter per (identity, action)
type TokenBucket struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewTokenBucket allows perMinute requests per caller per action with the
// given burst. perMinute <= 0 disables limiting.
func NewTokenBucket(perMinute, burst int) *TokenBucket {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
		if burst <= 0 {
			burst = 1
		}
	}
	return &TokenBucket{
		limit:   limit,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for identity and action
func (t *TokenBucket) Allow(identity, action string) bool {
	if t.limit == rate.Inf {
		return true
	}

	now := t.now()
	key := action + "\x00" + identity

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[key] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	if now.Sub(t.lastSweep) > idleTTL {
		t.sweep(now)
	}
	return allowed
}

func (t *TokenBucket) sweep(now time.Time) {
	for key, b := range t.buckets {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(t.buckets, key)
		}
	}
	t.lastSweep = now
}

// Size returns the number of live buckets
func (t *TokenBucket) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buckets)
}

// Unlimited allows everything
type Unlimited struct{}

func (Unlimited) Allow(string, string) bool { return true }
