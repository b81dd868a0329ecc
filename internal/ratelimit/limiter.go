// Package ratelimit implements the token-bucket limiter backing the request
// pipeline. Buckets live in the shared cache so limits hold across the
// fleet; updates are read-modify-write and a small over-allowance under
// concurrent writers is accepted.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Bucket is the persisted token-bucket state.
type Bucket struct {
	Tokens     float64   `json:"tokens"`
	LastRefill time.Time `json:"last_refill"`
}

// Store persists buckets. Implementations are best-effort: a load failure
// reads as absent and the bucket re-initializes full.
type Store interface {
	GetBucket(ctx context.Context, key string) (*Bucket, bool)
	PutBucket(ctx context.Context, key string, b *Bucket, ttl time.Duration)
}

// Result reports one limiter decision plus the header values to expose.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int       // seconds, only set when rejected
	Reset      time.Time // when the bucket is full again
}

// Limiter resolves per-endpoint policies and applies token-bucket math.
type Limiter struct {
	store    Store
	policies *PolicySet
	ttl      time.Duration
	now      func() time.Time
}

// New builds a limiter over a bucket store. Idle buckets expire after ttl.
func New(store Store, policies *PolicySet, ttl time.Duration) *Limiter {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Limiter{
		store:    store,
		policies: policies,
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock overrides the time source (tests).
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Key builds the bucket identity for a scope ("user" or "ip"), principal,
// and request path.
func Key(scope, principal, path string) string {
	return fmt.Sprintf("rate_limit:%s:%s:%s", scope, principal, path)
}

// Allow spends one token from the (scope, principal, path) bucket.
func (l *Limiter) Allow(ctx context.Context, scope, principal, path string) Result {
	policy := l.policies.Resolve(path)
	if scope == ScopeIP {
		policy = policy.ForIP()
	}
	return l.allow(ctx, Key(scope, principal, path), policy)
}

func (l *Limiter) allow(ctx context.Context, key string, policy Policy) Result {
	now := l.now()

	bucket, ok := l.store.GetBucket(ctx, key)
	if !ok || bucket == nil {
		bucket = &Bucket{Tokens: float64(policy.Burst), LastRefill: now}
	}

	// Refill from elapsed time, capped at burst. Tokens never leave
	// [0, burst].
	elapsed := now.Sub(bucket.LastRefill).Seconds()
	if elapsed > 0 {
		bucket.Tokens = math.Min(float64(policy.Burst), bucket.Tokens+elapsed*float64(policy.RPM)/60.0)
		bucket.LastRefill = now
	}

	if bucket.Tokens < 1 {
		retryAfter := int(math.Ceil((1 - bucket.Tokens) * 60.0 / float64(policy.RPM)))
		if retryAfter < 1 {
			retryAfter = 1
		}
		l.store.PutBucket(ctx, key, bucket, l.ttl)
		return Result{
			Allowed:    false,
			Limit:      policy.RPM,
			Remaining:  0,
			RetryAfter: retryAfter,
			Reset:      l.resetAt(now, bucket, policy),
		}
	}

	bucket.Tokens--
	l.store.PutBucket(ctx, key, bucket, l.ttl)

	return Result{
		Allowed:   true,
		Limit:     policy.RPM,
		Remaining: int(bucket.Tokens),
		Reset:     l.resetAt(now, bucket, policy),
	}
}

// resetAt estimates when the bucket refills completely.
func (l *Limiter) resetAt(now time.Time, b *Bucket, policy Policy) time.Time {
	missing := float64(policy.Burst) - b.Tokens
	if missing <= 0 {
		return now
	}
	seconds := missing * 60.0 / float64(policy.RPM)
	return now.Add(time.Duration(seconds * float64(time.Second)))
}
