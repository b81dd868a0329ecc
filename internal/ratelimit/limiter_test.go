package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(policies *PolicySet) (*Limiter, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter := New(NewMemoryStore(), policies, 5*time.Minute)
	limiter.SetClock(func() time.Time { return now })
	return limiter, &now
}

func TestAllowSpendsTokens(t *testing.T) {
	policies := NewPolicySet(Policy{RPM: 60, Burst: 3})
	limiter, _ := newTestLimiter(policies)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result := limiter.Allow(ctx, ScopeUser, "42", "/api/v1/reviews")
		require.True(t, result.Allowed, "request %d should pass", i)
		assert.Equal(t, 2-i, result.Remaining)
	}

	result := limiter.Allow(ctx, ScopeUser, "42", "/api/v1/reviews")
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.GreaterOrEqual(t, result.RetryAfter, 1)
}

func TestRefillRestoresTokens(t *testing.T) {
	policies := NewPolicySet(Policy{RPM: 60, Burst: 2})
	limiter, now := newTestLimiter(policies)
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, ScopeUser, "7", "/x").Allowed)
	require.True(t, limiter.Allow(ctx, ScopeUser, "7", "/x").Allowed)
	require.False(t, limiter.Allow(ctx, ScopeUser, "7", "/x").Allowed)

	// 60 rpm refills one token per second.
	*now = now.Add(time.Second)
	assert.True(t, limiter.Allow(ctx, ScopeUser, "7", "/x").Allowed)

	// Refill caps at burst even after a long idle period.
	*now = now.Add(time.Hour)
	result := limiter.Allow(ctx, ScopeUser, "7", "/x")
	require.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
}

func TestRetryAfterMath(t *testing.T) {
	policies := NewPolicySet(Policy{RPM: 10, Burst: 1})
	limiter, _ := newTestLimiter(policies)
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, ScopeUser, "1", "/slow").Allowed)
	result := limiter.Allow(ctx, ScopeUser, "1", "/slow")
	require.False(t, result.Allowed)
	// One missing token at 10 rpm needs 6 seconds.
	assert.Equal(t, 6, result.RetryAfter)
}

func TestBucketsAreIndependentPerPrincipalAndPath(t *testing.T) {
	policies := NewPolicySet(Policy{RPM: 60, Burst: 1})
	limiter, _ := newTestLimiter(policies)
	ctx := context.Background()

	require.True(t, limiter.Allow(ctx, ScopeUser, "1", "/a").Allowed)
	require.False(t, limiter.Allow(ctx, ScopeUser, "1", "/a").Allowed)

	assert.True(t, limiter.Allow(ctx, ScopeUser, "2", "/a").Allowed, "other principal unaffected")
	assert.True(t, limiter.Allow(ctx, ScopeUser, "1", "/b").Allowed, "other path unaffected")
}

func TestIPScopeNeverLoosensPolicy(t *testing.T) {
	policies := NewPolicySet(Policy{RPM: 30, Burst: 2})
	limiter, _ := newTestLimiter(policies)
	ctx := context.Background()

	// The IP bucket enforces the configured policy unchanged.
	for i := 0; i < 2; i++ {
		require.True(t, limiter.Allow(ctx, ScopeIP, "10.0.0.1", "/x").Allowed)
	}
	result := limiter.Allow(ctx, ScopeIP, "10.0.0.1", "/x")
	assert.False(t, result.Allowed)
	assert.Equal(t, 30, result.Limit)
}

func TestIPScopeCeilings(t *testing.T) {
	generous := Policy{RPM: 600, Burst: 1000}.ForIP()
	assert.Equal(t, 120, generous.RPM)
	assert.Equal(t, 200, generous.Burst)

	strict := Policy{RPM: 10, Burst: 20}.ForIP()
	assert.Equal(t, 10, strict.RPM)
	assert.Equal(t, 20, strict.Burst)
}

func TestLoginPolicyHoldsForIPBuckets(t *testing.T) {
	limiter, _ := newTestLimiter(DefaultPolicies(DefaultPolicy))
	ctx := context.Background()

	// Login is {rpm:10, burst:20}: 20 rapid requests from one IP pass,
	// the 21st is rejected and a full token costs 6 seconds.
	for i := 0; i < 20; i++ {
		require.True(t, limiter.Allow(ctx, ScopeIP, "203.0.113.1", "/api/v1/auth/login").Allowed,
			"request %d should pass", i)
	}
	result := limiter.Allow(ctx, ScopeIP, "203.0.113.1", "/api/v1/auth/login")
	require.False(t, result.Allowed)
	assert.Equal(t, 10, result.Limit)
	assert.GreaterOrEqual(t, result.RetryAfter, 6)
}

func TestPolicyResolutionPrecedence(t *testing.T) {
	policies := NewPolicySet(Policy{RPM: 60, Burst: 100})
	policies.AddPrefix("/api/v1/reviews", Policy{RPM: 120, Burst: 150})
	policies.AddExact("/api/v1/reviews/hot", Policy{RPM: 10, Burst: 10})

	assert.Equal(t, 10, policies.Resolve("/api/v1/reviews/hot").RPM, "exact wins over prefix")
	assert.Equal(t, 120, policies.Resolve("/api/v1/reviews/123").RPM, "prefix match")
	assert.Equal(t, 60, policies.Resolve("/api/v1/users").RPM, "default fallback")
}

func TestLongestPrefixWins(t *testing.T) {
	policies := NewPolicySet(DefaultPolicy)
	policies.AddPrefix("/api", Policy{RPM: 100, Burst: 100})
	policies.AddPrefix("/api/v1/entities", Policy{RPM: 200, Burst: 200})

	assert.Equal(t, 200, policies.Resolve("/api/v1/entities/5").RPM)
	assert.Equal(t, 100, policies.Resolve("/api/v1/other").RPM)
}

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "rate_limit:user:42:/api/v1/reviews", Key(ScopeUser, "42", "/api/v1/reviews"))
}
