package ratelimit

import (
	"sort"
	"strings"
)

// Scopes for bucket keys.
const (
	ScopeUser = "user"
	ScopeIP   = "ip"
)

// Policy is a per-endpoint rate limit: sustained requests per minute and
// the bucket's burst capacity.
type Policy struct {
	RPM   int
	Burst int
}

// ForIP clamps a policy to the IP-scope ceilings (120 rpm, 200 burst).
// A configured per-path limit is never raised: strict endpoints such as
// login keep their own caps for IP buckets too.
func (p Policy) ForIP() Policy {
	rpm := p.RPM
	if rpm > 120 {
		rpm = 120
	}
	burst := p.Burst
	if burst > 200 {
		burst = 200
	}
	return Policy{RPM: rpm, Burst: burst}
}

// PolicySet resolves a request path to a policy: exact match wins, then the
// longest registered prefix, then the default.
type PolicySet struct {
	def      Policy
	exact    map[string]Policy
	prefixes []prefixPolicy
}

type prefixPolicy struct {
	prefix string
	policy Policy
}

// DefaultPolicy is the fallback when no override matches.
var DefaultPolicy = Policy{RPM: 60, Burst: 100}

// NewPolicySet builds a resolver around a default policy.
func NewPolicySet(def Policy) *PolicySet {
	if def.RPM <= 0 {
		def = DefaultPolicy
	}
	return &PolicySet{
		def:   def,
		exact: make(map[string]Policy),
	}
}

// DefaultPolicies returns the standard endpoint overrides: sensitive auth
// endpoints are far stricter than content reads.
func DefaultPolicies(def Policy) *PolicySet {
	ps := NewPolicySet(def)
	ps.AddExact("/api/v1/auth/login", Policy{RPM: 10, Burst: 20})
	ps.AddExact("/api/v1/auth/register", Policy{RPM: 5, Burst: 10})
	ps.AddPrefix("/api/v1/reviews", Policy{RPM: 120, Burst: 150})
	ps.AddPrefix("/api/v1/entities", Policy{RPM: 120, Burst: 150})
	return ps
}

// AddExact registers an exact-path override.
func (ps *PolicySet) AddExact(path string, p Policy) {
	ps.exact[path] = p
}

// AddPrefix registers a path-prefix override.
func (ps *PolicySet) AddPrefix(prefix string, p Policy) {
	ps.prefixes = append(ps.prefixes, prefixPolicy{prefix: prefix, policy: p})
	sort.Slice(ps.prefixes, func(i, j int) bool {
		return len(ps.prefixes[i].prefix) > len(ps.prefixes[j].prefix)
	})
}

// Resolve returns the policy for path.
func (ps *PolicySet) Resolve(path string) Policy {
	if p, ok := ps.exact[path]; ok {
		return p
	}
	for _, pp := range ps.prefixes {
		if strings.HasPrefix(path, pp.prefix) {
			return pp.policy
		}
	}
	return ps.def
}
