package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/reviewinn/backend/internal/logger"
	"go.uber.org/zap"
)

// Store is the typed, best-effort cache adapter. Every operation swallows
// transport failures: they are logged and a neutral result is returned, so
// callers treat failures and misses identically.
type Store struct {
	client     *RedisClient
	defaultTTL time.Duration
}

// NewStore wraps a RedisClient with the best-effort contract and a default TTL.
func NewStore(client *RedisClient, defaultTTL time.Duration) *Store {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	return &Store{client: client, defaultTTL: defaultTTL}
}

// DefaultTTL returns the TTL applied when the caller passes zero.
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get returns the decoded value for key, or (nil, false) on miss or failure.
func (s *Store) Get(ctx context.Context, key string) (any, bool) {
	if s == nil || s.client == nil {
		return nil, false
	}
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if !IsNil(err) {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return decodeValue(raw), true
}

// GetString returns a string value, or ("", false) on miss, failure, or
// when the stored value is not textual.
func (s *Store) GetString(ctx context.Context, key string) (string, bool) {
	v, ok := s.Get(ctx, key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// GetJSON decodes the cached value into dest, returning false on miss,
// failure, or shape mismatch.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) bool {
	if s == nil || s.client == nil {
		return false
	}
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if !IsNil(err) {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		logger.Warn("cache value shape mismatch", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value under key for ttl (the default TTL when ttl is zero).
// Returns false on encode or transport failure.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if s == nil || s.client == nil {
		return false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	encoded, err := encodeValue(value)
	if err != nil {
		logger.Warn("cache value not encodable", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.client.SetEx(ctx, key, encoded, ttl); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes key. Failures are logged and reported as false.
func (s *Store) Delete(ctx context.Context, key string) bool {
	if s == nil || s.client == nil {
		return false
	}
	if err := s.client.Del(ctx, key); err != nil {
		logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Exists reports whether key is present; failures read as absent.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if s == nil || s.client == nil {
		return false
	}
	n, err := s.client.Exists(ctx, key)
	if err != nil {
		logger.Warn("cache exists failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return n > 0
}

// ClearNamespace deletes every key under prefix. Best-effort: a partial
// failure leaves the remainder for TTL expiry.
func (s *Store) ClearNamespace(ctx context.Context, prefix string) int {
	if s == nil || s.client == nil {
		return 0
	}
	keys, err := s.client.Keys(ctx, prefix+"*")
	if err != nil {
		logger.Warn("cache namespace scan failed", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	if err := s.client.Del(ctx, keys...); err != nil {
		logger.Warn("cache namespace clear failed", zap.String("prefix", prefix), zap.Error(err))
		return 0
	}
	return len(keys)
}

// Health reports "ok" or "unavailable" for the health endpoint.
func (s *Store) Health(ctx context.Context) string {
	if s == nil || s.client == nil {
		return "unavailable"
	}
	if err := s.client.Ping(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

// encodeValue uses a two-tier encoding: scalars go in as plain text,
// everything else as JSON. Readers attempt JSON first and fall back to the
// raw string, so either tier round-trips.
func encodeValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("marshal cache value: %w", err)
		}
		return string(b), nil
	}
}

// decodeValue reverses encodeValue. JSON wins when the payload parses;
// otherwise the raw text is the value.
func decodeValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
