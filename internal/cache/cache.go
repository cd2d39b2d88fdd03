// Package cache is a thin Redis key/value cache for public read views.
// Every operation is best effort: a nil Store or an unreachable Redis
// degrades to cache misses and no-op invalidations.
package cache

import (
    "context"
    "errors"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/community-events/internal/config"
    "github.com/iliyamo/community-events/internal/model"
)

// Store reads and writes prefixed keys in Redis.
type Store struct {
    rdb    *redis.Client
    prefix string
    ttl    time.Duration
    logger *zap.Logger
}

// New returns a Store.  It returns nil when caching is disabled or rdb is
// nil; all methods accept a nil receiver.
func New(rdb *redis.Client, cfg config.CacheConfig, logger *zap.Logger) *Store {
    if rdb == nil || !cfg.Enabled {
        return nil
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 60 * time.Second
    }
    prefix := strings.TrimSuffix(cfg.Prefix, ":")
    if prefix == "" {
        prefix = "cache"
    }
    return &Store{rdb: rdb, prefix: prefix, ttl: ttl, logger: logger}
}

// TTL is the lifetime applied when Set is called with ttl <= 0.
func (s *Store) TTL() time.Duration {
    if s == nil {
        return 0
    }
    return s.ttl
}

func (s *Store) key(k string) string { return s.prefix + ":" + k }

// Get returns the cached value for key.  ok is false on a miss or when the
// store is unavailable.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
    if s == nil {
        return nil, false
    }
    bs, err := s.rdb.Get(ctx, s.key(key)).Bytes()
    if err != nil {
        if !errors.Is(err, redis.Nil) {
            s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
        }
        return nil, false
    }
    return bs, true
}

// Set stores value under key for ttl, or for the store TTL when ttl <= 0.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
    if s == nil {
        return nil
    }
    if ttl <= 0 {
        ttl = s.ttl
    }
    return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

// Remember returns the cached value for key or computes it with fn and
// caches the result.  Cache failures never fail the call.
func (s *Store) Remember(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
    if bs, ok := s.Get(ctx, key); ok {
        return bs, nil
    }
    bs, err := fn()
    if err != nil {
        return nil, err
    }
    if err := s.Set(ctx, key, bs, ttl); err != nil {
        s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
    }
    return bs, nil
}

// Forget deletes keys.  Missing keys are not an error.
func (s *Store) Forget(ctx context.Context, keys ...string) error {
    if s == nil || len(keys) == 0 {
        return nil
    }
    full := make([]string, len(keys))
    for i, k := range keys {
        full[i] = s.key(k)
    }
    return s.rdb.Del(ctx, full...).Err()
}

// UpcomingKey names the cached upcoming events listing.
func UpcomingKey() string { return "events:upcoming" }

// EventKey names the cached detail view of an event looked up by ref,
// which is either its numeric ID or its slug.  Refs that resolve to the
// same event share a key: numeric refs are reformatted ("01" is "1") and
// slugs are trimmed and lower-cased.
func EventKey(ref string) string {
    ref = strings.TrimSpace(ref)
    if id, err := strconv.ParseUint(ref, 10, 64); err == nil && id > 0 {
        return "events:detail:" + strconv.FormatUint(id, 10)
    }
    return "events:detail:" + strings.ToLower(ref)
}

// KeysFor lists every cached view that shows data of the changed event.
func KeysFor(change model.EventChange) []string {
    keys := []string{UpcomingKey(), EventKey(strconv.FormatUint(change.EventID, 10))}
    if change.Slug != "" {
        keys = append(keys, EventKey(change.Slug))
    }
    return keys
}
