package config

// Redis backs the public read-view cache and the registration rate limiter.
// Both are optional: when the server cannot be reached at startup
// NewRedisClient returns nil and callers degrade to uncached, unlimited
// operation.  Reservations never depend on Redis.

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

// Address resolves the host:port to dial.  Host and Port take precedence
// over Addr when both are set; the default is localhost:6379.
func (r RedisConfig) Address() string {
    if r.Host != "" && r.Port != "" {
        return r.Host + ":" + r.Port
    }
    if r.Addr != "" {
        return r.Addr
    }
    return "localhost:6379"
}

// NewRedisClient instantiates a Redis client from cfg and pings it with a
// short timeout.  The returned client is nil if a connection cannot be
// established.
func NewRedisClient(cfg RedisConfig, logger *zap.Logger) *redis.Client {
    if logger == nil {
        logger = zap.NewNop()
    }
    var tlsConf *tls.Config
    if cfg.TLS {
        tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Address(),
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: tlsConf,
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        logger.Warn("redis unavailable, cache and rate limit disabled", zap.String("addr", cfg.Address()), zap.Error(err))
        _ = client.Close()
        return nil
    }
    logger.Info("redis client connected", zap.String("addr", cfg.Address()))
    return client
}
