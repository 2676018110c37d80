package config

import (
    "context"
    "crypto/tls"
    "log/slog"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig is read from REDIS_ADDR or REDIS_HOST/REDIS_PORT (host and
// port win when both are set), REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
// REDIS_ENABLED=false skips Redis entirely.
type RedisConfig struct {
    Enabled  bool
    Addr     string
    Password string
    DB       int
    TLS      bool
}

func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", "")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Enabled:  envBool("REDIS_ENABLED", true),
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// NewRedisClient connects and pings with a short timeout.  It returns nil
// when Redis is disabled or unreachable; callers then run without rate
// limiting and caching.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    if !cfg.Enabled {
        return nil
    }
    opts := &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
    if cfg.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        slog.Warn("redis ping failed", "addr", cfg.Addr, "db", cfg.DB, "err", err)
        _ = client.Close()
        return nil
    }
    return client
}
