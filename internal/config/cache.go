package config

import "time"

// CacheConfig controls the Redis response cache on catalogue search and
// book stats.  Any successful write through the API purges every key under
// Prefix, so TTL only bounds staleness from writes made elsewhere.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // methods served from cache; every other method invalidates
    TTL          time.Duration
    KeyStrategy  string // route | method_route | method_route_query | route_query
    Prefix       string
    MaxBodyBytes int // larger responses are served but not cached
}

func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "circulation:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = 30 * time.Second
    }
    return cfg
}
