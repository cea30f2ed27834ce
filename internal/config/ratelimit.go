package config

import "time"

// RateLimitConfig controls the token-bucket limiter applied to the
// unauthenticated password-reset submission endpoint, which is the only
// surface an anonymous caller can write to.
type RateLimitConfig struct {
	Enabled        bool          // master switch
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // refill cadence
	TTL            time.Duration // how long idle buckets live in Redis
	Prefix         string        // Redis key namespace
}

// LoadRateLimitConfig reads the RATE_LIMIT_* environment variables and
// applies sane floors so a misconfigured limiter never locks everyone out.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        getenv("RATE_LIMIT_ENABLED", "true") == "true",
		Capacity:       atoiDefault(getenv("RATE_LIMIT_CAPACITY", "5"), 5),
		RefillTokens:   atoiDefault(getenv("RATE_LIMIT_REFILL_TOKENS", "1"), 1),
		RefillInterval: parseDur(getenv("RATE_LIMIT_REFILL_INTERVAL", "30s")),
		TTL:            parseDur(getenv("RATE_LIMIT_TTL", "10m")),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
