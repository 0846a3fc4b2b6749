package feed

import "time"

// Config holds configuration for fetching cabin feeds.
type Config struct {
	// TimeoutSeconds bounds each feed fetch.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Workers bounds concurrent fetches.
	Workers int `mapstructure:"workers" default:"4"`
	// RequestsPerSecond paces requests to the platform.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"2"`
	// UserAgent is sent with every request.
	UserAgent string `mapstructure:"user_agent" default:"cabin-manager/1.0"`
	// CacheBackend selects where conditional GET metadata lives (none, disk, redis).
	CacheBackend string `mapstructure:"cache_backend" default:"disk"`
	// CacheDir is the disk cache root.
	CacheDir string `mapstructure:"cache_dir" default:"./var/feed-cache"`
	// CacheTTLSeconds is how long redis keeps an entry.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"86400"`
	// RedisAddr is the redis host:port.
	RedisAddr string `mapstructure:"redis_addr" default:"localhost:6379"`
	// RedisPassword is the redis password.
	RedisPassword string `mapstructure:"redis_password" default:""`
	// RedisDB is the redis database index.
	RedisDB int `mapstructure:"redis_db" default:"0"`
}

// Timeout returns the per-fetch bound, defaulting to 30 seconds.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
