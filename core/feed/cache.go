package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Cache.Get when nothing is stored for a URL.
var ErrCacheMiss = errors.New("feed cache miss")

// CacheEntry holds the HTTP validators and body of the last good response.
type CacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Body         []byte    `json:"body,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Cache stores the last good response per feed URL for conditional GETs.
type Cache interface {
	Get(ctx context.Context, url string) (*CacheEntry, error)
	Set(ctx context.Context, entry *CacheEntry) error
}

// NewCache builds the cache selected by cfg.CacheBackend.
func NewCache(cfg Config) (Cache, error) {
	switch cfg.CacheBackend {
	case "", "none":
		return NopCache{}, nil
	case "disk":
		return NewDiskCache(cfg.CacheDir), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return NewRedisCache(client, time.Duration(cfg.CacheTTLSeconds)*time.Second), nil
	default:
		return nil, fmt.Errorf("unknown feed cache backend %q", cfg.CacheBackend)
	}
}

func urlKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(ctx context.Context, url string) (*CacheEntry, error) { return nil, ErrCacheMiss }
func (NopCache) Set(ctx context.Context, entry *CacheEntry) error         { return nil }

// DiskCache keeps one directory per URL with meta.json and body.ics.
type DiskCache struct {
	dir string
}

// NewDiskCache returns a cache rooted at dir.
func NewDiskCache(dir string) *DiskCache {
	if dir == "" {
		dir = "./var/feed-cache"
	}
	return &DiskCache{dir: dir}
}

func (c *DiskCache) Get(ctx context.Context, url string) (*CacheEntry, error) {
	path := filepath.Join(c.dir, urlKey(url))

	data, err := os.ReadFile(filepath.Join(path, "meta.json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache metadata: %w", err)
	}

	body, err := os.ReadFile(filepath.Join(path, "body.ics"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	entry.Body = body
	return &entry, nil
}

func (c *DiskCache) Set(ctx context.Context, entry *CacheEntry) error {
	path := filepath.Join(c.dir, urlKey(entry.URL))
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}

	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(path, "body.ics"), entry.Body, 0o600); err != nil {
		return err
	}

	meta := *entry
	meta.Body = nil
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(path, "meta.json"), data, 0o600)
}

// RedisCache stores entries as JSON under "feed:<hash>".
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache returns a cache over client. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, url string) (*CacheEntry, error) {
	v, err := c.client.Get(ctx, "feed:"+urlKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var entry CacheEntry
	if err := json.Unmarshal(v, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return &entry, nil
}

func (c *RedisCache) Set(ctx context.Context, entry *CacheEntry) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "feed:"+urlKey(entry.URL), b, c.ttl).Err()
}
