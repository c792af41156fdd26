// Package redcache caches translation responses in Redis so repeated
// selections of the same passage do not hit the upstream API.
package redcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/leafmark/leafmark-backend/internal/platform/logger"
)

type TranslationCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
	Close() error
}

type cache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// New reads REDIS_ADDR and pings the server. Callers treat a nil cache as
// "caching disabled".
func New(log *logger.Logger, ttl time.Duration) (TranslationCache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &cache{
		log: log.With("component", "TranslationCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

// Key derives a stable cache key from the translation inputs.
func Key(text, source, target string) string {
	h := sha256.New()
	_, _ = h.Write([]byte(source))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(target))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	return "translate:" + hex.EncodeToString(h.Sum(nil))
}

// Get treats every Redis error as a miss; the cache must never turn into a
// request failure.
func (c *cache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("translation cache get failed", "error", err)
		}
		return "", false
	}
	return val, true
}

func (c *cache) Set(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.log.Warn("translation cache set failed", "error", err)
	}
}

func (c *cache) Close() error {
	return c.rdb.Close()
}
