package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportKeyFmt is reports:<view>:<normalized query>
const ReportKeyFmt = "reports:%s:%s"

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every cache
// call below degrades to a no-op.
func Init(addr, password string, db int) error {
	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// ReportKey builds the cache key of a report view and search query
func ReportKey(view, query string) string {
	return fmt.Sprintf(ReportKeyFmt, view, strings.ToLower(strings.TrimSpace(query)))
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[Redis] Failed to cache %s: %v", key, err)
	}
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Redis] Failed to scan %s: %v", pattern, err)
		return
	}
	if len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateReportCaches clears every cached report projection
// Called when: any lot, entry or dispatch mutation
func InvalidateReportCaches(ctx context.Context) {
	InvalidatePattern(ctx, "reports:*")
}

// ============================================
// Pre-warm Cache Functions
// ============================================

// PreWarmCallback is a function that populates a cache key
type PreWarmCallback func(ctx context.Context) ([]byte, error)

// preWarmCallbacks stores functions to pre-warm cache on startup
var preWarmCallbacks = make(map[string]PreWarmCallback)

// RegisterPreWarm registers a callback to pre-warm a cache key
func RegisterPreWarm(key string, callback PreWarmCallback) {
	preWarmCallbacks[key] = callback
}

// PreWarmCache fills registered keys that are not cached yet. Meant to run
// in its own goroutine at startup.
func PreWarmCache(ttl time.Duration) {
	if client == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for key, callback := range preWarmCallbacks {
		// another replica may have done it
		if _, ok := GetCached(ctx, key); ok {
			continue
		}
		data, err := callback(ctx)
		if err != nil {
			log.Printf("[Redis] Pre-warm %s failed: %v", key, err)
			continue
		}
		SetCached(ctx, key, data, ttl)
	}
}

// Ping checks the Redis connection; a disabled cache reports an error
func Ping(ctx context.Context) error {
	if client == nil {
		return fmt.Errorf("redis not configured")
	}
	return client.Ping(ctx).Err()
}

