// Package cache invalidates cached readiness scores held in Redis.
//
// The readiness subsystem stores one key per user and day, formatted as
// "<prefix>:<user>:<YYYY-MM-DD>". Ingestion never writes these keys; it only
// deletes them when new sleep data makes a cached score stale.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is used when no key prefix is configured.
const DefaultPrefix = "readiness"

const scanBatch = 200

// Readiness deletes readiness score keys from Redis.
type Readiness struct {
	client *redis.Client
	prefix string
}

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewReadiness connects to Redis and verifies the connection.
func NewReadiness(ctx context.Context, opts Options) (*Readiness, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", opts.Addr, err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Readiness{client: client, prefix: prefix}, nil
}

// Close closes the Redis client.
func (r *Readiness) Close() error {
	return r.client.Close()
}

// Key returns the cache key for a user's score on date.
func Key(prefix string, userID int, date time.Time) string {
	return fmt.Sprintf("%s:%d:%s", prefix, userID, date.Format(time.DateOnly))
}

// parseKey extracts the date from a key of the given prefix and user.
func parseKey(prefix string, userID int, key string) (time.Time, bool) {
	head := prefix + ":" + strconv.Itoa(userID) + ":"
	rest, ok := strings.CutPrefix(key, head)
	if !ok {
		return time.Time{}, false
	}
	d, err := time.Parse(time.DateOnly, rest)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// DeleteFrom removes the user's cached scores dated from and later. It
// returns the number of keys deleted.
func (r *Readiness) DeleteFrom(ctx context.Context, userID int, from time.Time) (int, error) {
	cutoff := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	match := fmt.Sprintf("%s:%d:*", r.prefix, userID)

	var stale []string
	iter := r.client.Scan(ctx, 0, match, scanBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if d, ok := parseKey(r.prefix, userID, key); ok && !d.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("scanning readiness keys: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	n, err := r.client.Del(ctx, stale...).Result()
	if err != nil {
		return 0, fmt.Errorf("deleting readiness keys: %w", err)
	}
	return int(n), nil
}
