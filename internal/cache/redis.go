package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tagSetTTL bounds how long tag membership sets live. Entries expire on
// their own; the set only needs to outlive the longest entry TTL.
const tagSetTTL = 24 * time.Hour

// RedisDriver implements Driver on a Redis instance. Tag membership is kept
// in Redis sets under tag:{tag} so related keys can be deleted in bulk.
type RedisDriver struct {
	client    *redis.Client
	opTimeout time.Duration
}

// NewRedisDriver creates a driver for the given Redis address.
func NewRedisDriver(addr, password string, opTimeout time.Duration) *RedisDriver {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return NewRedisDriverFromClient(client, opTimeout)
}

// NewRedisDriverFromClient wraps an existing client; used by tests with
// redismock.
func NewRedisDriverFromClient(client *redis.Client, opTimeout time.Duration) *RedisDriver {
	if opTimeout == 0 {
		opTimeout = 2 * time.Second
	}
	return &RedisDriver{client: client, opTimeout: opTimeout}
}

func (d *RedisDriver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.opTimeout)
}

// Get fetches a raw value. A redis.Nil reply is a miss, not an error.
func (d *RedisDriver) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	val, err := d.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set writes a value with TTL and registers it under each tag set.
func (d *RedisDriver) Set(ctx context.Context, key string, val []byte, ttl time.Duration, tags ...string) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	pipe := d.client.TxPipeline()
	pipe.Set(ctx, key, val, ttl)
	for _, tag := range tags {
		tagKey := "tag:" + tag
		pipe.SAdd(ctx, tagKey, key)
		pipe.Expire(ctx, tagKey, tagSetTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Del removes the given keys.
func (d *RedisDriver) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	if err := d.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// DelByTag removes every key registered under the tag, then the tag set.
func (d *RedisDriver) DelByTag(ctx context.Context, tag string) (int, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	tagKey := "tag:" + tag
	members, err := d.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis smembers %s: %w", tagKey, err)
	}

	pipe := d.client.TxPipeline()
	if len(members) > 0 {
		pipe.Del(ctx, members...)
	}
	pipe.Del(ctx, tagKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis del by tag %s: %w", tag, err)
	}
	return len(members), nil
}

// DelByPrefix scans for keys matching prefix* and deletes them in batches.
func (d *RedisDriver) DelByPrefix(ctx context.Context, prefix string) (int, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	deleted := 0
	iter := d.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := d.client.Del(ctx, batch...).Err(); err != nil {
				return deleted, fmt.Errorf("redis del by prefix %s: %w", prefix, err)
			}
			deleted += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	if len(batch) > 0 {
		if err := d.client.Del(ctx, batch...).Err(); err != nil {
			return deleted, fmt.Errorf("redis del by prefix %s: %w", prefix, err)
		}
		deleted += len(batch)
	}
	return deleted, nil
}

// Ping checks connectivity to the shared store.
func (d *RedisDriver) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (d *RedisDriver) Close() error {
	return d.client.Close()
}
