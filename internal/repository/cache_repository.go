package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// versionTTL keeps version counters well past any in-flight read.
const versionTTL = 24 * time.Hour

type CacheRepository interface {
	// GetJSON decodes the value stored under key into dest and reports
	// whether the key existed.
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	// Version returns the counter stored under versionKey, 0 when unset.
	Version(ctx context.Context, versionKey string) (int64, error)
	// SetJSONIfVersion stores value under key only while versionKey still
	// holds version. It reports whether the value was written.
	SetJSONIfVersion(ctx context.Context, key, versionKey string, version int64, value interface{}, expiration time.Duration) (bool, error)
	// Invalidate bumps versionKey and drops key in one transaction.
	Invalidate(ctx context.Context, key, versionKey string) error
	Ping(ctx context.Context) error
}

type cacheRepository struct {
	client *redis.Client
}

func NewCacheRepository(client *redis.Client) CacheRepository {
	return &cacheRepository{client: client}
}

func (r *cacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (r *cacheRepository) Version(ctx context.Context, versionKey string) (int64, error) {
	return readVersion(ctx, r.client, versionKey)
}

func (r *cacheRepository) SetJSONIfVersion(
	ctx context.Context,
	key, versionKey string,
	version int64,
	value interface{},
	expiration time.Duration,
) (bool, error) {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	written := false
	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, versionKey)
		if err != nil {
			return err
		}
		if current != version {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, jsonData, expiration)
			return nil
		})
		if err != nil {
			return err
		}
		written = true
		return nil
	}, versionKey)

	// versionKey changed between WATCH and EXEC
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	return written, err
}

func (r *cacheRepository) Invalidate(ctx context.Context, key, versionKey string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionTTL)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

func (r *cacheRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func readVersion(ctx context.Context, c redis.Cmdable, versionKey string) (int64, error) {
	version, err := c.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return version, err
}
