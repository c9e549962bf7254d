package kvstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production Store backend. Every key, with or without
// metadata, is stored as a single Redis hash with a "data" field plus one
// "meta:*" field per metadata entry, so that HSET/HGETALL/EXPIRE operate on
// one key and the whole record is replaced or read atomically - never a
// partial view.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore builds a RedisStore over an already-connected client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

const metaFieldPrefix = "meta:"
const dataField = "data"

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, map[string]string, bool, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, nil, false, fmt.Errorf("kvstore get %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, nil, false, nil
	}

	data, ok := fields[dataField]
	if !ok {
		return nil, nil, false, nil
	}

	metadata := map[string]string{}
	for field, value := range fields {
		if name, isMeta := stripMetaPrefix(field); isMeta {
			metadata[name] = value
		}
	}

	return []byte(data), metadata, true, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, opts PutOptions) error {
	fields := map[string]interface{}{dataField: string(value)}
	for name, v := range opts.Metadata {
		fields[metaFieldPrefix+name] = v
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if opts.TTL > 0 {
		pipe.Expire(ctx, key, opts.TTL)
	} else {
		pipe.Persist(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("kvstore put %s: %w", key, err)
	}
	return nil
}

func stripMetaPrefix(field string) (string, bool) {
	if len(field) <= len(metaFieldPrefix) || field[:len(metaFieldPrefix)] != metaFieldPrefix {
		return "", false
	}
	return field[len(metaFieldPrefix):], true
}

// Connect dials Redis and confirms the connection is live, mirroring the
// teacher's redis_client.Connect probe-with-Ping pattern.
func Connect(ctx context.Context, address, password string, database int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", address, err)
	}

	return client, nil
}
