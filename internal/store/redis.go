package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"dealready/internal/assessment"
)

const scanCount = 100

// Redis stores each run as a JSON string under prefix+key.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects to addr and checks the connection.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, storageError("open", "", err, "ping redis")
	}
	return NewRedis(client, prefix), nil
}

func (r *Redis) key(key string) string {
	return r.prefix + key
}

func (r *Redis) Load(ctx context.Context, key string) (*assessment.Run, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("load", key, err, "redis get")
	}
	run, err := decodeRun(data)
	if err != nil {
		return nil, storageError("load", key, err, "redis")
	}
	return run, nil
}

func (r *Redis) Save(ctx context.Context, key string, run *assessment.Run) error {
	data, err := encodeRun(run)
	if err != nil {
		return storageError("save", key, err, "redis")
	}
	if err := r.client.Set(ctx, r.key(key), data, 0).Err(); err != nil {
		return storageError("save", key, err, "redis set")
	}
	return nil
}

func (r *Redis) LoadAll(ctx context.Context) ([]Record, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", scanCount).Result()
		if err != nil {
			return nil, storageError("load_all", "", err, "redis scan")
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)

	records := make([]Record, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, full := range keys {
		if _, dup := seen[full]; dup {
			continue
		}
		seen[full] = struct{}{}
		key := strings.TrimPrefix(full, r.prefix)
		run, err := r.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		if run == nil {
			continue
		}
		records = append(records, Record{Key: key, Run: run})
	}
	return records, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
