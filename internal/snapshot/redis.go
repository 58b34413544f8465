package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"PivotScreener/internal/model"
)

// RedisPersister keeps the snapshot JSON under a single key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister connects to addr and verifies the connection.
func NewRedisPersister(addr, key string) (*RedisPersister, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisPersister{client: rdb, key: key}, nil
}

func (r *RedisPersister) Name() string { return "redis" }

func (r *RedisPersister) Load(ctx context.Context) (*model.Snapshot, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.EmptySnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	return &snap, nil
}

func (r *RedisPersister) Save(ctx context.Context, snap *model.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}

func (r *RedisPersister) Close() error {
	return r.client.Close()
}
