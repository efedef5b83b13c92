package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Redis stores each session as JSON under session:<id> with a sliding TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings before returning.
func NewRedis(addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Create(ctx context.Context, d Data) (string, error) {
	id := newID()
	raw, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	if err := r.client.Set(ctx, keyPrefix+id, raw, r.ttl).Err(); err != nil {
		return "", err
	}
	return id, nil
}

func (r *Redis) Get(ctx context.Context, id string) (*Data, error) {
	val, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var d Data
	if err := json.Unmarshal(val, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save overwrites an existing session and keeps its remaining TTL.
func (r *Redis) Save(ctx context.Context, id string, d Data) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	ok, err := r.client.SetArgs(ctx, keyPrefix+id, raw, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if ok != "OK" {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, keyPrefix+id).Err()
}

func (r *Redis) Extend(ctx context.Context, id string) error {
	ok, err := r.client.Expire(ctx, keyPrefix+id, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
