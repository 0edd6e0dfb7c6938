package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"splashpark/internal/config"
)

// RedisSlotCache кеширует списки свободных слотов по зоне и дате
type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{
		client: client,
		ttl:    ttl,
	}
}

func slotKey(zoneID int64, date string) string {
	return fmt.Sprintf("slots:%d:%s", zoneID, date)
}

func (r *RedisSlotCache) GetSlots(ctx context.Context, zoneID int64, date string) ([]string, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, slotKey(zoneID, date)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get slots from redis: %w", err)
	}

	var slots []string
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal slots: %w", err)
	}

	return slots, true, nil
}

func (r *RedisSlotCache) SetSlots(ctx context.Context, zoneID int64, date string, slots []string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	if err := r.client.Set(ctx, slotKey(zoneID, date), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set slots in redis: %w", err)
	}

	return nil
}

func (r *RedisSlotCache) Invalidate(ctx context.Context, zoneID int64, date string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, slotKey(zoneID, date)).Err(); err != nil {
		return fmt.Errorf("failed to delete slots from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
