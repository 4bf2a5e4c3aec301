package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/go-redis/redis/v8"
)

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
}

func NewRedisRepository(cfg *config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisRepository) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// Claim reserves key for value if no one holds it yet. When the key is
// already claimed, the previously stored value is returned with ok=false.
// Used for checkout idempotency keys.
func (r *RedisRepository) Claim(ctx context.Context, key, value string, expiration time.Duration) (string, bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim key: %w", err)
	}
	if ok {
		return value, true, nil
	}
	existing, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to read claimed key: %w", err)
	}
	return existing, false, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// Cached order status for the confirmation landing page.
type OrderStatusCache struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (r *RedisRepository) CacheOrderStatus(ctx context.Context, order *OrderStatusCache) error {
	key := fmt.Sprintf("order:%s", order.ID)
	return r.SetJSON(ctx, key, order, 30*time.Minute)
}

func (r *RedisRepository) GetOrderStatusCache(ctx context.Context, orderID string) (*OrderStatusCache, error) {
	key := fmt.Sprintf("order:%s", orderID)
	var order OrderStatusCache
	if err := r.GetJSON(ctx, key, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *RedisRepository) InvalidateOrderStatus(ctx context.Context, orderID string) error {
	return r.Del(ctx, fmt.Sprintf("order:%s", orderID))
}
