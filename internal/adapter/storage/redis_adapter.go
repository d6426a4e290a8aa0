package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	idemKeyPrefix     = "idem:"
	idempotencyKeyTTL = 24 * time.Hour
)

// A missing key means "unmirrored", which must pass the check; only a
// mirrored value that is too small rejects.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local qty = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current >= qty then
	redis.call('DECRBY', key, qty)
	return 1
end

return 0
`)

// RedisAdapter is the advisory stock mirror plus the idempotency guard.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	result, err := decrementStockScript.Run(ctx, r.client, []string{stockKeyPrefix + productID}, qty).Int()
	if err != nil {
		return false, err
	}
	return result != 0, nil
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID string, stock int) error {
	return r.client.Set(ctx, stockKeyPrefix+productID, stock, 0).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	return r.client.SetNX(ctx, idemKeyPrefix+key, 1, idempotencyKeyTTL).Result()
}
