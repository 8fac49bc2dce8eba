package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type rateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// countAttempt 递增窗口计数器并在首次写入时设置过期。
// 限流是尽力而为：Redis 不可用时返回 0，请求照常放行。
func countAttempt(ctx context.Context, client rateCounter, key string, window time.Duration) int64 {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0
	}
	if count == 1 {
		_ = client.Expire(ctx, key, window).Err()
	}
	return count
}
