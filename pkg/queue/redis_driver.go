package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/farm2home/farm2home/pkg/logger"
)

const (
	redisQueueKey   = "farm2home:queue:jobs"
	redisDelayedKey = "farm2home:queue:delayed"
)

// ConnectRedis opens a client and verifies it with PING.
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("queue/redis: ping %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisDriver is a durable queue driver.
// Immediate jobs use LPUSH/BRPOP on a list; delayed jobs sit in a sorted set
// scored by Unix time until promoted.
type RedisDriver struct {
	rdb *redis.Client
}

// NewRedisDriver creates the driver and starts promoting delayed jobs until
// ctx ends.
func NewRedisDriver(ctx context.Context, rdb *redis.Client) *RedisDriver {
	d := &RedisDriver{rdb: rdb}
	go d.promoteDelayedJobs(ctx)
	return d
}

func (d *RedisDriver) Push(ctx context.Context, payload []byte) error {
	if err := d.rdb.LPush(ctx, redisQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

// Pop blocks up to 5s (BRPOP) and returns nil, nil on timeout.
func (d *RedisDriver) Pop(ctx context.Context) ([]byte, error) {
	result, err := d.rdb.BRPop(ctx, 5*time.Second, redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("queue/redis: pop: %w", err)
	}
	if len(result) < 2 {
		return nil, nil
	}
	return []byte(result[1]), nil
}

func (d *RedisDriver) PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error {
	runAt := float64(time.Now().Add(delay).Unix())
	if err := d.rdb.ZAdd(ctx, redisDelayedKey, redis.Z{
		Score:  runAt,
		Member: string(payload),
	}).Err(); err != nil {
		return fmt.Errorf("queue/redis: push delayed: %w", err)
	}
	return nil
}

// promoteDelayedJobs moves due jobs into the main list once a second.
func (d *RedisDriver) promoteDelayedJobs(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := strconv.FormatInt(time.Now().Unix(), 10)
		due, err := d.rdb.ZRangeByScore(ctx, redisDelayedKey, &redis.ZRangeBy{
			Min: "-inf",
			Max: now,
		}).Result()
		if err != nil || len(due) == 0 {
			continue
		}

		pipe := d.rdb.TxPipeline()
		for _, job := range due {
			pipe.ZRem(ctx, redisDelayedKey, job)
			pipe.LPush(ctx, redisQueueKey, job)
		}
		if _, err := pipe.Exec(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("queue/redis: promote delayed jobs", "error", err)
		}
	}
}
