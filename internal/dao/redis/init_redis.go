package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chatkuy_server/internal/config"

	"github.com/redis/go-redis/v9"
)

// Init 按配置连接 Redis，并确认服务可用
func Init(conf *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         conf.Host + ":" + strconv.Itoa(conf.Port),
		Password:     conf.Password,
		DB:           conf.Db,
		PoolSize:     50,
		MinIdleConns: conf.WorkerNum,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}

	return NewRedisCache(client, conf.WorkerNum, conf.TaskQueue), nil
}
