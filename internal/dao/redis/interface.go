// Package redis 定义缓存服务接口及其 Redis 实现
// Service 层依赖接口而非具体实现
package redis

import (
	"context"
	"time"
)

// CacheService 缓存服务接口
type CacheService interface {
	// Set 设置键值对并指定过期时间
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// Get 获取键对应的值（键不存在返回空字符串和 nil）
	Get(ctx context.Context, key string) (string, error)
	// Incr 原子递增计数器并返回递增后的值，键不存在时从 0 开始
	Incr(ctx context.Context, key string) (int64, error)
}

// AsyncCacheService 带异步任务能力的缓存服务，用于不阻塞主流程的缓存写入
type AsyncCacheService interface {
	CacheService
	// SubmitTask 提交异步缓存任务，队列满时同步执行
	SubmitTask(action func())
}
