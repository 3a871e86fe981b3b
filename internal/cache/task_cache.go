package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"task-service/internal/model"
	"task-service/pkg/metrics"
)

const taskListKey = "tasks:all"

// TaskListCache keeps the full task list in Redis so repeated list requests
// skip the database. Every mutation invalidates the key, so the cache can
// never serve a deleted or stale row for longer than one in-flight request.
type TaskListCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewTaskListCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *TaskListCache {
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	return &TaskListCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// GetTasks returns the cached list and whether it was found.
// Redis errors are logged and treated as a miss.
func (c *TaskListCache) GetTasks(ctx context.Context) ([]model.Task, bool) {
	data, err := c.rdb.Get(ctx, taskListKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Task cache get failed", zap.Error(err))
		}
		metrics.IncrementCacheRequest("miss")
		return nil, false
	}

	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		c.logger.Warn("Task cache decode failed", zap.Error(err))
		metrics.IncrementCacheRequest("miss")
		return nil, false
	}

	metrics.IncrementCacheRequest("hit")
	return tasks, true
}

// SetTasks stores the list under the cache key. Best effort.
func (c *TaskListCache) SetTasks(ctx context.Context, tasks []model.Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		c.logger.Warn("Task cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, taskListKey, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Task cache set failed", zap.Error(err))
	}
}

// Invalidate drops the cached list. Called after every successful mutation.
func (c *TaskListCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, taskListKey).Err(); err != nil {
		c.logger.Warn("Task cache invalidate failed", zap.Error(err))
	}
}
