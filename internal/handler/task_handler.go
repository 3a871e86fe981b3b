package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-service/contracts/mq"
	"task-service/internal/model"
	"task-service/internal/repository"
	"task-service/pkg/metrics"
)

// TaskStore is the persistence surface the handler depends on.
type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) error
	ListAll(ctx context.Context) ([]model.Task, error)
	SetCompleted(ctx context.Context, taskID int, completed bool) (model.Task, error)
	Delete(ctx context.Context, taskID int) (model.Task, error)
}

// TaskCache caches the full task list. A nil cache disables caching.
type TaskCache interface {
	GetTasks(ctx context.Context) ([]model.Task, bool)
	SetTasks(ctx context.Context, tasks []model.Task)
	Invalidate(ctx context.Context)
}

// EventPublisher emits task lifecycle events. A nil publisher disables them.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

type TaskHandler struct {
	store  TaskStore
	cache  TaskCache
	events EventPublisher
	logger *zap.Logger
}

func NewTaskHandler(store TaskStore, cache TaskCache, events EventPublisher, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{store: store, cache: cache, events: events, logger: logger}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      int    `json:"user_id"`
}

type updateTaskRequest struct {
	IsCompleted bool `json:"is_completed"`
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	h.logger.Debug("ListTasks request received", zap.String("client_ip", c.ClientIP()))
	ctx := c.Request.Context()

	if h.cache != nil {
		if tasks, ok := h.cache.GetTasks(ctx); ok {
			h.logger.Debug("ListTasks: served from cache", zap.Int("task_count", len(tasks)))
			metrics.IncrementTaskOperation("list", "success")
			c.JSON(http.StatusOK, gin.H{"tasks": tasks})
			return
		}
	}

	tasks, err := h.store.ListAll(ctx)
	if err != nil {
		h.logger.Error("ListTasks: failed to fetch tasks", zap.Error(err))
		metrics.IncrementTaskOperation("list", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}
	if h.cache != nil {
		h.cache.SetTasks(ctx, tasks)
	}

	metrics.IncrementTaskOperation("list", "success")
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	h.logger.Info("CreateTask request received", zap.String("client_ip", c.ClientIP()))

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("CreateTask: malformed request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Title == "" || req.UserID == 0 {
		h.logger.Warn("CreateTask: missing required fields",
			zap.String("title", req.Title),
			zap.Int("user_id", req.UserID),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and user_id are required"})
		return
	}

	task := model.Task{
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
	}
	ctx := c.Request.Context()
	if err := h.store.Insert(ctx, &task); err != nil {
		h.logger.Error("CreateTask: failed to insert task",
			zap.Error(err),
			zap.Int("user_id", req.UserID),
		)
		metrics.IncrementTaskOperation("create", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	h.invalidateCache(ctx)
	h.publishEvent("task.created", mq.TaskCreatedPayload{
		TaskID:    task.ID,
		UserID:    task.UserID,
		Title:     task.Title,
		CreatedAt: task.CreatedAt,
	})

	metrics.IncrementTaskOperation("create", "success")
	h.logger.Info("CreateTask: success",
		zap.Int("task_id", task.ID),
		zap.Int("user_id", task.UserID),
	)
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	idStr := c.Param("id")
	h.logger.Info("UpdateTask request received",
		zap.String("task_id", idStr),
		zap.String("client_ip", c.ClientIP()),
	)

	taskID, err := strconv.Atoi(idStr)
	if err != nil {
		h.logger.Warn("UpdateTask: invalid task id format",
			zap.String("task_id", idStr),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("UpdateTask: malformed request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	task, err := h.store.SetCompleted(ctx, taskID, req.IsCompleted)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			h.logger.Warn("UpdateTask: task not found", zap.Int("task_id", taskID))
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.logger.Error("UpdateTask: failed to update task",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		metrics.IncrementTaskOperation("update", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	h.invalidateCache(ctx)
	// Only a transition into the completed state is worth announcing.
	if task.IsCompleted {
		h.publishEvent("task.completed", mq.TaskCompletedPayload{
			TaskID:      task.ID,
			UserID:      task.UserID,
			CompletedAt: time.Now().UTC(),
		})
	}

	metrics.IncrementTaskOperation("update", "success")
	h.logger.Info("UpdateTask: success",
		zap.Int("task_id", task.ID),
		zap.Bool("is_completed", task.IsCompleted),
	)
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	idStr := c.Param("id")
	h.logger.Info("DeleteTask request received",
		zap.String("task_id", idStr),
		zap.String("client_ip", c.ClientIP()),
	)

	taskID, err := strconv.Atoi(idStr)
	if err != nil {
		h.logger.Warn("DeleteTask: invalid task id format",
			zap.String("task_id", idStr),
			zap.Error(err),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	ctx := c.Request.Context()
	task, err := h.store.Delete(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			h.logger.Warn("DeleteTask: task not found", zap.Int("task_id", taskID))
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		h.logger.Error("DeleteTask: failed to delete task",
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		metrics.IncrementTaskOperation("delete", "error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	h.invalidateCache(ctx)
	h.publishEvent("task.deleted", mq.TaskDeletedPayload{
		TaskID:    task.ID,
		UserID:    task.UserID,
		DeletedAt: time.Now().UTC(),
	})

	metrics.IncrementTaskOperation("delete", "success")
	h.logger.Info("DeleteTask: success", zap.Int("task_id", task.ID))
	c.JSON(http.StatusOK, gin.H{
		"message": "task deleted",
		"task":    task,
	})
}

func (h *TaskHandler) invalidateCache(ctx context.Context) {
	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}
}

// publishEvent is best effort: failures are logged and never change the
// HTTP response.
func (h *TaskHandler) publishEvent(routingKey string, payload any) {
	if h.events == nil {
		return
	}
	if err := h.events.Publish(routingKey, payload); err != nil {
		h.logger.Warn("Failed to publish task event",
			zap.String("routing_key", routingKey),
			zap.Error(err),
		)
	}
}
