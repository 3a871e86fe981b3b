package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"task-service/internal/model"
	"task-service/pkg/metrics"
)

// ErrTaskNotFound is returned when an id does not match any task row.
var ErrTaskNotFound = errors.New("task not found")

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// EnsureSchema creates the tasks table when it does not exist yet, so the
// service can start against an empty database.
func (r *TaskRepository) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS tasks (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            is_completed BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )
    `
	if _, err := r.db.Exec(ctx, query); err != nil {
		r.logger.Error("Failed to ensure tasks schema", zap.Error(err))
		return err
	}
	r.logger.Info("Tasks schema ensured")
	return nil
}

func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.Int("user_id", t.UserID),
		zap.String("title", t.Title),
	)
	query := `
        INSERT INTO tasks (user_id, title, description)
        VALUES ($1, $2, $3)
        RETURNING id, is_completed, created_at
    `
	start := time.Now()
	err := r.db.QueryRow(ctx, query,
		t.UserID,
		t.Title,
		t.Description,
	).Scan(&t.ID, &t.IsCompleted, &t.CreatedAt)
	metrics.RecordDBQueryDuration("insert", "tasks", time.Since(start))
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("user_id", t.UserID),
		)
		return err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("user_id", t.UserID),
	)
	return nil
}

func (r *TaskRepository) ListAll(ctx context.Context) ([]model.Task, error) {
	r.logger.Debug("Listing tasks")
	query := `
        SELECT id, user_id, title, description, is_completed, created_at
        FROM tasks
        ORDER BY id
    `
	start := time.Now()
	rows, err := r.db.Query(ctx, query)
	metrics.RecordDBQueryDuration("select", "tasks", time.Since(start))
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Description,
			&t.IsCompleted,
			&t.CreatedAt,
		); err != nil {
			r.logger.Error("Failed to scan task row", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Failed to read task rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("Tasks listed successfully", zap.Int("count", len(tasks)))
	return tasks, nil
}

// SetCompleted updates the completion flag and returns the updated row.
// Returns ErrTaskNotFound when the id does not exist.
func (r *TaskRepository) SetCompleted(ctx context.Context, taskID int, completed bool) (model.Task, error) {
	r.logger.Debug("Updating task completion",
		zap.Int("task_id", taskID),
		zap.Bool("is_completed", completed),
	)
	query := `
        UPDATE tasks
        SET is_completed = $2
        WHERE id = $1
        RETURNING id, user_id, title, description, is_completed, created_at
    `
	var t model.Task
	start := time.Now()
	err := r.db.QueryRow(ctx, query, taskID, completed).Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.IsCompleted,
		&t.CreatedAt,
	)
	metrics.RecordDBQueryDuration("update", "tasks", time.Since(start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Task not found for update", zap.Int("task_id", taskID))
			return model.Task{}, ErrTaskNotFound
		}
		r.logger.Error("Failed to update task",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return model.Task{}, err
	}
	r.logger.Info("Task completion updated",
		zap.Int("task_id", taskID),
		zap.Bool("is_completed", t.IsCompleted),
	)
	return t, nil
}

// Delete removes the task and returns the deleted row.
// Returns ErrTaskNotFound when the id does not exist.
func (r *TaskRepository) Delete(ctx context.Context, taskID int) (model.Task, error) {
	r.logger.Debug("Deleting task", zap.Int("task_id", taskID))
	query := `
        DELETE FROM tasks
        WHERE id = $1
        RETURNING id, user_id, title, description, is_completed, created_at
    `
	var t model.Task
	start := time.Now()
	err := r.db.QueryRow(ctx, query, taskID).Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.IsCompleted,
		&t.CreatedAt,
	)
	metrics.RecordDBQueryDuration("delete", "tasks", time.Since(start))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Task not found for delete", zap.Int("task_id", taskID))
			return model.Task{}, ErrTaskNotFound
		}
		r.logger.Error("Failed to delete task",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return model.Task{}, err
	}
	r.logger.Info("Task deleted successfully",
		zap.Int("task_id", taskID),
		zap.Int("user_id", t.UserID),
	)
	return t, nil
}
