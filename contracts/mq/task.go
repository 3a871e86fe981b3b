package mq

import "time"

type TaskCreatedPayload struct {
	TaskID    int       `json:"task_id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type TaskCompletedPayload struct {
	TaskID      int       `json:"task_id"`
	UserID      int       `json:"user_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type TaskDeletedPayload struct {
	TaskID    int       `json:"task_id"`
	UserID    int       `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}
