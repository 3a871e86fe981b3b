package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"task-service/internal/model"
	"task-service/internal/repository"
)

// mockStore implements TaskStore for testing
type mockStore struct {
	insertFunc       func(ctx context.Context, t *model.Task) error
	listAllFunc      func(ctx context.Context) ([]model.Task, error)
	setCompletedFunc func(ctx context.Context, taskID int, completed bool) (model.Task, error)
	deleteFunc       func(ctx context.Context, taskID int) (model.Task, error)
}

func (m *mockStore) Insert(ctx context.Context, t *model.Task) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, t)
	}
	return errors.New("not implemented")
}

func (m *mockStore) ListAll(ctx context.Context) ([]model.Task, error) {
	if m.listAllFunc != nil {
		return m.listAllFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (m *mockStore) SetCompleted(ctx context.Context, taskID int, completed bool) (model.Task, error) {
	if m.setCompletedFunc != nil {
		return m.setCompletedFunc(ctx, taskID, completed)
	}
	return model.Task{}, errors.New("not implemented")
}

func (m *mockStore) Delete(ctx context.Context, taskID int) (model.Task, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, taskID)
	}
	return model.Task{}, errors.New("not implemented")
}

// mockCache implements TaskCache for testing
type mockCache struct {
	tasks           []model.Task
	hit             bool
	setCalls        int
	invalidateCalls int
}

func (m *mockCache) GetTasks(ctx context.Context) ([]model.Task, bool) {
	return m.tasks, m.hit
}

func (m *mockCache) SetTasks(ctx context.Context, tasks []model.Task) {
	m.setCalls++
	m.tasks = tasks
}

func (m *mockCache) Invalidate(ctx context.Context) {
	m.invalidateCalls++
}

// mockPublisher implements EventPublisher for testing
type mockPublisher struct {
	publishFunc func(routingKey string, payload any) error
	published   []string
}

func (m *mockPublisher) Publish(routingKey string, payload any) error {
	m.published = append(m.published, routingKey)
	if m.publishFunc != nil {
		return m.publishFunc(routingKey, payload)
	}
	return nil
}

func newTestRouter(h *TaskHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/tasks", h.ListTasks)
	r.POST("/tasks", h.CreateTask)
	r.PUT("/tasks/:id", h.UpdateTask)
	r.DELETE("/tasks/:id", h.DeleteTask)
	return r
}

func TestCreateTask_Validation(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		expectedBody string
	}{
		{
			name:         "missing title",
			body:         `{"user_id": 1}`,
			expectedBody: "title and user_id are required",
		},
		{
			name:         "missing user_id",
			body:         `{"title": "write tests"}`,
			expectedBody: "title and user_id are required",
		},
		{
			name:         "empty title",
			body:         `{"title": "", "user_id": 1}`,
			expectedBody: "title and user_id are required",
		},
		{
			name:         "empty body",
			body:         `{}`,
			expectedBody: "title and user_id are required",
		},
		{
			name:         "malformed json",
			body:         `{"title": `,
			expectedBody: "invalid request",
		},
		{
			name:         "wrong field type",
			body:         `{"title": "x", "user_id": "one"}`,
			expectedBody: "invalid request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted := false
			store := &mockStore{
				insertFunc: func(ctx context.Context, task *model.Task) error {
					inserted = true
					return nil
				},
			}
			h := NewTaskHandler(store, nil, nil, zap.NewNop())
			r := newTestRouter(h)

			req := httptest.NewRequest("POST", "/tasks", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %v, want %v", w.Code, http.StatusBadRequest)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("body = %v, want to contain %q", w.Body.String(), tt.expectedBody)
			}
			if inserted {
				t.Error("store.Insert was called for an invalid request")
			}
		})
	}
}

func TestCreateTask_Success(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	store := &mockStore{
		insertFunc: func(ctx context.Context, task *model.Task) error {
			task.ID = 42
			task.CreatedAt = now
			return nil
		},
	}
	cache := &mockCache{}
	pub := &mockPublisher{}
	h := NewTaskHandler(store, cache, pub, zap.NewNop())
	r := newTestRouter(h)

	body := `{"title": "write tests", "description": "for the handler", "user_id": 7}`
	req := httptest.NewRequest("POST", "/tasks", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusCreated)
	}

	var got model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if got.ID != 42 {
		t.Errorf("id = %v, want 42", got.ID)
	}
	if got.Title != "write tests" {
		t.Errorf("title = %q, want %q", got.Title, "write tests")
	}
	if got.Description != "for the handler" {
		t.Errorf("description = %q, want %q", got.Description, "for the handler")
	}
	if got.UserID != 7 {
		t.Errorf("user_id = %v, want 7", got.UserID)
	}
	if got.IsCompleted {
		t.Error("is_completed = true, want false")
	}

	if cache.invalidateCalls != 1 {
		t.Errorf("cache invalidations = %v, want 1", cache.invalidateCalls)
	}
	if len(pub.published) != 1 || pub.published[0] != "task.created" {
		t.Errorf("published = %v, want [task.created]", pub.published)
	}
}

func TestCreateTask_StoreError(t *testing.T) {
	store := &mockStore{
		insertFunc: func(ctx context.Context, task *model.Task) error {
			return errors.New("connection refused")
		},
	}
	h := NewTaskHandler(store, nil, nil, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest("POST", "/tasks", strings.NewReader(`{"title": "x", "user_id": 1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), "failed to create task") {
		t.Errorf("body = %v, want generic error", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("body = %v, leaks the database error", w.Body.String())
	}
}

func TestCreateTask_PublishFailureKeepsResponse(t *testing.T) {
	store := &mockStore{
		insertFunc: func(ctx context.Context, task *model.Task) error {
			task.ID = 1
			return nil
		},
	}
	pub := &mockPublisher{
		publishFunc: func(routingKey string, payload any) error {
			return errors.New("broker down")
		},
	}
	h := NewTaskHandler(store, nil, pub, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest("POST", "/tasks", strings.NewReader(`{"title": "x", "user_id": 1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %v, want %v despite publish failure", w.Code, http.StatusCreated)
	}
}

func TestListTasks(t *testing.T) {
	stored := []model.Task{
		{ID: 1, UserID: 1, Title: "first"},
		{ID: 2, UserID: 2, Title: "second", IsCompleted: true},
	}
	store := &mockStore{
		listAllFunc: func(ctx context.Context) ([]model.Task, error) {
			return stored, nil
		},
	}
	cache := &mockCache{}
	h := NewTaskHandler(store, cache, nil, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}

	var got struct {
		Tasks []model.Task `json:"tasks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(got.Tasks) != 2 {
		t.Fatalf("len(tasks) = %v, want 2", len(got.Tasks))
	}
	if got.Tasks[0].ID != 1 || got.Tasks[1].ID != 2 {
		t.Errorf("tasks = %+v, want ids [1 2]", got.Tasks)
	}
	if cache.setCalls != 1 {
		t.Errorf("cache set calls = %v, want 1", cache.setCalls)
	}
}

func TestListTasks_CacheHit(t *testing.T) {
	storeCalled := false
	store := &mockStore{
		listAllFunc: func(ctx context.Context) ([]model.Task, error) {
			storeCalled = true
			return nil, nil
		},
	}
	cache := &mockCache{
		tasks: []model.Task{{ID: 9, UserID: 1, Title: "cached"}},
		hit:   true,
	}
	h := NewTaskHandler(store, cache, nil, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}
	if storeCalled {
		t.Error("store.ListAll was called on a cache hit")
	}
	if !strings.Contains(w.Body.String(), `"cached"`) {
		t.Errorf("body = %v, want the cached task", w.Body.String())
	}
}

func TestListTasks_StoreError(t *testing.T) {
	store := &mockStore{
		listAllFunc: func(ctx context.Context) ([]model.Task, error) {
			return nil, errors.New("boom")
		},
	}
	h := NewTaskHandler(store, nil, nil, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest("GET", "/tasks", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %v, want %v", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), "failed to fetch tasks") {
		t.Errorf("body = %v, want generic error", w.Body.String())
	}
}

func TestUpdateTask(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		body           string
		store          *mockStore
		expectedStatus int
		expectedBody   string
		expectedEvents []string
	}{
		{
			name:           "non-numeric id",
			id:             "abc",
			body:           `{"is_completed": true}`,
			store:          &mockStore{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid task id",
		},
		{
			name: "task not found",
			id:   "99",
			body: `{"is_completed": true}`,
			store: &mockStore{
				setCompletedFunc: func(ctx context.Context, taskID int, completed bool) (model.Task, error) {
					return model.Task{}, repository.ErrTaskNotFound
				},
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "task not found",
		},
		{
			name: "mark completed",
			id:   "5",
			body: `{"is_completed": true}`,
			store: &mockStore{
				setCompletedFunc: func(ctx context.Context, taskID int, completed bool) (model.Task, error) {
					return model.Task{ID: taskID, UserID: 3, Title: "t", IsCompleted: completed}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"is_completed":true`,
			expectedEvents: []string{"task.completed"},
		},
		{
			name: "mark not completed publishes nothing",
			id:   "5",
			body: `{"is_completed": false}`,
			store: &mockStore{
				setCompletedFunc: func(ctx context.Context, taskID int, completed bool) (model.Task, error) {
					return model.Task{ID: taskID, UserID: 3, Title: "t", IsCompleted: completed}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"is_completed":false`,
			expectedEvents: nil,
		},
		{
			name: "store error",
			id:   "5",
			body: `{"is_completed": true}`,
			store: &mockStore{
				setCompletedFunc: func(ctx context.Context, taskID int, completed bool) (model.Task, error) {
					return model.Task{}, errors.New("boom")
				},
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "failed to update task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			h := NewTaskHandler(tt.store, nil, pub, zap.NewNop())
			r := newTestRouter(h)

			req := httptest.NewRequest("PUT", "/tasks/"+tt.id, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.expectedStatus)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("body = %v, want to contain %q", w.Body.String(), tt.expectedBody)
			}
			if len(pub.published) != len(tt.expectedEvents) {
				t.Fatalf("published = %v, want %v", pub.published, tt.expectedEvents)
			}
			for i := range tt.expectedEvents {
				if pub.published[i] != tt.expectedEvents[i] {
					t.Errorf("published[%d] = %v, want %v", i, pub.published[i], tt.expectedEvents[i])
				}
			}
		})
	}
}

func TestUpdateTask_InvalidatesCache(t *testing.T) {
	store := &mockStore{
		setCompletedFunc: func(ctx context.Context, taskID int, completed bool) (model.Task, error) {
			return model.Task{ID: taskID, IsCompleted: completed}, nil
		},
	}
	cache := &mockCache{}
	h := NewTaskHandler(store, cache, nil, zap.NewNop())
	r := newTestRouter(h)

	req := httptest.NewRequest("PUT", "/tasks/1", strings.NewReader(`{"is_completed": true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %v, want %v", w.Code, http.StatusOK)
	}
	if cache.invalidateCalls != 1 {
		t.Errorf("cache invalidations = %v, want 1", cache.invalidateCalls)
	}
}

func TestDeleteTask(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		store          *mockStore
		expectedStatus int
		expectedBody   string
		expectedEvents []string
	}{
		{
			name:           "non-numeric id",
			id:             "abc",
			store:          &mockStore{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid task id",
		},
		{
			name: "task not found",
			id:   "99",
			store: &mockStore{
				deleteFunc: func(ctx context.Context, taskID int) (model.Task, error) {
					return model.Task{}, repository.ErrTaskNotFound
				},
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   "task not found",
		},
		{
			name: "success",
			id:   "5",
			store: &mockStore{
				deleteFunc: func(ctx context.Context, taskID int) (model.Task, error) {
					return model.Task{ID: taskID, UserID: 2, Title: "gone"}, nil
				},
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "task deleted",
			expectedEvents: []string{"task.deleted"},
		},
		{
			name: "store error",
			id:   "5",
			store: &mockStore{
				deleteFunc: func(ctx context.Context, taskID int) (model.Task, error) {
					return model.Task{}, errors.New("boom")
				},
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "failed to delete task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &mockPublisher{}
			cache := &mockCache{}
			h := NewTaskHandler(tt.store, cache, pub, zap.NewNop())
			r := newTestRouter(h)

			req := httptest.NewRequest("DELETE", "/tasks/"+tt.id, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.expectedStatus)
			}
			if !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("body = %v, want to contain %q", w.Body.String(), tt.expectedBody)
			}
			if len(pub.published) != len(tt.expectedEvents) {
				t.Fatalf("published = %v, want %v", pub.published, tt.expectedEvents)
			}
			if tt.expectedStatus == http.StatusOK {
				if cache.invalidateCalls != 1 {
					t.Errorf("cache invalidations = %v, want 1", cache.invalidateCalls)
				}
				var got struct {
					Message string     `json:"message"`
					Task    model.Task `json:"task"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
					t.Fatalf("json.Unmarshal() error = %v", err)
				}
				if got.Message != "task deleted" {
					t.Errorf("message = %q, want %q", got.Message, "task deleted")
				}
				if got.Task.ID != 5 {
					t.Errorf("task.id = %v, want 5", got.Task.ID)
				}
			}
		})
	}
}
