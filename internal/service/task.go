package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tasknest/tasknest-go/internal/model"
	"github.com/tasknest/tasknest-go/internal/repository"
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidPriority = errors.New("priority must be one of low, medium, high")
	ErrInvalidStatus   = errors.New("status must be one of todo, in-progress, completed")
	ErrInvalidDueDate  = errors.New("dueDate must be an RFC 3339 timestamp or a YYYY-MM-DD date")
	ErrTaskNotFound    = errors.New("task not found")
)

// TaskService validates task requests and delegates to the owner-scoped store.
type TaskService struct {
	repo repository.TaskStore
	now  func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo repository.TaskStore) *TaskService {
	return &TaskService{repo: repo, now: time.Now}
}

// IsValidationError reports whether err is caused by bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrInvalidPriority) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidDueDate)
}

// Create validates req, fills defaults and stores a task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, req model.CreateTaskRequest) (model.TaskResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return model.TaskResponse{}, ErrTitleRequired
	}

	task := &model.Task{
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}
	if task.Status == "" {
		task.Status = model.StatusTodo
	}
	if !task.Priority.Valid() {
		return model.TaskResponse{}, ErrInvalidPriority
	}
	if !task.Status.Valid() {
		return model.TaskResponse{}, ErrInvalidStatus
	}

	if req.DueDate == "" {
		task.DueDate = s.now().UTC()
	} else {
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			return model.TaskResponse{}, err
		}
		task.DueDate = due
	}

	if err := s.repo.Insert(ctx, task); err != nil {
		return model.TaskResponse{}, err
	}

	return model.NewTaskResponse(*task), nil
}

// List returns every task owned by ownerID in store order.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]model.TaskResponse, error) {
	tasks, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	resp := make([]model.TaskResponse, len(tasks))
	for i, t := range tasks {
		resp[i] = model.NewTaskResponse(t)
	}
	return resp, nil
}

// Update applies the supplied fields to the caller's task.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, req model.UpdateTaskRequest) (model.TaskResponse, error) {
	patch, err := buildPatch(req)
	if err != nil {
		return model.TaskResponse{}, err
	}

	task, err := s.repo.UpdateByOwnerAndID(ctx, ownerID, taskID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return model.TaskResponse{}, ErrTaskNotFound
		}
		return model.TaskResponse{}, err
	}

	return model.NewTaskResponse(*task), nil
}

// Delete permanently removes the caller's task.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) error {
	err := s.repo.DeleteByOwnerAndID(ctx, ownerID, taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	return err
}

func buildPatch(req model.UpdateTaskRequest) (model.TaskPatch, error) {
	patch := model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.TaskPatch{}, ErrTitleRequired
	}
	if patch.Priority != nil && !patch.Priority.Valid() {
		return model.TaskPatch{}, ErrInvalidPriority
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return model.TaskPatch{}, ErrInvalidStatus
	}
	if req.DueDate != nil {
		due, err := parseDueDate(*req.DueDate)
		if err != nil {
			return model.TaskPatch{}, err
		}
		patch.DueDate = &due
	}
	return patch, nil
}

// parseDueDate accepts RFC 3339 timestamps and plain dates (midnight UTC).
func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDueDate
}
