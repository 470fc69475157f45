package service

import (
	"context"
	"fmt"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
)

// TaskStore is the backing store for task records.
type TaskStore interface {
	Create(ctx context.Context, ownerID string, in model.TaskInput) (model.Task, error)
	FindByID(ctx context.Context, id model.TaskID) (model.Task, error)
	FindByNotification(ctx context.Context, handle model.NotificationHandle) (model.Task, error)
	ListForDay(ctx context.Context, ownerID string, day model.Day) ([]model.Task, error)
	ListWithDueTime(ctx context.Context) ([]model.Task, error)
	Update(ctx context.Context, id model.TaskID, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, id model.TaskID) (model.Task, error)
}

// TaskService translates between front-end task input and the task store.
// It owns the lifecycle of task records and nothing else.
type TaskService struct {
	store TaskStore
	hub   *live.Hub
}

func NewTaskService(store TaskStore, hub *live.Hub) *TaskService {
	return &TaskService{store: store, hub: hub}
}

// CreateTask validates input and stores it. The store assigns id and creation time.
func (s *TaskService) CreateTask(ctx context.Context, ownerID string, input model.TaskInput) (model.Task, error) {
	if ownerID == "" {
		return model.Task{}, fmt.Errorf("%w: owner is required", model.ErrValidation)
	}
	in, err := input.Normalize()
	if err != nil {
		return model.Task{}, err
	}
	return s.store.Create(ctx, ownerID, in)
}

func (s *TaskService) GetTask(ctx context.Context, id model.TaskID) (model.Task, error) {
	return s.store.FindByID(ctx, id)
}

// TaskForReminder returns the task that currently holds handle.
func (s *TaskService) TaskForReminder(ctx context.Context, handle model.NotificationHandle) (model.Task, error) {
	return s.store.FindByNotification(ctx, handle)
}

// ListTasksForDay returns the owner's tasks in scope for day, newest first.
func (s *TaskService) ListTasksForDay(ctx context.Context, ownerID string, day model.Day) ([]model.Task, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidDay, string(day))
	}
	return s.store.ListForDay(ctx, ownerID, day)
}

// WatchTasksForDay is the live form of ListTasksForDay.
func (s *TaskService) WatchTasksForDay(ctx context.Context, ownerID string, day model.Day) *live.Stream[[]model.Task] {
	return live.Watch(ctx, s.hub, live.TasksTopic(ownerID), func(ctx context.Context) ([]model.Task, error) {
		return s.ListTasksForDay(ctx, ownerID, day)
	})
}

// UpdateTask merges the supplied fields of patch.
func (s *TaskService) UpdateTask(ctx context.Context, id model.TaskID, patch model.TaskPatch) (model.Task, error) {
	p, err := patch.Normalize()
	if err != nil {
		return model.Task{}, err
	}
	return s.store.Update(ctx, id, p)
}

// DeleteTask removes the task record and returns it. Cancelling its reminder
// and removing its ledger entries is up to the caller.
func (s *TaskService) DeleteTask(ctx context.Context, id model.TaskID) (model.Task, error) {
	return s.store.Delete(ctx, id)
}

// ListReminderCandidates returns every task that carries a due time.
func (s *TaskService) ListReminderCandidates(ctx context.Context) ([]model.Task, error) {
	return s.store.ListWithDueTime(ctx)
}
