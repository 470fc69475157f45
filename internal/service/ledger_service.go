package service

import (
	"context"
	"fmt"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
)

// CompletionStore is the backing store of the completion ledger.
type CompletionStore interface {
	Find(ctx context.Context, taskID model.TaskID, day model.Day) (model.Completion, bool, error)
	Create(ctx context.Context, ownerID string, taskID model.TaskID, day model.Day) error
	Delete(ctx context.Context, ownerID string, taskID model.TaskID, day model.Day) error
	ListForDay(ctx context.Context, ownerID string, day model.Day) ([]model.Completion, error)
	DeleteForTask(ctx context.Context, ownerID string, taskID model.TaskID) (int64, error)
}

// TaskLookup resolves a task id for ownership and scope checks.
type TaskLookup interface {
	FindByID(ctx context.Context, id model.TaskID) (model.Task, error)
}

// LedgerService records which tasks were completed on which day. A task that
// is completed on one day stays pending on every other day.
type LedgerService struct {
	store CompletionStore
	tasks TaskLookup
	hub   *live.Hub
}

func NewLedgerService(store CompletionStore, tasks TaskLookup, hub *live.Hub) *LedgerService {
	return &LedgerService{store: store, tasks: tasks, hub: hub}
}

func (s *LedgerService) IsComplete(ctx context.Context, taskID model.TaskID, day model.Day) (bool, error) {
	if !day.Valid() {
		return false, fmt.Errorf("%w: %q", model.ErrInvalidDay, string(day))
	}
	_, found, err := s.store.Find(ctx, taskID, day)
	return found, err
}

// ToggleComplete flips the completion state of a task for one day and returns
// the new state. Two concurrent toggles may both observe the same state; the
// unique (task, day) index keeps the ledger at one entry either way.
func (s *LedgerService) ToggleComplete(ctx context.Context, taskID model.TaskID, day model.Day, ownerID string) (bool, error) {
	if !day.Valid() {
		return false, fmt.Errorf("%w: %q", model.ErrInvalidDay, string(day))
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return false, err
	}
	if task.OwnerID != ownerID {
		return false, fmt.Errorf("%w: task %s", model.ErrNotFound, taskID)
	}
	if !task.InScope(day) {
		return false, fmt.Errorf("%w: task %s on %s", model.ErrNotInScope, taskID, day)
	}

	_, found, err := s.store.Find(ctx, taskID, day)
	if err != nil {
		return false, err
	}
	if found {
		if err := s.store.Delete(ctx, ownerID, taskID, day); err != nil {
			return false, err
		}
		return false, nil
	}
	if err := s.store.Create(ctx, ownerID, taskID, day); err != nil {
		return false, err
	}
	return true, nil
}

// ListStatusesForDay returns every ledger entry the owner has for day.
func (s *LedgerService) ListStatusesForDay(ctx context.Context, ownerID string, day model.Day) ([]model.Completion, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidDay, string(day))
	}
	return s.store.ListForDay(ctx, ownerID, day)
}

func (s *LedgerService) WatchStatusesForDay(ctx context.Context, ownerID string, day model.Day) *live.Stream[[]model.Completion] {
	return live.Watch(ctx, s.hub, live.CompletionsTopic(ownerID), func(ctx context.Context) ([]model.Completion, error) {
		return s.ListStatusesForDay(ctx, ownerID, day)
	})
}

// PurgeTask drops every entry of a deleted task.
func (s *LedgerService) PurgeTask(ctx context.Context, ownerID string, taskID model.TaskID) (int64, error) {
	return s.store.DeleteForTask(ctx, ownerID, taskID)
}
