package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
)

// TaskRepository handles CRUD for tasks and announces every committed write.
type TaskRepository struct {
	db  *gorm.DB
	pub live.Publisher
}

func NewTaskRepository(db *gorm.DB, pub live.Publisher) *TaskRepository {
	return &TaskRepository{db: db, pub: pub}
}

// Create stores a new task. The id and creation time are assigned here.
func (r *TaskRepository) Create(ctx context.Context, ownerID string, in model.TaskInput) (model.Task, error) {
	rec := newTaskRecord(uuid.NewString(), ownerID, in)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return model.Task{}, fmt.Errorf("%w: create task: %w", model.ErrStore, err)
	}
	r.pub.Publish(live.TasksTopic(ownerID))
	return rec.toModel()
}

func (r *TaskRepository) FindByID(ctx context.Context, id model.TaskID) (model.Task, error) {
	var rec taskRecord
	if err := r.db.WithContext(ctx).Where("id = ?", string(id)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Task{}, fmt.Errorf("%w: task %s", model.ErrNotFound, id)
		}
		return model.Task{}, fmt.Errorf("%w: find task: %w", model.ErrStore, err)
	}
	return rec.toModel()
}

// FindByNotification returns the task whose reminder is bound to handle.
func (r *TaskRepository) FindByNotification(ctx context.Context, handle model.NotificationHandle) (model.Task, error) {
	var rec taskRecord
	if err := r.db.WithContext(ctx).Where("notification = ?", string(handle)).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Task{}, fmt.Errorf("%w: no task holds reminder %s", model.ErrNotFound, handle)
		}
		return model.Task{}, fmt.Errorf("%w: find task by reminder: %w", model.ErrStore, err)
	}
	return rec.toModel()
}

// ListForDay returns the owner's tasks due on day plus every daily task,
// most recently created first.
func (r *TaskRepository) ListForDay(ctx context.Context, ownerID string, day model.Day) ([]model.Task, error) {
	var recs []taskRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND (daily = ? OR due_date = ?)", ownerID, true, string(day)).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: list tasks: %w", model.ErrStore, err)
	}
	return toTasks(recs)
}

// ListWithDueTime returns every task that has a reminder time, across owners.
func (r *TaskRepository) ListWithDueTime(ctx context.Context) ([]model.Task, error) {
	var recs []taskRecord
	if err := r.db.WithContext(ctx).
		Where("due_time IS NOT NULL AND due_time <> ''").
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: list reminder tasks: %w", model.ErrStore, err)
	}
	return toTasks(recs)
}

// Update merges the set fields of patch into the stored task.
func (r *TaskRepository) Update(ctx context.Context, id model.TaskID, patch model.TaskPatch) (model.Task, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	cols := patchColumns(patch)
	if len(cols) == 0 {
		return current, nil
	}

	res := r.db.WithContext(ctx).Model(&taskRecord{}).Where("id = ?", string(id)).Updates(cols)
	if res.Error != nil {
		return model.Task{}, fmt.Errorf("%w: update task: %w", model.ErrStore, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Task{}, fmt.Errorf("%w: task %s", model.ErrNotFound, id)
	}
	r.pub.Publish(live.TasksTopic(current.OwnerID))
	return current.Apply(patch), nil
}

// Delete removes a task and returns what was stored.
func (r *TaskRepository) Delete(ctx context.Context, id model.TaskID) (model.Task, error) {
	current, err := r.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	res := r.db.WithContext(ctx).Where("id = ?", string(id)).Delete(&taskRecord{})
	if res.Error != nil {
		return model.Task{}, fmt.Errorf("%w: delete task: %w", model.ErrStore, res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Task{}, fmt.Errorf("%w: task %s", model.ErrNotFound, id)
	}
	r.pub.Publish(live.TasksTopic(current.OwnerID))
	return current, nil
}

func toTasks(recs []taskRecord) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(recs))
	for _, rec := range recs {
		task, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
