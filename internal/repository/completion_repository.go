package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
)

// CompletionRepository stores one row per (task, day) a task was completed on.
type CompletionRepository struct {
	db  *gorm.DB
	pub live.Publisher
}

func NewCompletionRepository(db *gorm.DB, pub live.Publisher) *CompletionRepository {
	return &CompletionRepository{db: db, pub: pub}
}

// Find reports whether an entry exists for the pair.
func (r *CompletionRepository) Find(ctx context.Context, taskID model.TaskID, day model.Day) (model.Completion, bool, error) {
	var rec completionRecord
	err := r.db.WithContext(ctx).Where("task_id = ? AND day = ?", string(taskID), string(day)).First(&rec).Error
	switch {
	case err == nil:
		return rec.toModel(), true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.Completion{}, false, nil
	default:
		return model.Completion{}, false, fmt.Errorf("%w: find completion: %w", model.ErrStore, err)
	}
}

// Create inserts the entry for the pair. An existing entry is left as is.
func (r *CompletionRepository) Create(ctx context.Context, ownerID string, taskID model.TaskID, day model.Day) error {
	rec := completionRecord{TaskID: string(taskID), Day: string(day), UserID: ownerID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return fmt.Errorf("%w: create completion: %w", model.ErrStore, err)
	}
	r.pub.Publish(live.CompletionsTopic(ownerID))
	return nil
}

// Delete removes the entry for the pair. Deleting a missing entry is not an error.
func (r *CompletionRepository) Delete(ctx context.Context, ownerID string, taskID model.TaskID, day model.Day) error {
	if err := r.db.WithContext(ctx).
		Where("task_id = ? AND day = ?", string(taskID), string(day)).
		Delete(&completionRecord{}).Error; err != nil {
		return fmt.Errorf("%w: delete completion: %w", model.ErrStore, err)
	}
	r.pub.Publish(live.CompletionsTopic(ownerID))
	return nil
}

func (r *CompletionRepository) ListForDay(ctx context.Context, ownerID string, day model.Day) ([]model.Completion, error) {
	var recs []completionRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND day = ?", ownerID, string(day)).
		Order("created_at ASC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: list completions: %w", model.ErrStore, err)
	}
	out := make([]model.Completion, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

// DeleteForTask removes every entry of a task and returns how many went.
func (r *CompletionRepository) DeleteForTask(ctx context.Context, ownerID string, taskID model.TaskID) (int64, error) {
	res := r.db.WithContext(ctx).Where("task_id = ?", string(taskID)).Delete(&completionRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: delete completions: %w", model.ErrStore, res.Error)
	}
	if res.RowsAffected > 0 {
		r.pub.Publish(live.CompletionsTopic(ownerID))
	}
	return res.RowsAffected, nil
}
