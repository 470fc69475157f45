package repository

import (
	"context"

	"daily-todo/internal/model"
)

func (r *CompletionRepository) countForTask(ctx context.Context, taskID model.TaskID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&completionRecord{}).Where("task_id = ?", string(taskID)).Count(&n).Error
	return n, err
}
