package service

import "daily-todo/internal/model"

// CompletedSet indexes ledger entries by task id.
func CompletedSet(entries []model.Completion) map[model.TaskID]bool {
	done := make(map[model.TaskID]bool, len(entries))
	for _, e := range entries {
		done[e.TaskID] = true
	}
	return done
}

// PendingCount is the number of tasks in tasks without a ledger entry. Entries
// whose task is not in tasks do not count.
func PendingCount(tasks []model.Task, entries []model.Completion) int {
	done := CompletedSet(entries)
	pending := 0
	for _, task := range tasks {
		if !done[task.ID] {
			pending++
		}
	}
	return pending
}
