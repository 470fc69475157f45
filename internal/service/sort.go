package service

import (
	"fmt"
	"sort"
	"strings"

	"daily-todo/internal/model"
)

// SortOption is how a day's task list is ordered for display.
type SortOption string

const (
	SortDefault  SortOption = "default"
	SortDueTime  SortOption = "dueTime"
	SortPriority SortOption = "priority"
)

var SortOptions = []SortOption{SortDefault, SortDueTime, SortPriority}

func ParseSortOption(raw string) (SortOption, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "default":
		return SortDefault, nil
	case "duetime", "due", "time":
		return SortDueTime, nil
	case "priority":
		return SortPriority, nil
	default:
		return "", fmt.Errorf("%w: unknown sort %q", model.ErrValidation, raw)
	}
}

// SortTasks returns a sorted copy of tasks. The default order is the store
// order, newest first. Tasks without a due time go last under SortDueTime.
func SortTasks(tasks []model.Task, opt SortOption) []model.Task {
	out := append([]model.Task(nil), tasks...)
	switch opt {
	case SortDueTime:
		sort.SliceStable(out, func(i, j int) bool {
			a, aok := out[i].DueTime.Get()
			b, bok := out[j].DueTime.Get()
			switch {
			case !aok:
				return false
			case !bok:
				return true
			default:
				return a.Before(b)
			}
		})
	case SortPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Priority.Rank() < out[j].Priority.Rank()
		})
	}
	return out
}
