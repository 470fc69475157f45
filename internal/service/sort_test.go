package service

import (
	"testing"

	"daily-todo/internal/model"
)

func ids(tasks []model.Task) string {
	s := ""
	for _, task := range tasks {
		s += string(task.ID)
	}
	return s
}

func TestSortTasks(t *testing.T) {
	tasks := []model.Task{
		{ID: "a", Priority: model.PriorityLow, DueTime: clockAt(9, 0)},
		{ID: "b", Priority: model.PriorityHigh},
		{ID: "c", Priority: model.PriorityMedium, DueTime: clockAt(7, 30)},
		{ID: "d", Priority: model.PriorityHigh, DueTime: clockAt(18, 0)},
	}

	tests := []struct {
		opt  SortOption
		want string
	}{
		{SortDefault, "abcd"},
		{SortDueTime, "cadb"},
		{SortPriority, "bdca"},
	}
	for _, tt := range tests {
		t.Run(string(tt.opt), func(t *testing.T) {
			if got := ids(SortTasks(tasks, tt.opt)); got != tt.want {
				t.Fatalf("got %s want %s", got, tt.want)
			}
		})
	}
	if got := ids(tasks); got != "abcd" {
		t.Fatalf("input reordered: %s", got)
	}
}

func TestParseSortOption(t *testing.T) {
	tests := []struct {
		in      string
		want    SortOption
		wantErr bool
	}{
		{"", SortDefault, false},
		{"dueTime", SortDueTime, false},
		{"time", SortDueTime, false},
		{"Priority", SortPriority, false},
		{"alphabetical", "", true},
	}
	for _, tt := range tests {
		got, err := ParseSortOption(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("%q: unexpected error %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("%q: got %q want %q", tt.in, got, tt.want)
		}
	}
}
