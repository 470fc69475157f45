package repository

import (
	"fmt"
	"time"

	"daily-todo/internal/model"
)

// taskRecord is the stored form of a task. Due date and due time are strings
// so that a day written on one device reads back as the same day elsewhere.
type taskRecord struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index"`
	Title        string `gorm:"not null"`
	Description  string
	DueDate      *string `gorm:"index"`
	DueTime      *string
	Priority     string    `gorm:"default:low"`
	Daily        bool      `gorm:"default:false"`
	Notification *string   `gorm:"index"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (taskRecord) TableName() string { return "tasks" }

type completionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	TaskID    string `gorm:"not null;uniqueIndex:idx_completion_task_day"`
	Day       string `gorm:"not null;uniqueIndex:idx_completion_task_day"`
	UserID    string `gorm:"index"`
	CreatedAt time.Time
}

func (completionRecord) TableName() string { return "completions" }

type userRecord struct {
	ID          string `gorm:"primaryKey"`
	Provider    string `gorm:"not null;uniqueIndex:idx_user_identity"`
	ExternalID  string `gorm:"not null;uniqueIndex:idx_user_identity"`
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (userRecord) TableName() string { return "users" }

func newTaskRecord(id, ownerID string, in model.TaskInput) taskRecord {
	rec := taskRecord{
		ID:          id,
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    string(in.Priority),
	}
	rec.Daily, rec.DueDate = scheduleColumns(in.Schedule)
	if clock, ok := in.DueTime.Get(); ok {
		s := clock.String()
		rec.DueTime = &s
	}
	if h, ok := in.Notification.Get(); ok {
		s := string(h)
		rec.Notification = &s
	}
	return rec
}

func scheduleColumns(s model.Schedule) (bool, *string) {
	switch v := s.(type) {
	case model.EveryDay:
		return true, nil
	case model.OnDay:
		day := string(v.Day)
		return false, &day
	default:
		return false, nil
	}
}

// patchColumns maps a patch onto the column updates it implies.
func patchColumns(p model.TaskPatch) map[string]any {
	cols := make(map[string]any)
	if v, ok := p.Title.Get(); ok {
		cols["title"] = v
	}
	if v, ok := p.Description.Get(); ok {
		cols["description"] = v
	}
	if v, ok := p.Schedule.Get(); ok {
		daily, due := scheduleColumns(v)
		cols["daily"] = daily
		cols["due_date"] = due
	}
	if v, ok := p.DueTime.Get(); ok {
		cols["due_time"] = v.String()
	}
	if p.ClearDueTime {
		cols["due_time"] = nil
	}
	if v, ok := p.Priority.Get(); ok {
		cols["priority"] = string(v)
	}
	if v, ok := p.Notification.Get(); ok {
		cols["notification"] = string(v)
	}
	if p.ClearNotification {
		cols["notification"] = nil
	}
	return cols
}

func (r taskRecord) toModel() (model.Task, error) {
	due := model.None[model.Day]()
	if r.DueDate != nil && *r.DueDate != "" {
		due = model.Some(model.Day(*r.DueDate))
	}
	schedule, err := model.NewSchedule(due, r.Daily)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: task %s: %w", model.ErrStore, r.ID, err)
	}

	task := model.Task{
		ID:          model.TaskID(r.ID),
		OwnerID:     r.UserID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		Schedule:    schedule,
		Priority:    model.PriorityLow,
	}
	if p, err := model.ParsePriority(r.Priority); err == nil {
		task.Priority = p
	}
	if r.DueTime != nil && *r.DueTime != "" {
		clock, err := model.ParseClock(*r.DueTime)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task %s: %w", model.ErrStore, r.ID, err)
		}
		task.DueTime = model.Some(clock)
	}
	if r.Notification != nil && *r.Notification != "" {
		task.Notification = model.Some(model.NotificationHandle(*r.Notification))
	}
	return task, nil
}

func (r completionRecord) toModel() model.Completion {
	return model.Completion{
		TaskID:    model.TaskID(r.TaskID),
		OwnerID:   r.UserID,
		Day:       model.Day(r.Day),
		CreatedAt: r.CreatedAt,
	}
}

func (r userRecord) toModel() model.User {
	return model.User{
		ID:          r.ID,
		Provider:    r.Provider,
		ExternalID:  r.ExternalID,
		DisplayName: r.DisplayName,
		CreatedAt:   r.CreatedAt,
	}
}
