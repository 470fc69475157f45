package model

import (
	"fmt"
	"strings"
	"time"
)

type TaskID string

// NotificationHandle is the opaque id a notification scheduler returns for a
// scheduled reminder. It is only ever used to cancel that reminder.
type NotificationHandle string

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority maps user input to a priority. Empty input means low.
func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PriorityLow, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Rank orders priorities for display; high sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Color is the hex colour the priority flag is drawn with.
func (p Priority) Color() string {
	switch p {
	case PriorityHigh:
		return "#FF4B4B"
	case PriorityMedium:
		return "#FFA246"
	case PriorityLow:
		return "#4CAF50"
	default:
		return "#8E8E93"
	}
}

// Schedule says which calendar days a task applies to. It is either EveryDay
// or OnDay; a nil Schedule is never valid.
type Schedule interface {
	Covers(day Day) bool
	isSchedule()
}

// EveryDay is the schedule of a daily task.
type EveryDay struct{}

func (EveryDay) Covers(Day) bool { return true }
func (EveryDay) isSchedule()     {}

// OnDay is the schedule of a one-off task due on a single day.
type OnDay struct {
	Day Day
}

func (s OnDay) Covers(day Day) bool { return s.Day == day }
func (OnDay) isSchedule()           {}

// NewSchedule builds a schedule from the due date and daily flag the user
// picked. A daily task ignores the due date.
func NewSchedule(due Optional[Day], daily bool) (Schedule, error) {
	if daily {
		return EveryDay{}, nil
	}
	day, ok := due.Get()
	if !ok {
		return nil, ErrMissingDueDate
	}
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDay, string(day))
	}
	return OnDay{Day: day}, nil
}

// Task is a user's to-do item.
type Task struct {
	ID           TaskID
	OwnerID      string
	Title        string
	Description  string
	CreatedAt    time.Time
	Schedule     Schedule
	DueTime      Optional[ClockTime]
	Priority     Priority
	Notification Optional[NotificationHandle]
}

func (t Task) Daily() bool {
	_, ok := t.Schedule.(EveryDay)
	return ok
}

// DueDay returns the due date of a one-off task.
func (t Task) DueDay() Optional[Day] {
	if s, ok := t.Schedule.(OnDay); ok {
		return Some(s.Day)
	}
	return None[Day]()
}

// InScope reports whether the task shows up on day.
func (t Task) InScope(day Day) bool {
	return t.Schedule != nil && t.Schedule.Covers(day)
}

// TaskInput carries what a user supplies when creating a task.
type TaskInput struct {
	Title       string
	Description string
	Schedule    Schedule
	DueTime     Optional[ClockTime]
	Priority    Priority
	// Notification is set by the planner when a reminder was bound before the
	// task was stored.
	Notification Optional[NotificationHandle]
}

// Normalize trims the input and fills defaults, failing on anything the
// store must never see.
func (in TaskInput) Normalize() (TaskInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, ErrEmptyTitle
	}
	in.Description = strings.TrimSpace(in.Description)
	if in.Schedule == nil {
		return in, ErrMissingDueDate
	}
	if in.Priority == "" {
		in.Priority = PriorityLow
	}
	if !in.Priority.IsValid() {
		return in, fmt.Errorf("%w: %q", ErrInvalidPriority, in.Priority)
	}
	return in, nil
}

// TaskPatch is a partial update. Only fields that are set are written.
type TaskPatch struct {
	Title        Optional[string]
	Description  Optional[string]
	Schedule     Optional[Schedule]
	DueTime      Optional[ClockTime]
	ClearDueTime bool
	Priority     Optional[Priority]
	Notification Optional[NotificationHandle]
	// ClearNotification drops the stored handle after its reminder was cancelled.
	ClearNotification bool
}

func (p TaskPatch) Empty() bool {
	return !p.Title.IsSet() && !p.Description.IsSet() && !p.Schedule.IsSet() &&
		!p.DueTime.IsSet() && !p.ClearDueTime && !p.Priority.IsSet() &&
		!p.Notification.IsSet() && !p.ClearNotification
}

// TouchesReminder reports whether applying p changes what a reminder for the
// task would say or when it would fire.
func (p TaskPatch) TouchesReminder() bool {
	return p.Title.IsSet() || p.Description.IsSet() || p.Schedule.IsSet() ||
		p.DueTime.IsSet() || p.ClearDueTime
}

func (p TaskPatch) Normalize() (TaskPatch, error) {
	if title, ok := p.Title.Get(); ok {
		title = strings.TrimSpace(title)
		if title == "" {
			return p, ErrEmptyTitle
		}
		p.Title = Some(title)
	}
	if desc, ok := p.Description.Get(); ok {
		p.Description = Some(strings.TrimSpace(desc))
	}
	if s, ok := p.Schedule.Get(); ok && s == nil {
		return p, ErrMissingDueDate
	}
	if pr, ok := p.Priority.Get(); ok && !pr.IsValid() {
		return p, fmt.Errorf("%w: %q", ErrInvalidPriority, pr)
	}
	if p.DueTime.IsSet() && p.ClearDueTime {
		return p, fmt.Errorf("%w: cannot set and clear the due time at once", ErrValidation)
	}
	if p.Notification.IsSet() && p.ClearNotification {
		return p, fmt.Errorf("%w: cannot set and clear the notification at once", ErrValidation)
	}
	return p, nil
}

// Apply returns t with p merged in.
func (t Task) Apply(p TaskPatch) Task {
	if v, ok := p.Title.Get(); ok {
		t.Title = v
	}
	if v, ok := p.Description.Get(); ok {
		t.Description = v
	}
	if v, ok := p.Schedule.Get(); ok {
		t.Schedule = v
	}
	if v, ok := p.DueTime.Get(); ok {
		t.DueTime = Some(v)
	}
	if p.ClearDueTime {
		t.DueTime = None[ClockTime]()
	}
	if v, ok := p.Priority.Get(); ok {
		t.Priority = v
	}
	if v, ok := p.Notification.Get(); ok {
		t.Notification = Some(v)
	}
	if p.ClearNotification {
		t.Notification = None[NotificationHandle]()
	}
	return t
}
