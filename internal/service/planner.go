package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
)

// Planner is what a front end talks to. It keeps a task, its reminder and
// its ledger entries consistent with each other.
type Planner struct {
	tasks  *TaskService
	ledger *LedgerService
	binder *NotificationBinder
	loc    *time.Location
	log    *log.Logger
	now    func() time.Time
}

func NewPlanner(tasks *TaskService, ledger *LedgerService, binder *NotificationBinder, loc *time.Location, logger *log.Logger) *Planner {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{tasks: tasks, ledger: ledger, binder: binder, loc: loc, log: logger, now: time.Now}
}

func (p *Planner) Tasks() *TaskService      { return p.tasks }
func (p *Planner) Ledger() *LedgerService   { return p.ledger }
func (p *Planner) Location() *time.Location { return p.loc }

// WatchTasksForDay and WatchStatusesForDay let a board subscribe through the planner.
func (p *Planner) WatchTasksForDay(ctx context.Context, ownerID string, day model.Day) *live.Stream[[]model.Task] {
	return p.tasks.WatchTasksForDay(ctx, ownerID, day)
}

func (p *Planner) WatchStatusesForDay(ctx context.Context, ownerID string, day model.Day) *live.Stream[[]model.Completion] {
	return p.ledger.WatchStatusesForDay(ctx, ownerID, day)
}

// Today is the current calendar day in the planner's location.
func (p *Planner) Today() model.Day {
	return model.DayOf(p.now(), p.loc)
}

// AddTask stores a new task and schedules its reminder. A reminder that
// cannot be scheduled is logged and the task is stored without one.
func (p *Planner) AddTask(ctx context.Context, ownerID string, input model.TaskInput) (model.Task, error) {
	in, err := input.Normalize()
	if err != nil {
		return model.Task{}, err
	}

	in.Notification = p.bind(ctx, ownerID, in.Title, in.Description, in.Schedule, in.DueTime)
	task, err := p.tasks.CreateTask(ctx, ownerID, in)
	if err != nil {
		if h, ok := in.Notification.Get(); ok {
			p.cancel(ctx, h)
		}
		return model.Task{}, err
	}
	p.log.Printf("[info] task %s created for %s", task.ID, ownerID)
	return task, nil
}

// EditTask merges patch into the owner's task. When the change affects the
// reminder, the new reminder is bound first and the old one cancelled only
// after the write succeeded.
func (p *Planner) EditTask(ctx context.Context, ownerID string, id model.TaskID, patch model.TaskPatch) (model.Task, error) {
	patch, err := patch.Normalize()
	if err != nil {
		return model.Task{}, err
	}
	current, err := p.owned(ctx, ownerID, id)
	if err != nil {
		return model.Task{}, err
	}
	if !patch.TouchesReminder() {
		return p.tasks.UpdateTask(ctx, id, patch)
	}

	next := current.Apply(patch)
	fresh := p.bind(ctx, ownerID, next.Title, next.Description, next.Schedule, next.DueTime)
	if h, ok := fresh.Get(); ok {
		patch.Notification = model.Some(h)
	} else if current.Notification.IsSet() {
		patch.ClearNotification = true
	}

	updated, err := p.tasks.UpdateTask(ctx, id, patch)
	if err != nil {
		if h, ok := fresh.Get(); ok {
			p.cancel(ctx, h)
		}
		return model.Task{}, err
	}
	if h, ok := current.Notification.Get(); ok {
		p.cancel(ctx, h)
	}
	return updated, nil
}

// RemoveTask deletes the owner's task, its reminder and its ledger entries.
func (p *Planner) RemoveTask(ctx context.Context, ownerID string, id model.TaskID) error {
	if _, err := p.owned(ctx, ownerID, id); err != nil {
		return err
	}
	task, err := p.tasks.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if h, ok := task.Notification.Get(); ok {
		p.cancel(ctx, h)
	}
	n, err := p.ledger.PurgeTask(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("purge completions of %s: %w", id, err)
	}
	p.log.Printf("[info] task %s removed with %d completions", id, n)
	return nil
}

// ToggleTask flips the completion of a task on day.
func (p *Planner) ToggleTask(ctx context.Context, ownerID string, id model.TaskID, day model.Day) (bool, error) {
	return p.ledger.ToggleComplete(ctx, id, day, ownerID)
}

// RestoreReminders re-binds every task with a due time. Handles from a
// previous process are stale and get replaced. It returns how many tasks have
// a live reminder afterwards.
func (p *Planner) RestoreReminders(ctx context.Context) (int, error) {
	tasks, err := p.tasks.ListReminderCandidates(ctx)
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		patch := model.TaskPatch{}
		h := p.bind(ctx, task.OwnerID, task.Title, task.Description, task.Schedule, task.DueTime)
		if v, ok := h.Get(); ok {
			patch.Notification = model.Some(v)
			restored++
		} else if task.Notification.IsSet() {
			patch.ClearNotification = true
		}
		if patch.Empty() {
			continue
		}
		if _, err := p.tasks.UpdateTask(ctx, task.ID, patch); err != nil {
			if v, ok := h.Get(); ok {
				p.cancel(ctx, v)
				restored--
			}
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return restored, err
		}
	}
	return restored, nil
}

// ConfirmFiring reports whether f still belongs to a stored task. Another
// process may have deleted the task or rebound its reminder; such a firing is
// stale, and its trigger is cancelled here so it does not come back.
func (p *Planner) ConfirmFiring(ctx context.Context, f Firing) (bool, error) {
	task, err := p.tasks.TaskForReminder(ctx, f.Handle)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return false, err
	case task.OwnerID == f.Recipient:
		return true, nil
	}
	p.log.Printf("[info] reminder %s no longer bound to a task, cancelling", f.Handle)
	p.cancel(ctx, f.Handle)
	return false, nil
}

// DaySummary is one day of an owner's list with its completion marks.
type DaySummary struct {
	Day       model.Day
	Tasks     []model.Task
	Completed map[model.TaskID]bool
	Pending   int
}

func (p *Planner) DaySummary(ctx context.Context, ownerID string, day model.Day, sortBy SortOption) (DaySummary, error) {
	tasks, err := p.tasks.ListTasksForDay(ctx, ownerID, day)
	if err != nil {
		return DaySummary{}, err
	}
	entries, err := p.ledger.ListStatusesForDay(ctx, ownerID, day)
	if err != nil {
		return DaySummary{}, err
	}
	return DaySummary{
		Day:       day,
		Tasks:     SortTasks(tasks, sortBy),
		Completed: CompletedSet(entries),
		Pending:   PendingCount(tasks, entries),
	}, nil
}

// reminderFor builds the reminder of a task, if it should have one. One-off
// tasks whose due instant has passed get none.
func (p *Planner) reminderFor(ownerID string, title, desc string, schedule model.Schedule, due model.Optional[model.ClockTime]) (Reminder, bool) {
	clock, ok := due.Get()
	if !ok {
		return Reminder{}, false
	}
	r := Reminder{Recipient: ownerID, Title: title, Body: desc}
	switch s := schedule.(type) {
	case model.EveryDay:
		at, err := p.Today().At(clock, p.loc)
		if err != nil {
			return Reminder{}, false
		}
		r.FireAt, r.Daily = at, true
	case model.OnDay:
		at, err := s.Day.At(clock, p.loc)
		if err != nil || !at.After(p.now()) {
			return Reminder{}, false
		}
		r.FireAt = at
	default:
		return Reminder{}, false
	}
	return r, true
}

func (p *Planner) bind(ctx context.Context, ownerID string, title, desc string, schedule model.Schedule, due model.Optional[model.ClockTime]) model.Optional[model.NotificationHandle] {
	none := model.None[model.NotificationHandle]()
	if p.binder == nil {
		return none
	}
	r, ok := p.reminderFor(ownerID, title, desc, schedule, due)
	if !ok {
		return none
	}
	h, err := p.binder.Bind(ctx, r)
	if err != nil {
		p.log.Printf("[warn] reminder for %q not scheduled: %v", title, err)
		return none
	}
	return h
}

func (p *Planner) cancel(ctx context.Context, h model.NotificationHandle) {
	if p.binder == nil {
		return
	}
	if err := p.binder.Cancel(ctx, h); err != nil {
		p.log.Printf("[warn] cancel reminder %s: %v", h, err)
	}
}

func (p *Planner) owned(ctx context.Context, ownerID string, id model.TaskID) (model.Task, error) {
	task, err := p.tasks.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, err
	}
	if task.OwnerID != ownerID {
		return model.Task{}, fmt.Errorf("%w: task %s", model.ErrNotFound, id)
	}
	return task, nil
}
