package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"daily-todo/internal/model"
)

// Reminder is what a user is told when a task comes due.
type Reminder struct {
	// Recipient is the owner id the reminder is delivered to.
	Recipient string
	Title     string
	Body      string
	// FireAt is the one-shot instant. For daily reminders only its clock
	// time in the binder's location matters.
	FireAt time.Time
	Daily  bool
}

// NotificationScheduler is the device or process facility that actually fires
// reminders.
type NotificationScheduler interface {
	ScheduleDaily(clock model.ClockTime, r Reminder) (model.NotificationHandle, error)
	ScheduleOnce(at time.Time, r Reminder) (model.NotificationHandle, error)
	Cancel(handle model.NotificationHandle) error
}

// PermissionChecker asks whether the user lets us post notifications.
type PermissionChecker interface {
	NotificationsPermitted(ctx context.Context) (bool, error)
}

// PermissionFunc adapts a function to PermissionChecker.
type PermissionFunc func(ctx context.Context) (bool, error)

func (f PermissionFunc) NotificationsPermitted(ctx context.Context) (bool, error) { return f(ctx) }

var (
	AllowNotifications = PermissionFunc(func(context.Context) (bool, error) { return true, nil })
	DenyNotifications  = PermissionFunc(func(context.Context) (bool, error) { return false, nil })
)

// NotificationBinder turns task reminders into scheduled notifications.
type NotificationBinder struct {
	scheduler NotificationScheduler
	permitted bool
	loc       *time.Location
	log       *log.Logger
}

// NewNotificationBinder asks for permission once. A checker error counts as
// a denial.
func NewNotificationBinder(ctx context.Context, scheduler NotificationScheduler, perm PermissionChecker, loc *time.Location, logger *log.Logger) *NotificationBinder {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	b := &NotificationBinder{scheduler: scheduler, loc: loc, log: logger}
	if perm == nil || scheduler == nil {
		return b
	}
	ok, err := perm.NotificationsPermitted(ctx)
	if err != nil {
		logger.Printf("[warn] notification permission check failed: %v", err)
		return b
	}
	b.permitted = ok
	if !ok {
		logger.Printf("[info] notifications not permitted, reminders disabled")
	}
	return b
}

func (b *NotificationBinder) Permitted() bool { return b.permitted }

// Bind schedules r and returns its handle. Without permission it returns no
// handle and no error.
func (b *NotificationBinder) Bind(ctx context.Context, r Reminder) (model.Optional[model.NotificationHandle], error) {
	none := model.None[model.NotificationHandle]()
	if !b.permitted {
		return none, nil
	}
	if err := ctx.Err(); err != nil {
		return none, fmt.Errorf("%w: %w", model.ErrScheduling, err)
	}

	var (
		handle model.NotificationHandle
		err    error
	)
	if r.Daily {
		handle, err = b.scheduler.ScheduleDaily(model.ClockOf(r.FireAt.In(b.loc)), r)
	} else {
		handle, err = b.scheduler.ScheduleOnce(r.FireAt, r)
	}
	if err != nil {
		if !errors.Is(err, model.ErrScheduling) {
			err = fmt.Errorf("%w: %w", model.ErrScheduling, err)
		}
		return none, err
	}
	return model.Some(handle), nil
}

// Cancel drops a scheduled reminder. Cancelling twice is harmless.
func (b *NotificationBinder) Cancel(ctx context.Context, handle model.NotificationHandle) error {
	if handle == "" || b.scheduler == nil {
		return nil
	}
	if err := b.scheduler.Cancel(handle); err != nil {
		return fmt.Errorf("%w: cancel %s: %w", model.ErrScheduling, handle, err)
	}
	return nil
}
