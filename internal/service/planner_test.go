package service

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"daily-todo/internal/model"
)

func TestAddTaskBindsReminder(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()

	in := oneOffInput("Dentist", "2024-06-01")
	in.DueTime = clockAt(18, 0)
	task, err := f.planner.AddTask(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	h, ok := task.Notification.Get()
	if !ok {
		t.Fatal("expected a reminder handle")
	}
	if want := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC); !f.sched.once[h].Equal(want) {
		t.Fatalf("expected one-shot at %s, got %s", want, f.sched.once[h])
	}

	stored, err := f.tasks.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got, _ := stored.Notification.Get(); got != h {
		t.Fatalf("expected stored handle %q, got %#v", h, stored.Notification)
	}
}

func TestAddTaskReminderVariants(t *testing.T) {
	tests := []struct {
		name      string
		perm      PermissionChecker
		fail      error
		in        func() model.TaskInput
		wantDaily int
		wantOnce  int
	}{
		{
			name: "daily",
			perm: AllowNotifications,
			in: func() model.TaskInput {
				in := dailyInput("Stretch")
				in.DueTime = clockAt(7, 0)
				return in
			},
			wantDaily: 1,
		},
		{
			name: "due instant already passed",
			perm: AllowNotifications,
			in: func() model.TaskInput {
				in := oneOffInput("Breakfast", "2024-06-01")
				in.DueTime = clockAt(8, 0)
				return in
			},
		},
		{
			name: "no due time",
			perm: AllowNotifications,
			in:   func() model.TaskInput { return oneOffInput("Buy milk", "2024-06-02") },
		},
		{
			name: "permission denied",
			perm: DenyNotifications,
			in: func() model.TaskInput {
				in := oneOffInput("Dentist", "2024-06-02")
				in.DueTime = clockAt(10, 0)
				return in
			},
		},
		{
			name: "scheduler failure",
			perm: AllowNotifications,
			fail: errors.New("alarm service unavailable"),
			in: func() model.TaskInput {
				in := oneOffInput("Dentist", "2024-06-02")
				in.DueTime = clockAt(10, 0)
				return in
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.perm)
			f.sched.fail = tt.fail

			task, err := f.planner.AddTask(t.Context(), "owner-1", tt.in())
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			if len(f.sched.daily) != tt.wantDaily || len(f.sched.once) != tt.wantOnce {
				t.Fatalf("got %d daily / %d once reminders, want %d / %d",
					len(f.sched.daily), len(f.sched.once), tt.wantDaily, tt.wantOnce)
			}
			if task.Notification.IsSet() != (tt.wantDaily+tt.wantOnce > 0) {
				t.Fatalf("unexpected handle %#v", task.Notification)
			}
		})
	}
}

func TestAddTaskValidationSchedulesNothing(t *testing.T) {
	f := newFixture(t, AllowNotifications)

	in := oneOffInput("  ", "2024-06-02")
	in.DueTime = clockAt(10, 0)
	if _, err := f.planner.AddTask(t.Context(), "owner-1", in); !errors.Is(err, model.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if f.sched.active() != 0 {
		t.Fatal("reminder scheduled for rejected input")
	}
}

func TestEditTaskRebindsReminder(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()

	in := dailyInput("Stretch")
	in.DueTime = clockAt(7, 0)
	task, err := f.planner.AddTask(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	old, _ := task.Notification.Get()

	// Priority does not show up in a reminder.
	same, err := f.planner.EditTask(ctx, "owner-1", task.ID, model.TaskPatch{Priority: model.Some(model.PriorityHigh)})
	if err != nil {
		t.Fatalf("edit priority: %v", err)
	}
	if h, _ := same.Notification.Get(); h != old || f.sched.wasCancelled(old) {
		t.Fatalf("priority change touched the reminder: %#v", same.Notification)
	}

	moved, err := f.planner.EditTask(ctx, "owner-1", task.ID, model.TaskPatch{DueTime: clockAt(6, 45)})
	if err != nil {
		t.Fatalf("edit time: %v", err)
	}
	fresh, ok := moved.Notification.Get()
	if !ok || fresh == old {
		t.Fatalf("expected a new handle, got %#v", moved.Notification)
	}
	if !f.sched.wasCancelled(old) {
		t.Fatal("old reminder not cancelled")
	}
	if clock := f.sched.daily[fresh]; clock.String() != "06:45" {
		t.Fatalf("expected new trigger at 06:45, got %s", clock)
	}

	cleared, err := f.planner.EditTask(ctx, "owner-1", task.ID, model.TaskPatch{ClearDueTime: true})
	if err != nil {
		t.Fatalf("clear time: %v", err)
	}
	if cleared.Notification.IsSet() || !f.sched.wasCancelled(fresh) {
		t.Fatalf("expected reminder dropped, got %#v", cleared.Notification)
	}
	stored, err := f.tasks.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Notification.IsSet() || stored.DueTime.IsSet() {
		t.Fatalf("unexpected stored task %#v", stored)
	}
}

func TestEditTaskOwnership(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	task, err := f.planner.AddTask(t.Context(), "owner-1", dailyInput("Stretch"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.planner.EditTask(t.Context(), "owner-2", task.ID, model.TaskPatch{Title: model.Some("mine")}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := f.planner.RemoveTask(t.Context(), "owner-2", task.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveTaskCascades(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()

	in := dailyInput("Stretch")
	in.DueTime = clockAt(7, 0)
	task, err := f.planner.AddTask(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, day := range []model.Day{"2024-06-01", "2024-06-02", "2024-06-03"} {
		if _, err := f.planner.ToggleTask(ctx, "owner-1", task.ID, day); err != nil {
			t.Fatalf("toggle %s: %v", day, err)
		}
	}

	if err := f.planner.RemoveTask(ctx, "owner-1", task.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.tasks.GetTask(ctx, task.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected task gone, got %v", err)
	}
	if n := f.completionCount(t, task.ID); n != 0 {
		t.Fatalf("expected no completions left, got %d", n)
	}
	if h, _ := task.Notification.Get(); f.sched.cancelCount(h) != 1 {
		t.Fatalf("expected the reminder cancelled once, got %d", f.sched.cancelCount(h))
	}
	if err := f.planner.RemoveTask(ctx, "owner-1", task.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second remove, got %v", err)
	}
}

func TestRemoveTaskWhenCancelFails(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()
	var logs bytes.Buffer
	planner := NewPlanner(f.tasks, f.ledger, f.binder, time.UTC, log.New(&logs, "", 0))
	planner.now = func() time.Time { return testNow }

	in := dailyInput("Stretch")
	in.DueTime = clockAt(7, 0)
	task, err := planner.AddTask(ctx, "owner-1", in)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := planner.ToggleTask(ctx, "owner-1", task.ID, "2024-06-01"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	f.sched.cancelFail = errors.New("scheduler unavailable")

	if err := planner.RemoveTask(ctx, "owner-1", task.ID); err != nil {
		t.Fatalf("remove should not fail on cancel error: %v", err)
	}
	if _, err := f.tasks.GetTask(ctx, task.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected task gone, got %v", err)
	}
	if n := f.completionCount(t, task.ID); n != 0 {
		t.Fatalf("expected no completions left, got %d", n)
	}
	h, _ := task.Notification.Get()
	if n := f.sched.cancelCount(h); n != 1 {
		t.Fatalf("expected one cancel attempt, got %d", n)
	}
	if !strings.Contains(logs.String(), "[warn] cancel reminder "+string(h)) {
		t.Fatalf("expected a warning about the failed cancel, got %q", logs.String())
	}
}

func TestFiringsOfTasksChangedElsewhereAreDropped(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()

	sched := NewSchedulerService(time.UTC, 4, quietLogger())
	binder := NewNotificationBinder(ctx, sched, AllowNotifications, time.UTC, quietLogger())
	serving := NewPlanner(f.tasks, f.ledger, binder, time.UTC, quietLogger())
	serving.now = func() time.Time { return testNow }
	cli := f.cliPlanner(t)

	add := func(title string) model.Task {
		t.Helper()
		in := dailyInput(title)
		in.DueTime = clockAt(7, 0)
		task, err := serving.AddTask(ctx, "owner-1", in)
		if err != nil {
			t.Fatalf("add %q: %v", title, err)
		}
		if !task.Notification.IsSet() {
			t.Fatalf("expected a reminder for %q", title)
		}
		return task
	}
	removed, rebound, untouched := add("Stretch"), add("Water plants"), add("Read")

	if err := cli.RemoveTask(ctx, "owner-1", removed.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := cli.EditTask(ctx, "owner-1", rebound.ID, model.TaskPatch{DueTime: clockAt(8, 30)}); err != nil {
		t.Fatalf("edit: %v", err)
	}

	tests := []struct {
		name string
		task model.Task
		want bool
	}{
		{"deleted task", removed, false},
		{"edited task", rebound, false},
		{"untouched task", untouched, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := tt.task.Notification.Get()
			firing := Firing{Handle: h, Reminder: Reminder{Recipient: "owner-1", Title: tt.task.Title, Daily: true}, FiredAt: testNow}
			ok, err := serving.ConfirmFiring(ctx, firing)
			if err != nil {
				t.Fatalf("confirm: %v", err)
			}
			if ok != tt.want {
				t.Fatalf("expected current=%t, got %t", tt.want, ok)
			}
			if sched.scheduled(h) != tt.want {
				t.Fatalf("expected scheduled=%t after the firing, got %t", tt.want, sched.scheduled(h))
			}
		})
	}
}

func TestRestoreReminders(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()

	stretch := dailyInput("Stretch")
	stretch.DueTime = clockAt(7, 0)
	dentist := oneOffInput("Dentist", "2024-06-02")
	dentist.DueTime = clockAt(10, 0)
	for _, in := range []model.TaskInput{stretch, dentist, oneOffInput("Buy milk", "2024-06-01")} {
		if _, err := f.planner.AddTask(ctx, "owner-1", in); err != nil {
			t.Fatalf("add %q: %v", in.Title, err)
		}
	}

	// A new process: fresh scheduler, a day later.
	restarted := newFakeScheduler()
	restarted.seq = 100
	binder := NewNotificationBinder(ctx, restarted, AllowNotifications, time.UTC, quietLogger())
	planner := NewPlanner(f.tasks, f.ledger, binder, time.UTC, quietLogger())
	planner.now = func() time.Time { return testNow.Add(36 * time.Hour) }

	n, err := planner.RestoreReminders(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 1 || len(restarted.daily) != 1 || len(restarted.once) != 0 {
		t.Fatalf("expected only the daily reminder restored, got n=%d daily=%d once=%d", n, len(restarted.daily), len(restarted.once))
	}

	candidates, err := f.tasks.ListReminderCandidates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, task := range candidates {
		h, ok := task.Notification.Get()
		switch task.Title {
		case "Stretch":
			if _, live := restarted.daily[h]; !ok || !live {
				t.Fatalf("stretch not bound to the new scheduler: %#v", task.Notification)
			}
		case "Dentist":
			if ok {
				t.Fatalf("past reminder kept stale handle %q", h)
			}
		}
	}
}

func TestDaySummary(t *testing.T) {
	f := newFixture(t, AllowNotifications)
	ctx := t.Context()

	milk, err := f.planner.AddTask(ctx, "owner-1", oneOffInput("Buy milk", "2024-06-01"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.planner.AddTask(ctx, "owner-1", dailyInput("Stretch")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.planner.ToggleTask(ctx, "owner-1", milk.ID, "2024-06-01"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	today, err := f.planner.DaySummary(ctx, "owner-1", f.planner.Today(), SortDefault)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if today.Day != "2024-06-01" || len(today.Tasks) != 2 || today.Pending != 1 || !today.Completed[milk.ID] {
		t.Fatalf("unexpected summary: %#v", today)
	}

	tomorrow, err := f.planner.DaySummary(ctx, "owner-1", "2024-06-02", SortDefault)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(tomorrow.Tasks) != 1 || tomorrow.Pending != 1 {
		t.Fatalf("unexpected summary for tomorrow: %#v", tomorrow)
	}
}
