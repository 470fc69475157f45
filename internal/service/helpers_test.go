package service

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
	"daily-todo/internal/repository"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

type fakeScheduler struct {
	mu         sync.Mutex
	seq        int
	daily      map[model.NotificationHandle]model.ClockTime
	once       map[model.NotificationHandle]time.Time
	cancelled  []model.NotificationHandle
	fail       error
	cancelFail error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		daily: make(map[model.NotificationHandle]model.ClockTime),
		once:  make(map[model.NotificationHandle]time.Time),
	}
}

func (f *fakeScheduler) nextHandle() model.NotificationHandle {
	f.seq++
	return model.NotificationHandle(fmt.Sprintf("h%d", f.seq))
}

func (f *fakeScheduler) ScheduleDaily(clock model.ClockTime, _ Reminder) (model.NotificationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	h := f.nextHandle()
	f.daily[h] = clock
	return h, nil
}

func (f *fakeScheduler) ScheduleOnce(at time.Time, _ Reminder) (model.NotificationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	h := f.nextHandle()
	f.once[h] = at
	return h, nil
}

func (f *fakeScheduler) Cancel(h model.NotificationHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, h)
	if f.cancelFail != nil {
		return f.cancelFail
	}
	delete(f.daily, h)
	delete(f.once, h)
	return nil
}

func (f *fakeScheduler) cancelCount(h model.NotificationHandle) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.cancelled {
		if c == h {
			n++
		}
	}
	return n
}

func (f *fakeScheduler) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.daily) + len(f.once)
}

func (f *fakeScheduler) wasCancelled(h model.NotificationHandle) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cancelled {
		if c == h {
			return true
		}
	}
	return false
}

type fixture struct {
	db          *gorm.DB
	dbPath      string
	hub         *live.Hub
	tasks       *TaskService
	ledger      *LedgerService
	completions *repository.CompletionRepository
	sched       *fakeScheduler
	binder      *NotificationBinder
	planner     *Planner
}

func newFixture(t *testing.T, perm PermissionChecker) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.db")
	db := openTestDB(t, path)

	hub := live.NewHub()
	taskRepo := repository.NewTaskRepository(db, hub)
	completionRepo := repository.NewCompletionRepository(db, hub)

	f := &fixture{
		db:          db,
		dbPath:      path,
		hub:         hub,
		tasks:       NewTaskService(taskRepo, hub),
		completions: completionRepo,
		sched:       newFakeScheduler(),
	}
	f.ledger = NewLedgerService(completionRepo, taskRepo, hub)
	f.binder = NewNotificationBinder(t.Context(), f.sched, perm, time.UTC, quietLogger())
	f.planner = NewPlanner(f.tasks, f.ledger, f.binder, time.UTC, quietLogger())
	f.planner.now = func() time.Time { return testNow }
	return f
}

func openTestDB(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := repository.NewDB(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// completionCount counts every ledger entry of a task, whatever the day.
func (f *fixture) completionCount(t *testing.T, id model.TaskID) int64 {
	t.Helper()
	var n int64
	if err := f.db.Table("completions").Where("task_id = ?", string(id)).Count(&n).Error; err != nil {
		t.Fatalf("count completions: %v", err)
	}
	return n
}

// cliPlanner opens the fixture's database a second time, with no reminder
// scheduling, the way a one-shot command does.
func (f *fixture) cliPlanner(t *testing.T) *Planner {
	t.Helper()
	db := openTestDB(t, f.dbPath)
	hub := live.NewHub()
	taskRepo := repository.NewTaskRepository(db, hub)
	ledger := NewLedgerService(repository.NewCompletionRepository(db, hub), taskRepo, hub)
	p := NewPlanner(NewTaskService(taskRepo, hub), ledger, nil, time.UTC, quietLogger())
	p.now = func() time.Time { return testNow }
	return p
}

func oneOffInput(title string, day model.Day) model.TaskInput {
	return model.TaskInput{Title: title, Schedule: model.OnDay{Day: day}}
}

func dailyInput(title string) model.TaskInput {
	return model.TaskInput{Title: title, Schedule: model.EveryDay{}}
}

func clockAt(hour, minute int) model.Optional[model.ClockTime] {
	return model.Some(model.ClockTime{Hour: hour, Minute: minute})
}

func nextSnapshot[T any](t *testing.T, s *live.Stream[T]) live.Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-s.C():
		if !ok {
			t.Fatal("stream closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return live.Snapshot[T]{}
}
