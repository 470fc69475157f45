package service

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"daily-todo/internal/model"
)

// Firing is a reminder whose trigger went off.
type Firing struct {
	Handle model.NotificationHandle
	Reminder
	FiredAt time.Time
}

// SchedulerService wraps cron-based jobs. Reminders are keyed by handles of
// our own; cron entry ids restart at 1 in every process and are never handed out.
type SchedulerService struct {
	cron *cron.Cron
	loc  *time.Location
	log  *log.Logger
	now  func() time.Time

	mu      sync.Mutex
	entries map[model.NotificationHandle]cron.EntryID

	out     chan Firing
	dropped atomic.Uint64
}

func NewSchedulerService(loc *time.Location, buffer int, logger *log.Logger) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SchedulerService{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		loc:     loc,
		log:     logger,
		now:     time.Now,
		entries: make(map[model.NotificationHandle]cron.EntryID),
		out:     make(chan Firing, buffer),
	}
}

// C delivers fired reminders. Firings are dropped when nobody keeps up.
func (s *SchedulerService) C() <-chan Firing { return s.out }

// Dropped is the number of firings lost to a full channel.
func (s *SchedulerService) Dropped() uint64 { return s.dropped.Load() }

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduleDaily registers a reminder that fires every day at clock.
func (s *SchedulerService) ScheduleDaily(clock model.ClockTime, r Reminder) (model.NotificationHandle, error) {
	sched, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).
		Parse(buildDailySpec(clock))
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrScheduling, err)
	}
	return s.add(sched, r, false), nil
}

// ScheduleOnce registers a reminder that fires once at the given instant.
func (s *SchedulerService) ScheduleOnce(at time.Time, r Reminder) (model.NotificationHandle, error) {
	if !at.After(s.now()) {
		return "", fmt.Errorf("%w: %s is not in the future", model.ErrScheduling, at.In(s.loc).Format(time.RFC3339))
	}
	return s.add(onceSchedule{at: at}, r, true), nil
}

// Cancel removes the reminder behind handle. Unknown handles are ignored.
func (s *SchedulerService) Cancel(handle model.NotificationHandle) error {
	s.mu.Lock()
	id, ok := s.entries[handle]
	delete(s.entries, handle)
	s.mu.Unlock()
	if ok {
		s.cron.Remove(id)
	}
	return nil
}

// ScheduleInterval registers a periodic job every given duration.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return s.cron.Schedule(cron.Every(interval), cron.FuncJob(job)), nil
}

func (s *SchedulerService) add(sched cron.Schedule, r Reminder, once bool) model.NotificationHandle {
	handle := model.NotificationHandle(uuid.NewString())
	job := cron.FuncJob(func() {
		if once {
			_ = s.Cancel(handle)
		}
		s.emit(Firing{Handle: handle, Reminder: r, FiredAt: s.now()})
	})

	// Hold the lock across registration so a once-job firing right away finds
	// its entry.
	s.mu.Lock()
	s.entries[handle] = s.cron.Schedule(sched, job)
	s.mu.Unlock()
	return handle
}

func (s *SchedulerService) emit(f Firing) {
	select {
	case s.out <- f:
	default:
		n := s.dropped.Add(1)
		s.log.Printf("[warn] reminder %s dropped, consumer is behind (%d dropped)", f.Handle, n)
	}
}

// onceSchedule fires at a single instant and never again.
type onceSchedule struct {
	at time.Time
}

func (o onceSchedule) Next(t time.Time) time.Time {
	if t.Before(o.at) {
		return o.at
	}
	return time.Time{}
}

func buildDailySpec(clock model.ClockTime) string {
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", clock.Minute, clock.Hour)
}
