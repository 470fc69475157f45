package reachability

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// IntervalScheduler runs a job on a fixed interval.
type IntervalScheduler interface {
	ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error)
}

// Monitor polls a probe and remembers the last answer. Until the first poll
// the backend is assumed reachable.
type Monitor struct {
	probe    Probe
	interval time.Duration
	log      *log.Logger

	mu       sync.Mutex
	online   bool
	onChange []func(online bool)
	polling  sync.Mutex
}

func NewMonitor(probe Probe, interval time.Duration, logger *log.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{probe: probe, interval: interval, log: logger, online: true}
}

// OnChange registers fn to be called with the new state on every transition.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Start polls once right away and then on every interval.
func (m *Monitor) Start(ctx context.Context, sched IntervalScheduler) error {
	m.Poll(ctx)
	_, err := sched.ScheduleInterval(m.interval, func() {
		if ctx.Err() != nil {
			return
		}
		m.Poll(ctx)
	})
	return err
}

// Poll runs the probe once and reports the resulting state. Overlapping
// polls are skipped.
func (m *Monitor) Poll(ctx context.Context) bool {
	if !m.polling.TryLock() {
		return m.Online()
	}
	defer m.polling.Unlock()

	err := m.probe.Check(ctx)
	online := err == nil

	m.mu.Lock()
	changed := online != m.online
	m.online = online
	hooks := append([]func(bool){}, m.onChange...)
	m.mu.Unlock()

	if !changed {
		return online
	}
	if online {
		m.log.Printf("[info] backend reachable again")
	} else {
		m.log.Printf("[warn] backend unreachable: %v", err)
	}
	for _, fn := range hooks {
		fn(online)
	}
	return online
}
