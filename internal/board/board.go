// Package board keeps one user's view of a single day: the tasks in scope,
// which of them are done, and how many are still pending. Switching the day
// drops the old subscriptions before new ones start, so a late answer for
// the previous day can never land on the new one.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"daily-todo/internal/live"
	"daily-todo/internal/model"
	"daily-todo/internal/service"
)

var ErrClosed = errors.New("board closed")

// Source opens the live queries a board is built from.
type Source interface {
	WatchTasksForDay(ctx context.Context, ownerID string, day model.Day) *live.Stream[[]model.Task]
	WatchStatusesForDay(ctx context.Context, ownerID string, day model.Day) *live.Stream[[]model.Completion]
}

// State is what a front end renders.
type State struct {
	Owner string
	Day   model.Day
	// Tasks is sorted by Sort.
	Tasks       []model.Task
	Completed   map[model.TaskID]bool
	Pending     int
	Sort        service.SortOption
	Online      bool
	Err         error
	TasksReady  bool
	LedgerReady bool
	// Generation changes with every day selection.
	Generation uint64
}

// Ready reports whether both queries for the day have answered.
func (s State) Ready() bool { return s.TasksReady && s.LedgerReady }

// Task returns the n-th task as listed, counting from 1.
func (s State) Task(n int) (model.Task, bool) {
	if n < 1 || n > len(s.Tasks) {
		return model.Task{}, false
	}
	return s.Tasks[n-1], true
}

type Board struct {
	owner string
	src   Source
	loc   *time.Location

	// selectMu serializes SelectDay and Close.
	selectMu sync.Mutex

	mu          sync.Mutex
	gen         uint64
	day         model.Day
	tasks       []model.Task
	entries     []model.Completion
	tasksReady  bool
	ledgerReady bool
	sortBy      service.SortOption
	online      bool
	err         error
	cancel      context.CancelFunc
	pumpDone    chan struct{}
	closed      bool
	out         chan State
}

func New(owner string, src Source, loc *time.Location) *Board {
	if loc == nil {
		loc = time.Local
	}
	return &Board{
		owner:  owner,
		src:    src,
		loc:    loc,
		sortBy: service.SortDefault,
		online: true,
		out:    make(chan State, 1),
	}
}

// Updates delivers the latest state after every change. A reader that falls
// behind only sees the newest state. The channel closes with the board.
func (b *Board) Updates() <-chan State { return b.out }

// Today is the current day in the board's location.
func (b *Board) Today() model.Day {
	return model.DayOf(time.Now(), b.loc)
}

// SelectDay points the board at day. Data for the previous day is dropped
// right away and its subscriptions are stopped before the new ones open.
func (b *Board) SelectDay(day model.Day) error {
	if !day.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidDay, string(day))
	}
	b.selectMu.Lock()
	defer b.selectMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.gen++
	gen := b.gen
	b.day = day
	b.tasks, b.entries = nil, nil
	b.tasksReady, b.ledgerReady = false, false
	b.err = nil
	cancel, done := b.cancel, b.pumpDone
	b.cancel, b.pumpDone = nil, nil
	b.emitLocked()
	b.mu.Unlock()

	stopPump(cancel, done)

	ctx, cancel := context.WithCancel(context.Background())
	tasks := b.src.WatchTasksForDay(ctx, b.owner, day)
	entries := b.src.WatchStatusesForDay(ctx, b.owner, day)
	done = make(chan struct{})

	b.mu.Lock()
	b.cancel, b.pumpDone = cancel, done
	b.mu.Unlock()

	go b.pump(ctx, gen, tasks, entries, done)
	return nil
}

// Shift moves the selection n days from the current one.
func (b *Board) Shift(n int) (model.Day, error) {
	b.mu.Lock()
	day := b.day
	b.mu.Unlock()
	if day == "" {
		day = b.Today()
	}
	next := day.AddDays(n)
	return next, b.SelectDay(next)
}

func (b *Board) SetSort(opt service.SortOption) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sortBy == opt {
		return
	}
	b.sortBy = opt
	b.emitLocked()
}

func (b *Board) SetOnline(online bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.online == online {
		return
	}
	b.online = online
	b.emitLocked()
}

// State returns the current state without waiting for an update.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Close stops the subscriptions and closes Updates. It is safe to call twice.
func (b *Board) Close() {
	b.selectMu.Lock()
	defer b.selectMu.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.gen++
	cancel, done := b.cancel, b.pumpDone
	b.cancel, b.pumpDone = nil, nil
	b.mu.Unlock()

	stopPump(cancel, done)

	b.mu.Lock()
	close(b.out)
	b.mu.Unlock()
}

func stopPump(cancel context.CancelFunc, done chan struct{}) {
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *Board) pump(ctx context.Context, gen uint64, tasks *live.Stream[[]model.Task], entries *live.Stream[[]model.Completion], done chan struct{}) {
	defer close(done)
	defer entries.Stop()
	defer tasks.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-tasks.C():
			if !ok {
				return
			}
			b.apply(gen, func() {
				if snap.Err != nil {
					b.err = snap.Err
					return
				}
				b.tasks, b.tasksReady, b.err = snap.Value, true, nil
			})
		case snap, ok := <-entries.C():
			if !ok {
				return
			}
			b.apply(gen, func() {
				if snap.Err != nil {
					b.err = snap.Err
					return
				}
				b.entries, b.ledgerReady, b.err = snap.Value, true, nil
			})
		}
	}
}

// apply runs update unless the selection moved on since gen was issued.
func (b *Board) apply(gen uint64, update func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || gen != b.gen {
		return
	}
	update()
	b.emitLocked()
}

func (b *Board) stateLocked() State {
	return State{
		Owner:       b.owner,
		Day:         b.day,
		Tasks:       service.SortTasks(b.tasks, b.sortBy),
		Completed:   service.CompletedSet(b.entries),
		Pending:     service.PendingCount(b.tasks, b.entries),
		Sort:        b.sortBy,
		Online:      b.online,
		Err:         b.err,
		TasksReady:  b.tasksReady,
		LedgerReady: b.ledgerReady,
		Generation:  b.gen,
	}
}

func (b *Board) emitLocked() {
	if b.closed {
		return
	}
	st := b.stateLocked()
	select {
	case <-b.out:
	default:
	}
	b.out <- st
}
