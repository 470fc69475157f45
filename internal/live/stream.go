package live

import (
	"context"
	"sync"
)

// Snapshot is one result of a live query. Version increases strictly with
// every snapshot a stream emits.
type Snapshot[T any] struct {
	Version uint64
	Value   T
	Err     error
}

// QueryFunc runs the query behind a stream.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// Stream delivers snapshots of a query until it is stopped. At most one
// undelivered snapshot is held; a newer one replaces it, so a slow reader
// skips intermediate results but never sees them out of order.
type Stream[T any] struct {
	out      chan Snapshot[T]
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Watch starts a stream over query, re-running it whenever topic is published.
// The first snapshot is delivered without waiting for a change.
func Watch[T any](ctx context.Context, hub *Hub, topic string, query QueryFunc[T]) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		out:    make(chan Snapshot[T], 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	// Register before the first query so a write racing with it is not lost.
	w := hub.watch(topic)
	go s.loop(ctx, hub, topic, w, query)
	return s
}

// C returns the snapshot channel. It is closed once the stream stops.
func (s *Stream[T]) C() <-chan Snapshot[T] {
	return s.out
}

// Stop cancels the stream and waits for its goroutine to exit. No snapshot
// is sent after Stop returns. Safe to call more than once.
func (s *Stream[T]) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Done is closed when the stream has stopped.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Stream[T]) loop(ctx context.Context, hub *Hub, topic string, w *watcher, query QueryFunc[T]) {
	defer close(s.done)
	defer close(s.out)
	defer hub.unwatch(topic, w)

	var version uint64
	for {
		value, err := query(ctx)
		if ctx.Err() != nil {
			return
		}
		version++
		s.deliver(Snapshot[T]{Version: version, Value: value, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-w.signal:
		}
	}
}

// deliver hands snap to the reader, replacing an unread older snapshot.
// The loop goroutine is the only sender, so this always terminates.
func (s *Stream[T]) deliver(snap Snapshot[T]) {
	for {
		select {
		case s.out <- snap:
			return
		default:
		}
		select {
		case <-s.out:
		default:
		}
	}
}
