// Package live turns one-shot store queries into continuously updated
// snapshot streams. Writers Publish a topic after each committed change;
// streams watching that topic re-run their query and deliver the new result.
package live

import "sync"

// Publisher is implemented by Hub. Stores depend on this to announce writes.
type Publisher interface {
	Publish(topic string)
}

// Hub fans change signals out to the watchers of a topic.
type Hub struct {
	mu       sync.Mutex
	watchers map[string]map[*watcher]struct{}
}

type watcher struct {
	signal chan struct{}
}

func NewHub() *Hub {
	return &Hub{watchers: make(map[string]map[*watcher]struct{})}
}

// Publish wakes every watcher of topic. Signals coalesce: a watcher that has
// not yet consumed the previous signal is not signalled twice.
func (h *Hub) Publish(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for w := range h.watchers[topic] {
		select {
		case w.signal <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) watch(topic string) *watcher {
	w := &watcher{signal: make(chan struct{}, 1)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[topic]
	if !ok {
		set = make(map[*watcher]struct{})
		h.watchers[topic] = set
	}
	set[w] = struct{}{}
	return w
}

func (h *Hub) unwatch(topic string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watchers[topic]
	delete(set, w)
	if len(set) == 0 {
		delete(h.watchers, topic)
	}
}

func TasksTopic(ownerID string) string {
	return "tasks/" + ownerID
}

func CompletionsTopic(ownerID string) string {
	return "completions/" + ownerID
}
