package event

import "sync"

// Listener receives change notifications. Listeners run synchronously on
// the mutating goroutine and must not block.
type Listener func(Change)

// Notifier fans change notifications out to registered listeners. It
// replaces polling for callers such as admin list views.
type Notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// OnChange registers a listener for all subsequent changes. The returned
// function unregisters it.
func (n *Notifier) OnChange(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.listeners = append(n.listeners, l)
	idx := len(n.listeners) - 1

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.listeners[idx] = nil
	}
}

// Notify delivers a change to every registered listener.
func (n *Notifier) Notify(c Change) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, l := range n.listeners {
		if l != nil {
			l(c)
		}
	}
}
