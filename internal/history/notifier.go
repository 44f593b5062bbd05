package history

import "sync"

// Notifier broadcasts "history changed" ticks to subscribers. Ticks carry no
// payload; receivers re-read the ledger instead. Announce never blocks: a
// subscriber that already has a pending tick is skipped, it will re-read
// everything on the tick it already holds.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan struct{})}
}

// Subscribe registers a listener. The returned cancel func must be called
// when the listener goes away, otherwise the channel leaks across the
// notifier's lifetime.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if _, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Announce delivers one tick to every live subscriber.
func (n *Notifier) Announce() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
