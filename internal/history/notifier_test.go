package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifierDeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier()

	ch1, cancel1 := n.Subscribe()
	defer cancel1()
	ch2, cancel2 := n.Subscribe()
	defer cancel2()

	n.Announce()

	for _, ch := range []<-chan struct{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber missed the tick")
		}
	}
}

func TestNotifierAnnounceDoesNotBlockOnSlowSubscriber(t *testing.T) {
	n := NewNotifier()

	_, cancel := n.Subscribe() // never drained
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			n.Announce()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Announce blocked on a full subscriber channel")
	}
}

func TestNotifierCancelStopsDelivery(t *testing.T) {
	n := NewNotifier()

	ch, cancel := n.Subscribe()
	cancel()

	// Channel is closed on cancel; a receive must not hang and must report
	// closed rather than a tick.
	_, open := <-ch
	assert.False(t, open)

	// Announcing after cancel must not panic on the removed subscriber.
	n.Announce()

	// Double cancel is a no-op.
	cancel()
}
