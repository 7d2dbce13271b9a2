package bridge

import (
	"sync"

	"github.com/dyluth/koorda/pkg/koordinator"
)

// Queue is an unbounded FIFO of feed events for one conversation.
// Push never blocks; a waiter is woken through a one-slot notify channel.
type Queue struct {
	mu     sync.Mutex
	items  []koordinator.InboundEvent
	notify chan struct{}
}

func newQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) push(e koordinator.InboundEvent) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	q.signal()
}

func (q *Queue) pop() (koordinator.InboundEvent, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return koordinator.InboundEvent{}, false
	}
	e := q.items[0]
	q.items[0] = koordinator.InboundEvent{}
	q.items = q.items[1:]
	remaining := len(q.items)
	q.mu.Unlock()

	// pass the wake-up on so a second waiter sees the leftover
	if remaining > 0 {
		q.signal()
	}
	return e, true
}

func (q *Queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
