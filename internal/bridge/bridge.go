// Package bridge makes the Koordinator's asynchronous event feed look like a
// synchronous reply. A Poller drains the feed and delivers each event to the
// queue of the conversation it is addressed to; a request handler waits on
// that queue with a bounded timeout.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dyluth/koorda/internal/telemetry"
	"github.com/dyluth/koorda/pkg/koordinator"
	"github.com/rs/zerolog"
)

// ErrTimeout is returned by Await when no event arrived in time.
var ErrTimeout = errors.New("timed out waiting for backend reply")

// Await outcomes recorded in metrics.
const (
	outcomeReply     = "reply"
	outcomeTimeout   = "timeout"
	outcomeCancelled = "cancelled"
)

// Bridge owns the conversation id -> queue registry. The registry lock is
// only held for lookup-or-create and release; queue operations use the
// queue's own lock.
type Bridge struct {
	mu     sync.Mutex
	queues map[string]*Queue

	logger  zerolog.Logger
	metrics *telemetry.Metrics
}

// New creates an empty bridge. metrics may be nil.
func New(logger zerolog.Logger, metrics *telemetry.Metrics) *Bridge {
	return &Bridge{
		queues:  make(map[string]*Queue),
		logger:  telemetry.Component(logger, "bridge"),
		metrics: metrics,
	}
}

// Register returns the queue of a conversation, creating it if absent.
// Concurrent first calls for one id get the same queue.
func (b *Bridge) Register(conversationID string) *Queue {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[conversationID]
	if !ok {
		q = newQueue()
		b.queues[conversationID] = q
		b.metrics.SetLiveQueues(len(b.queues))
	}
	return q
}

// Deliver appends an event to the conversation's queue. It never blocks and
// never drops the event.
func (b *Bridge) Deliver(conversationID string, event koordinator.InboundEvent) {
	b.Register(conversationID).push(event)
	b.metrics.RecordDelivered()
}

// Release removes the conversation's queue and returns how many undelivered
// events it still held. Waiters already holding the queue are unaffected.
func (b *Bridge) Release(conversationID string) int {
	b.mu.Lock()
	q, ok := b.queues[conversationID]
	if ok {
		delete(b.queues, conversationID)
		b.metrics.SetLiveQueues(len(b.queues))
	}
	b.mu.Unlock()

	if !ok {
		return 0
	}
	dropped := q.Len()
	if dropped > 0 {
		b.logger.Debug().
			Str("event", "queue_released").
			Str("conversation_id", conversationID).
			Int("dropped", dropped).
			Msg("released conversation queue with pending events")
	}
	return dropped
}

// Len returns the number of registered queues.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues)
}

// Await blocks until an event is available on q or timeout elapses, and
// returns the oldest event. On timeout it returns ErrTimeout and leaves q
// registered, so a late event stays available to the next wait on the same
// conversation. Cancelling ctx returns ctx.Err().
func (b *Bridge) Await(ctx context.Context, q *Queue, timeout time.Duration) (koordinator.InboundEvent, error) {
	if e, ok := q.pop(); ok {
		b.metrics.RecordAwait(outcomeReply)
		return e, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			b.metrics.RecordAwait(outcomeCancelled)
			return koordinator.InboundEvent{}, ctx.Err()

		case <-q.notify:
			if e, ok := q.pop(); ok {
				b.metrics.RecordAwait(outcomeReply)
				return e, nil
			}

		case <-timer.C:
			if e, ok := q.pop(); ok {
				b.metrics.RecordAwait(outcomeReply)
				return e, nil
			}
			b.metrics.RecordAwait(outcomeTimeout)
			return koordinator.InboundEvent{}, ErrTimeout
		}
	}
}

// Exchange registers the conversation, runs send (which should trigger a
// backend reply) and waits for that reply. The queue is registered before
// send so an early reply cannot race the wait.
func (b *Bridge) Exchange(ctx context.Context, conversationID string, timeout time.Duration, send func(context.Context) error) (koordinator.InboundEvent, error) {
	q := b.Register(conversationID)
	if err := send(ctx); err != nil {
		return koordinator.InboundEvent{}, err
	}
	return b.Await(ctx, q, timeout)
}
