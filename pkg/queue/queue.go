// Package queue implements the bounded hand-off queue between pipeline stages.
//
// A Queue has a fixed capacity. Put blocks while the queue is full, which is
// the pipeline's only backpressure mechanism, and Get blocks while it is
// empty. Neither has a timeout; the context only exists so that a fatal
// error elsewhere in the run can unblock every stage.
//
// Termination follows the sentinel protocol: once all producers for a queue
// are done, the orchestrator calls Stop(n) with n equal to the number of
// consumers. Each consumer exits after receiving exactly one sentinel. Since
// the queue is FIFO, every item enqueued before the sentinels is delivered
// first.
package queue

import (
	"context"
	"errors"
)

// ErrCapacity is returned by New for a non-positive capacity.
var ErrCapacity = errors.New("queue: capacity must be positive")

type slot[T any] struct {
	item T
	stop bool
}

// Queue is a bounded FIFO of T with sentinel termination.
type Queue[T any] struct {
	ch chan slot[T]
}

// New creates a queue holding at most capacity items.
func New[T any](capacity int) (*Queue[T], error) {
	if capacity <= 0 {
		return nil, ErrCapacity
	}
	return &Queue[T]{ch: make(chan slot[T], capacity)}, nil
}

// Put enqueues item, blocking while the queue is full.
func (q *Queue[T]) Put(ctx context.Context, item T) error {
	return q.send(ctx, slot[T]{item: item})
}

// Stop enqueues n sentinels, one per consumer.
func (q *Queue[T]) Stop(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := q.send(ctx, slot[T]{stop: true}); err != nil {
			return err
		}
	}
	return nil
}

// Get dequeues the next item, blocking while the queue is empty.
// ok is false when the consumer received its sentinel and must stop reading.
func (q *Queue[T]) Get(ctx context.Context) (item T, ok bool, err error) {
	select {
	case s := <-q.ch:
		if s.stop {
			return item, false, nil
		}
		return s.item, true, nil
	case <-ctx.Done():
		return item, false, context.Cause(ctx)
	}
}

// Len returns the number of queued slots, sentinels included.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return cap(q.ch)
}

func (q *Queue[T]) send(ctx context.Context, s slot[T]) error {
	// Prefer a cancelled context over a free slot so a failed run stops
	// feeding downstream stages.
	if err := context.Cause(ctx); err != nil {
		return err
	}
	select {
	case q.ch <- s:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
