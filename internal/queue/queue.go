// Package queue implements the lock-free multi-producer/single-consumer
// FIFO of outbound packet chains that sits between the loop and send
// workers: a Michael-Scott queue over the chain's own intrusive
// next-link, so enqueue never allocates a separate node.
package queue

import (
	"sync/atomic"

	"github.com/nordscan/pktizr/internal/packet"
)

// Queue is safe for any number of concurrent Enqueue callers alongside a
// single Dequeue caller; it is not safe for concurrent Dequeue calls.
type Queue struct {
	head atomic.Pointer[packet.Chain]
	tail atomic.Pointer[packet.Chain]
}

// New returns an empty queue, primed with a dummy sentinel node so head and
// tail are never nil.
func New() *Queue {
	sentinel := &packet.Chain{}
	q := &Queue{}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Enqueue appends c to the tail. Wait-free modulo the CAS retry loop, which
// only spins behind a concurrent enqueuer, never behind the consumer.
func (q *Queue) Enqueue(c *packet.Chain) {
	c.SetNext(nil)
	for {
		tail := q.tail.Load()
		next := tail.Next()
		if next == nil {
			if tail.CASNext(nil, c) {
				q.tail.CompareAndSwap(tail, c)
				return
			}
		} else {
			// Tail has fallen behind another producer's append; help it along.
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// Dequeue removes and returns the head chain, or nil if the queue is
// empty. Must only be called from a single consumer goroutine.
func (q *Queue) Dequeue() *packet.Chain {
	head := q.head.Load()
	next := head.Next()
	if next == nil {
		return nil
	}
	q.head.Store(next)
	return next
}

// Empty reports whether the queue currently holds no chains. Racy under
// concurrent Enqueue by construction (MPSC); intended only as a hint, not
// a linearizable check.
func (q *Queue) Empty() bool {
	return q.head.Load().Next() == nil
}
