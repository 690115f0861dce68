// Package queue implements the time-ordered message queue that backs a
// Looper: a mutex/condition-variable-protected sequence of
// *message.Message sorted by (When ascending, Seq ascending), with
// blocking dequeue, front insertion, and predicate-based removal.
//
// The ordering primitive is built from container/heap plus sync.Cond,
// since a plain channel has no notion of "due at time T" priority.
package queue

import (
	"container/heap"
	"sync"
	"time"

	"github.com/romanqed/msgloop/message"
)

// Queue is a time-ordered sequence of messages. The zero value is not
// usable; construct with New.
type Queue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	h           msgHeap
	seq         int64
	frontSeq    int64
	exitPending bool
}

// New returns an empty, ready-to-use Queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push schedules m to become due at when, breaking ties with prior
// posts in insertion order (stable FIFO for equal timestamps).
func (q *Queue) Push(m *message.Message, when time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	m.When = when
	q.seq++
	m.Seq = q.seq
	heap.Push(&q.h, m)
	q.cond.Broadcast()
}

// PushFront schedules m so that it becomes the next message dispatched:
// its When is now, clamped to no later than the current head's When,
// and it is given a sequence number earlier than every message
// currently queued (including earlier front-inserts), so repeated
// PushFront calls each win over the previous one.
func (q *Queue) PushFront(m *message.Message, now time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	when := now
	if q.h.Len() > 0 {
		if head := q.h.items[0]; head.When.Before(when) {
			when = head.When
		}
	}
	m.When = when
	q.frontSeq--
	m.Seq = q.frontSeq
	heap.Push(&q.h, m)
	q.cond.Broadcast()
}

// Next blocks until the head of the queue is due, or until RequestExit
// has been observed with the queue checked at least once, then pops and
// returns the head. ok is false once exit has been requested and no
// further message should be dispatched (the caller should drain
// instead, via Drain).
func (q *Queue) Next() (*message.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		for q.h.Len() == 0 && !q.exitPending {
			q.cond.Wait()
		}
		if q.exitPending {
			return nil, false
		}
		head := q.h.items[0]
		now := time.Now()
		if head.When.After(now) {
			q.waitTimeoutLocked(head.When.Sub(now))
			continue
		}
		return heap.Pop(&q.h).(*message.Message), true
	}
}

// waitTimeoutLocked blocks on cond (releasing mu for the duration)
// until either Broadcast is called or d elapses, whichever is first.
// sync.Cond has no built-in timed wait, so a timer goroutine re-takes
// mu just long enough to Broadcast — the same trick used to give
// channel-based code a "select with cond" escape hatch.
func (q *Queue) waitTimeoutLocked(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	q.cond.Wait()
	timer.Stop()
}

// RequestExit signals the worker loop to stop waiting for new work.
// Safe to call more than once or concurrently with Next/Push.
func (q *Queue) RequestExit() {
	q.mu.Lock()
	q.exitPending = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// RemoveFunc atomically removes every queued message for which pred
// returns true and returns them in ascending dispatch order.
func (q *Queue) RemoveFunc(pred func(*message.Message) bool) []*message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.h.Len() == 0 {
		return nil
	}
	var removed, kept []*message.Message
	for _, m := range q.h.items {
		if pred(m) {
			removed = append(removed, m)
		} else {
			kept = append(kept, m)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	q.h.items = kept
	heap.Init(&q.h)
	sortByDispatchOrder(removed)
	return removed
}

// Drain empties the queue and returns everything it held, in dispatch
// order, so the caller can run the free path (never the handler) for
// each of these during shutdown.
func (q *Queue) Drain() []*message.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*message.Message, 0, q.h.Len())
	for q.h.Len() > 0 {
		out = append(out, heap.Pop(&q.h).(*message.Message))
	}
	return out
}

// Len returns a point-in-time count. Not meant to drive scheduling
// decisions.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

// Snapshot returns a dispatch-ordered copy of the queue's current
// contents without removing anything, backing Looper.Dump.
func (q *Queue) Snapshot() []*message.Message {
	q.mu.Lock()
	out := make([]*message.Message, len(q.h.items))
	copy(out, q.h.items)
	q.mu.Unlock()
	sortByDispatchOrder(out)
	return out
}

func sortByDispatchOrder(items []*message.Message) {
	// insertion sort: removal/snapshot batches are small in practice
	// and this keeps the package free of an extra sort.Slice import
	// for what is, at most call sites, a handful of elements.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && less(items[j], items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

func less(a, b *message.Message) bool {
	if !a.When.Equal(b.When) {
		return a.When.Before(b.When)
	}
	return a.Seq < b.Seq
}

// msgHeap implements container/heap.Interface over (When, Seq).
type msgHeap struct {
	items []*message.Message
}

func (h msgHeap) Len() int            { return len(h.items) }
func (h msgHeap) Less(i, j int) bool  { return less(h.items[i], h.items[j]) }
func (h msgHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *msgHeap) Push(x any)         { h.items = append(h.items, x.(*message.Message)) }
func (h *msgHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}
