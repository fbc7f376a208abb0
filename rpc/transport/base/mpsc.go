package base

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// queueNode is a single element of the queue
type queueNode[T any] struct {
	value T
	next  atomic.Pointer[queueNode[T]]
}

// MPSCQueue is an unbounded multi-producer single-consumer queue.
// Producers append to a linked list with atomic operations and never block,
// a single goroutine moves the values to the channel returned by Recv.
//
// Under concurrent Push calls the order is the order in which the appends
// succeed. Values of a single producer keep their order.
type MPSCQueue[T any] struct {
	head     atomic.Pointer[queueNode[T]]
	tail     atomic.Pointer[queueNode[T]]
	out      chan T
	consumer sync.WaitGroup
	closed   atomic.Bool

	// wakes the consumer when it ran dry
	mu   sync.Mutex
	cond *sync.Cond
}

// NewMPSCQueue creates a new queue and starts its consumer goroutine
func NewMPSCQueue[T any]() *MPSCQueue[T] {
	// the head always points to an already consumed (or dummy) node
	sentinel := &queueNode[T]{}

	q := &MPSCQueue[T]{
		out: make(chan T),
	}
	q.cond = sync.NewCond(&q.mu)
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	q.consumer.Add(1)
	go q.consume()

	return q
}

// Push appends a value to the queue.
// It returns false if the queue is already closed.
func (q *MPSCQueue[T]) Push(value T) bool {
	if q.closed.Load() {
		return false
	}

	newNode := &queueNode[T]{value: value}
	var backoff uint8

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()

		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// may fail if another producer already moved the tail, which is fine
				q.tail.CompareAndSwap(tailNode, newNode)
				q.wake()
				return true
			}
		} else {
			// help a producer that appended but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin a little at low contention, then yield
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// Recv returns the channel the values are delivered on.
// It is closed after Close once every pushed value was delivered.
func (q *MPSCQueue[T]) Recv() <-chan T {
	return q.out
}

// Close rejects further pushes. Values already in the queue are still delivered.
func (q *MPSCQueue[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

// Wait blocks until the consumer delivered every value and closed the channel
func (q *MPSCQueue[T]) Wait() {
	q.consumer.Wait()
}

// wake signals the consumer under the lock, so the signal can not slip in
// between its emptiness check and cond.Wait
func (q *MPSCQueue[T]) wake() {
	q.mu.Lock()
	q.cond.Signal()
	q.mu.Unlock()
}

// consume moves values from the list to the output channel
func (q *MPSCQueue[T]) consume() {
	defer q.consumer.Done()
	defer close(q.out)

	var zero T
	for {
		for {
			head := q.head.Load()
			next := head.next.Load()
			if next == nil {
				break
			}

			value := next.value
			q.head.Store(next)
			q.out <- value

			// the node is the new sentinel, drop the reference for the gc
			next.value = zero
		}

		// pushes that happened before Close are visible once closed is
		if q.closed.Load() {
			if q.head.Load().next.Load() == nil {
				return
			}
			continue
		}

		q.mu.Lock()
		if q.head.Load().next.Load() == nil && !q.closed.Load() {
			q.cond.Wait()
		}
		q.mu.Unlock()
	}
}
