// File: internal/concurrency/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Typed FIFO over github.com/eapache/queue's ring buffer.

package concurrency

import "github.com/eapache/queue"

// Queue is a FIFO of pending actions. It does no locking of its own: producers
// and the single consumer must hold the lock that guards the state the actions
// refer to.
type Queue[T any] struct {
	q *queue.Queue
}

// NewQueue returns an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{q: queue.New()}
}

// Push appends v.
func (q *Queue[T]) Push(v T) {
	q.q.Add(v)
}

// Pop removes and returns the oldest element.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.q.Length() == 0 {
		return zero, false
	}
	return q.q.Remove().(T), true
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	return q.q.Length()
}

// Drain pops every queued element in order and passes it to fn. Elements
// pushed by fn itself are drained in the same call.
func (q *Queue[T]) Drain(fn func(T)) int {
	n := 0
	for {
		v, ok := q.Pop()
		if !ok {
			return n
		}
		fn(v)
		n++
	}
}
