// Package queue provides the FIFO queue of pending entries.
package queue

type node[T any] struct {
	value T
	next  *node[T]
}

// Queue is a FIFO list. The zero value is an empty queue. Callers serialize access.
type Queue[T any] struct {
	head *node[T]
	tail *node[T]
	size int
}

func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

func (q *Queue[T]) Enqueue(v T) {
	n := &node[T]{value: v}
	if q.tail == nil {
		q.head = n
	} else {
		q.tail.next = n
	}
	q.tail = n
	q.size++
}

func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.size--
	return n.value, true
}

func (q *Queue[T]) Peek() (T, bool) {
	var zero T
	if q.head == nil {
		return zero, false
	}
	return q.head.value, true
}

func (q *Queue[T]) Len() int {
	return q.size
}

// Remove drops every entry matching fn by draining the queue and re-enqueueing the rest,
// so relative order is preserved. It returns how many entries were removed.
func (q *Queue[T]) Remove(fn func(T) bool) int {
	n := q.size
	removed := 0
	for i := 0; i < n; i++ {
		v, _ := q.Dequeue()
		if fn(v) {
			removed++
			continue
		}
		q.Enqueue(v)
	}
	return removed
}

// Items returns the entries in FIFO order without consuming them.
func (q *Queue[T]) Items() []T {
	out := make([]T, 0, q.size)
	for n := q.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}

func (q *Queue[T]) Clear() {
	q.head, q.tail, q.size = nil, nil, 0
}
