package flow

import "sync"

// Queue is a FIFO guarded by its own lock. Push ignores the maximum depth;
// a producer that checks Full and then pushes may overshoot it by one item.
// Producers sharing a queue reserve a slot with TryReserve and fill it with
// PushReserved, which keeps the queue within its maximum.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	reserved int
	max      int
}

func NewQueue[T any](max int) *Queue[T] {
	return &Queue[T]{max: max}
}

func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// TryReserve claims a slot for a later PushReserved. Reserved slots count
// towards the depth.
func (q *Queue[T]) TryReserve() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items)+q.reserved >= q.max {
		return false
	}
	q.reserved++
	return true
}

// Release gives back a slot claimed by TryReserve without pushing.
func (q *Queue[T]) Release() {
	q.mu.Lock()
	if q.reserved > 0 {
		q.reserved--
	}
	q.mu.Unlock()
}

// PushReserved fills a slot claimed by TryReserve.
func (q *Queue[T]) PushReserved(item T) {
	q.mu.Lock()
	if q.reserved > 0 {
		q.reserved--
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// TryPop removes the oldest item without waiting.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)+q.reserved >= q.max
}

func (q *Queue[T]) Max() int { return q.max }
