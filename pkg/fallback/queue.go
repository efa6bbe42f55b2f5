package fallback

import (
	"sync"
)

// pendingQueue holds queued mutations in FIFO order per collection.
// Collections drain independently; no cross-collection ordering exists.
type pendingQueue struct {
	mu         sync.Mutex
	byCol      map[string][]*PendingOperation
	order      []string // collection order for deterministic draining
	deadLetter []*PendingOperation
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{
		byCol: make(map[string][]*PendingOperation),
	}
}

// enqueue appends an operation to its collection's FIFO.
func (q *pendingQueue) enqueue(op *PendingOperation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.byCol[op.Collection]; !exists {
		q.order = append(q.order, op.Collection)
	}
	q.byCol[op.Collection] = append(q.byCol[op.Collection], op)
}

// peek returns the head of a collection's FIFO without removing it.
func (q *pendingQueue) peek(collection string) *PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.byCol[collection]
	if len(ops) == 0 {
		return nil
	}
	return ops[0]
}

// pop removes the head of a collection's FIFO.
func (q *pendingQueue) pop(collection string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.byCol[collection]
	if len(ops) == 0 {
		return
	}
	q.byCol[collection] = ops[1:]
	if len(q.byCol[collection]) == 0 {
		delete(q.byCol, collection)
		q.removeFromOrder(collection)
	}
}

// recordFailure notes a failed replay attempt on a collection's head and
// returns the updated attempt count. Mutating through the queue keeps
// snapshot readers consistent.
func (q *pendingQueue) recordFailure(collection, lastError string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.byCol[collection]
	if len(ops) == 0 {
		return 0
	}
	ops[0].Attempts++
	ops[0].LastError = lastError
	return ops[0].Attempts
}

// moveToDeadLetter removes the head of a collection's FIFO and sets it
// aside for manual inspection.
func (q *pendingQueue) moveToDeadLetter(collection string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ops := q.byCol[collection]
	if len(ops) == 0 {
		return
	}
	q.deadLetter = append(q.deadLetter, ops[0])
	q.byCol[collection] = ops[1:]
	if len(q.byCol[collection]) == 0 {
		delete(q.byCol, collection)
		q.removeFromOrder(collection)
	}
}

func (q *pendingQueue) removeFromOrder(collection string) {
	for i, name := range q.order {
		if name == collection {
			q.order = append(q.order[:i], q.order[i+1:]...)
			return
		}
	}
}

// collections returns the collections that currently have pending work.
func (q *pendingQueue) collections() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	names := make([]string, len(q.order))
	copy(names, q.order)
	return names
}

// depth returns the total number of pending operations.
func (q *pendingQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := 0
	for _, ops := range q.byCol {
		total += len(ops)
	}
	return total
}

// snapshot returns copies of all pending operations in drain order.
func (q *pendingQueue) snapshot() []*PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result []*PendingOperation
	for _, collection := range q.order {
		for _, op := range q.byCol[collection] {
			dup := *op
			result = append(result, &dup)
		}
	}
	return result
}

// deadLetters returns copies of the dead-letter list.
func (q *pendingQueue) deadLetters() []*PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]*PendingOperation, len(q.deadLetter))
	for i, op := range q.deadLetter {
		dup := *op
		result[i] = &dup
	}
	return result
}

// clear drops all pending and dead-lettered operations.
func (q *pendingQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.byCol = make(map[string][]*PendingOperation)
	q.order = nil
	q.deadLetter = nil
}
