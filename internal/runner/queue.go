// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package runner

import "sync"

// lineQueue is an unbounded FIFO of stdin lines. close acts as the
// end-of-input sentinel: pop drains what was queued, then reports false.
type lineQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newLineQueue() *lineQueue {
	q := &lineQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends line. It reports false if the queue is closed.
func (q *lineQueue) push(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, line)
	q.cond.Signal()
	return true
}

// pop blocks until a line is available or the queue is closed and empty.
func (q *lineQueue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return "", false
	}
	line := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return line, true
}

func (q *lineQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// discard closes the queue and drops anything still pending.
func (q *lineQueue) discard() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
	q.cond.Broadcast()
}
