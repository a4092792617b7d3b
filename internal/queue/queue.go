// Package queue provides the in-memory work queue between event ingestion
// and the single pipeline worker. Buffering is unbounded so the ingestion
// side never blocks while a previous file is mid-processing. Queue state is
// not persisted across restarts.
package queue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"printdrop/internal/rules"
)

// Item is one matched file awaiting processing. Immutable once enqueued and
// consumed exactly once.
type Item struct {
	ID         uuid.UUID
	Path       string
	Rule       *rules.Rule
	Captures   map[string]string
	EnqueuedAt time.Time
}

// NewItem builds a queue item from a matched path.
func NewItem(path string, match *rules.Match) *Item {
	return &Item{
		ID:         uuid.New(),
		Path:       path,
		Rule:       match.Rule,
		Captures:   match.Captures,
		EnqueuedAt: time.Now(),
	}
}

// Queue is a multi-producer, single-consumer FIFO. Close enqueues a shutdown
// sentinel; the consumer drains the backlog and then observes the sentinel.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*Item
	closed bool
}

// New constructs an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends an item. Items enqueued after Close are dropped.
func (q *Queue) Enqueue(item *Item) bool {
	if item == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Signal()
	return true
}

// Dequeue blocks until an item is available or the shutdown sentinel is
// reached. It returns ok=false only after Close and a fully drained backlog.
func (q *Queue) Dequeue() (*Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Close signals shutdown. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of items waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
