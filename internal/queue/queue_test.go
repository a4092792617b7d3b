package queue_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"printdrop/internal/config"
	"printdrop/internal/queue"
	"printdrop/internal/rules"
)

func newTestItem(t *testing.T, path string) *queue.Item {
	t.Helper()
	set, err := rules.Compile([]config.RuleConfig{{Pattern: `^`, Destination: "x"}})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	match := set.Match(path)
	if match == nil {
		t.Fatal("expected match")
	}
	return queue.NewItem(path, match)
}

func TestQueueFIFO(t *testing.T) {
	q := queue.New()
	for i := 0; i < 3; i++ {
		q.Enqueue(newTestItem(t, fmt.Sprintf("file_%d.pdf", i)))
	}

	for i := 0; i < 3; i++ {
		item, ok := q.Dequeue()
		if !ok {
			t.Fatal("queue closed unexpectedly")
		}
		want := fmt.Sprintf("file_%d.pdf", i)
		if item.Path != want {
			t.Fatalf("expected %s, got %s", want, item.Path)
		}
	}
}

func TestQueueCloseDrainsBacklog(t *testing.T) {
	q := queue.New()
	q.Enqueue(newTestItem(t, "a.pdf"))
	q.Enqueue(newTestItem(t, "b.pdf"))
	q.Close()

	if _, ok := q.Dequeue(); !ok {
		t.Fatal("backlog must drain before the sentinel is observed")
	}
	if _, ok := q.Dequeue(); !ok {
		t.Fatal("backlog must drain before the sentinel is observed")
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("expected sentinel after backlog drained")
	}
}

func TestQueueEnqueueAfterCloseDropped(t *testing.T) {
	q := queue.New()
	q.Close()
	if q.Enqueue(newTestItem(t, "late.pdf")) {
		t.Fatal("enqueue after close must be dropped")
	}
}

func TestQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := queue.New()
	got := make(chan string, 1)
	go func() {
		item, ok := q.Dequeue()
		if ok {
			got <- item.Path
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(newTestItem(t, "late.pdf"))

	select {
	case path := <-got:
		if path != "late.pdf" {
			t.Fatalf("unexpected path %s", path)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not observe enqueued item")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := queue.New()
	const producers = 8
	const perProducer = 25

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(newTestItem(t, fmt.Sprintf("p%d_%d.pdf", p, i)))
			}
		}(p)
	}
	wg.Wait()
	q.Close()

	count := 0
	for {
		_, ok := q.Dequeue()
		if !ok {
			break
		}
		count++
	}
	if count != producers*perProducer {
		t.Fatalf("expected %d items, got %d", producers*perProducer, count)
	}
}
