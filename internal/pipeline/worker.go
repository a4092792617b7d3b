package pipeline

import (
	"context"
	"log/slog"

	"printdrop/internal/logging"
	"printdrop/internal/queue"
)

// Worker is the single consumer of the work queue. Exactly one worker runs
// per daemon, which is what serializes archive moves and printer-default
// mutation.
type Worker struct {
	queue     *queue.Queue
	processor *Processor
	logger    *slog.Logger
}

// NewWorker constructs the queue worker.
func NewWorker(q *queue.Queue, processor *Processor, logger *slog.Logger) *Worker {
	return &Worker{
		queue:     q,
		processor: processor,
		logger:    logging.WithComponent(logger, "worker"),
	}
}

// Run drains the queue until its shutdown sentinel is observed. One bad item
// never terminates the loop; the item's failure is handled at the processor
// boundary.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, ok := w.queue.Dequeue()
		if !ok {
			w.logger.Info("work queue closed; worker exiting")
			return
		}
		w.logger.Debug("dequeued item",
			logging.String("path", item.Path),
			logging.String("item_id", item.ID.String()),
		)
		w.processor.Process(ctx, item)
	}
}
