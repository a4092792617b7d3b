// Package daemon wires the watcher, the ingestion gate, and the pipeline
// worker into one runnable unit.
//
// Two contexts of control exist: the ingestion loop, which only matches
// patterns, consults the dedup gate, and enqueues (never blocking I/O), and
// exactly one worker draining the queue and doing all blocking work. The
// dedup gate is the only state shared between them.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"printdrop/internal/config"
	"printdrop/internal/dedupe"
	"printdrop/internal/logging"
	"printdrop/internal/pipeline"
	"printdrop/internal/queue"
	"printdrop/internal/rules"
	"printdrop/internal/watcher"
)

// Daemon owns the processing pipeline for one watched directory.
type Daemon struct {
	cfg     *config.Config
	ruleSet *rules.Set
	gate    *dedupe.Gate
	queue   *queue.Queue
	worker  *pipeline.Worker
	watch   *watcher.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon from pre-built collaborators.
func New(cfg *config.Config, ruleSet *rules.Set, q *queue.Queue, worker *pipeline.Worker, watch *watcher.Watcher, logger *slog.Logger) *Daemon {
	return &Daemon{
		cfg:     cfg,
		ruleSet: ruleSet,
		gate:    dedupe.New(time.Duration(cfg.Watch.DedupWindowSeconds) * time.Second),
		queue:   q,
		worker:  worker,
		watch:   watch,
		logger:  logging.WithComponent(logger, "daemon"),
	}
}

// Start launches the watcher, the ingestion loop, and the worker.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return errors.New("daemon already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	events, err := d.watch.Start(runCtx)
	if err != nil {
		cancel()
		return err
	}

	d.cancel = cancel
	d.running = true

	d.wg.Add(2)
	go d.ingest(events)
	go func() {
		defer d.wg.Done()
		d.worker.Run(runCtx)
	}()

	d.logger.Info("daemon started",
		logging.String("watch_dir", d.cfg.Paths.WatchDir),
		logging.Int("rules", d.ruleSet.Len()),
	)
	return nil
}

// Stop shuts the daemon down: the watcher stops feeding events, the queue
// receives its shutdown sentinel, and the in-flight item (if any) is allowed
// to finish before Stop returns.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	// Order matters: the watcher stops feeding first, then the sentinel is
	// enqueued, and the run context stays live until the worker has drained
	// the backlog. Cancelling earlier would abort the in-flight item's
	// readiness waits, move backoffs, and print polling mid-flight.
	d.watch.Stop()
	d.queue.Close()
	d.wg.Wait()
	cancel()
	d.logger.Info("daemon stopped")
}

// ingest gates raw events through the pattern matcher and the dedup window,
// then enqueues. It performs no blocking I/O so event bursts are never
// missed while a previous file is mid-processing.
func (d *Daemon) ingest(events <-chan watcher.Event) {
	defer d.wg.Done()

	for event := range events {
		baseName := filepath.Base(event.Path)

		match := d.ruleSet.Match(baseName)
		if match == nil {
			// Expected for unrelated files (partial downloads and the
			// like); kept out of the dedup cache on purpose.
			d.logger.Debug("no rule matched",
				logging.String("file", baseName),
			)
			continue
		}

		if d.gate.Seen(event.Path) {
			d.logger.Debug("duplicate event suppressed",
				logging.String("file", baseName),
				logging.String("kind", event.Kind.String()),
			)
			continue
		}

		item := queue.NewItem(event.Path, match)
		if !d.queue.Enqueue(item) {
			return
		}
		d.logger.Info("file queued",
			logging.String("file", baseName),
			logging.String("kind", event.Kind.String()),
			logging.String("rule_pattern", match.Rule.Pattern.String()),
		)
	}
}
