// Package pipeline drains the work queue and runs each matched file through
// readiness waiting, the archive move, and print orchestration. All blocking
// work happens here, strictly serialized by the single worker.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"printdrop/internal/history"
	"printdrop/internal/logging"
	"printdrop/internal/mover"
	"printdrop/internal/notifications"
	"printdrop/internal/printing"
	"printdrop/internal/queue"
	"printdrop/internal/readiness"
	"printdrop/internal/rules"
)

// Result summarizes how one item was handled.
type Result struct {
	Outcome     string
	Destination string
	Printed     bool
	Err         error
}

// Processor handles a single queue item end to end.
type Processor struct {
	waiter       *readiness.Waiter
	mover        *mover.Mover
	orchestrator *printing.Orchestrator
	notifier     notifications.Service
	journal      *history.Store
	logger       *slog.Logger
}

// NewProcessor wires the per-item pipeline. journal may be nil to disable
// history recording.
func NewProcessor(waiter *readiness.Waiter, fileMover *mover.Mover, orchestrator *printing.Orchestrator, notifier notifications.Service, journal *history.Store, logger *slog.Logger) *Processor {
	return &Processor{
		waiter:       waiter,
		mover:        fileMover,
		orchestrator: orchestrator,
		notifier:     notifier,
		journal:      journal,
		logger:       logging.WithComponent(logger, "pipeline"),
	}
}

// Process runs one item. Failures are reported through the returned Result
// and the notifier; they are never allowed to escape and kill the worker.
func (p *Processor) Process(ctx context.Context, item *queue.Item) Result {
	started := time.Now()
	baseName := filepath.Base(item.Path)
	logger := p.logger.With(logging.String("file", baseName))

	result := p.process(ctx, logger, item)

	if result.Err != nil {
		if errors.Is(result.Err, mover.ErrDestinationExists) {
			logger.Warn("archive skipped",
				logging.Error(result.Err),
				logging.String("outcome", result.Outcome),
			)
		} else {
			logger.Error("processing failed",
				logging.Error(result.Err),
				logging.String("outcome", result.Outcome),
			)
		}
		if err := p.notifier.NotifyError(ctx, result.Err, baseName); err != nil {
			logger.Warn("error notification failed", logging.Error(err))
		}
	} else {
		logger.Info("processing finished",
			logging.String("outcome", result.Outcome),
			logging.Bool("printed", result.Printed),
			logging.Duration("elapsed", time.Since(started)),
		)
	}

	p.record(ctx, logger, item, started, result)
	return result
}

func (p *Processor) process(ctx context.Context, logger *slog.Logger, item *queue.Item) Result {
	baseName := filepath.Base(item.Path)

	status, err := p.waiter.Wait(ctx, item.Path)
	if err != nil {
		return Result{Outcome: history.OutcomeFailed, Err: err}
	}
	switch status {
	case readiness.Gone:
		// The file was moved or deleted externally while we waited. A
		// benign race, not a failure.
		logger.Info("file vanished before processing; skipping",
			logging.String(logging.FieldEventType, "file_gone"),
		)
		return Result{Outcome: history.OutcomeSkippedGone}
	case readiness.Locked:
		return Result{
			Outcome: history.OutcomeFailed,
			Err:     fmt.Errorf("%w: %s", ErrLockTimeout, baseName),
		}
	}

	match := &rules.Match{Rule: item.Rule, Captures: item.Captures}
	destDir, err := match.DestinationDir()
	if err != nil {
		return Result{
			Outcome: history.OutcomeFailed,
			Err:     Wrap("resolve destination", baseName, err),
		}
	}

	destPath, err := p.mover.Move(ctx, item.Path, destDir)
	if err != nil {
		if errors.Is(err, mover.ErrDestinationExists) {
			logger.Info("destination already occupied; archive skipped",
				logging.String("destination", destPath),
				logging.String(logging.FieldEventType, "destination_exists"),
			)
			return Result{
				Outcome:     history.OutcomeDestinationExists,
				Destination: destPath,
				Err:         err,
			}
		}
		return Result{
			Outcome: history.OutcomeFailed,
			Err:     Wrap("archive move", baseName, err),
		}
	}

	logger.Info("file archived",
		logging.String("destination", destPath),
		logging.String("rule_pattern", item.Rule.Pattern.String()),
	)
	if err := p.notifier.NotifyArchived(ctx, baseName, destDir); err != nil {
		logger.Warn("archive notification failed", logging.Error(err))
	}

	if item.Rule.Mode == rules.PrintNever {
		return Result{Outcome: history.OutcomeArchived, Destination: destPath}
	}

	outcome, printErr := p.orchestrator.Print(ctx, destPath, item.Rule)
	switch outcome {
	case printing.OutcomePrinted:
		return Result{Outcome: history.OutcomePrinted, Destination: destPath, Printed: true}
	case printing.OutcomeDeclined:
		if err := p.notifier.NotifyArchivedWithoutPrinting(ctx, baseName); err != nil {
			logger.Warn("declined-print notification failed", logging.Error(err))
		}
		return Result{Outcome: history.OutcomeArchivedNoPrint, Destination: destPath}
	case printing.OutcomeNoPrinter:
		return Result{Outcome: history.OutcomeArchivedNoPrint, Destination: destPath}
	default:
		// Submission failed after a successful archive; the file stays
		// archived and the error is surfaced for the record.
		return Result{
			Outcome:     history.OutcomeArchived,
			Destination: destPath,
			Err:         printErr,
		}
	}
}

func (p *Processor) record(ctx context.Context, logger *slog.Logger, item *queue.Item, started time.Time, result Result) {
	if p.journal == nil {
		return
	}
	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}
	entry := history.Entry{
		ID:          item.ID,
		Path:        item.Path,
		Destination: result.Destination,
		Pattern:     item.Rule.Pattern.String(),
		Outcome:     result.Outcome,
		Printed:     result.Printed,
		Error:       errText,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
	if err := p.journal.Record(ctx, entry); err != nil {
		logger.Warn("history record failed", logging.Error(err))
	}
}
