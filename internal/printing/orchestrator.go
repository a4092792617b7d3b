package printing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"printdrop/internal/logging"
	"printdrop/internal/notifications"
	"printdrop/internal/rules"
)

// ErrSubmit indicates the print submission call failed.
var ErrSubmit = errors.New("print submission failed")

// ErrSwitch indicates the default-printer mutation failed. Printing is still
// attempted with whatever default is active.
var ErrSwitch = errors.New("default printer switch failed")

// Outcome describes how a print orchestration ended.
type Outcome int

const (
	// OutcomePrinted means the job was submitted and the wait completed.
	OutcomePrinted Outcome = iota
	// OutcomeDeclined means the user answered no to the prompt.
	OutcomeDeclined
	// OutcomeNoPrinter means no target printer could be resolved.
	OutcomeNoPrinter
	// OutcomeSubmitFailed means the submission call failed.
	OutcomeSubmitFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePrinted:
		return "printed"
	case OutcomeDeclined:
		return "declined"
	case OutcomeNoPrinter:
		return "no_printer"
	default:
		return "submit_failed"
	}
}

// Orchestrator decides whether to print, temporarily overrides the system
// default printer when required, submits the job, and waits for completion.
type Orchestrator struct {
	spooler        Spooler
	confirmer      Confirmer
	poller         *Poller
	notifier       notifications.Service
	logger         *slog.Logger
	defaultPrinter string
	settleDelay    time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the orchestrator. confirmer may be nil, in which
// case prompt-mode rules are treated as declined.
func NewOrchestrator(spooler Spooler, confirmer Confirmer, poller *Poller, notifier notifications.Service, logger *slog.Logger, defaultPrinter string, settleDelay time.Duration) *Orchestrator {
	return &Orchestrator{
		spooler:        spooler,
		confirmer:      confirmer,
		poller:         poller,
		notifier:       notifier,
		logger:         logging.WithComponent(logger, "print-orchestrator"),
		defaultPrinter: strings.TrimSpace(defaultPrinter),
		settleDelay:    settleDelay,
		sleep:          sleepCtx,
	}
}

// Print runs the full print flow for an archived file. It is invoked only
// after a successful archive and only for rules whose mode is not never.
// The default printer, if changed, is restored on every exit path.
func (o *Orchestrator) Print(ctx context.Context, archivedPath string, rule *rules.Rule) (Outcome, error) {
	baseName := filepath.Base(archivedPath)

	if rule.Mode == rules.PrintNever {
		return OutcomeDeclined, nil
	}
	if rule.Mode == rules.PrintPrompt {
		if !o.confirm(ctx, baseName) {
			o.logger.Info("print declined", logging.String("file", baseName))
			return OutcomeDeclined, nil
		}
	}

	target := rule.Printer
	if target == "" {
		target = o.defaultPrinter
	}
	if target == "" {
		o.logger.Info("no printer resolved; skipping print",
			logging.String("file", baseName),
			logging.String(logging.FieldEventType, "print_skipped_no_printer"),
		)
		return OutcomeNoPrinter, nil
	}

	restore, err := o.overrideDefault(ctx, target)
	if err != nil {
		// PrinterSwitchError: log and keep going with the active default.
		o.logger.Warn("default printer switch failed; printing with active default",
			logging.Error(err),
			logging.String("printer", target),
			logging.String(logging.FieldEventType, "printer_switch_failed"),
			logging.String(logging.FieldErrorHint, "check printer name and CUPS permissions"),
		)
	}
	if restore != nil {
		defer restore()
	}

	if err := o.spooler.Submit(ctx, archivedPath); err != nil {
		o.logger.Error("print submission failed",
			logging.Error(err),
			logging.String("file", baseName),
			logging.String(logging.FieldEventType, "print_submit_failed"),
		)
		return OutcomeSubmitFailed, fmt.Errorf("%w: %s: %w", ErrSubmit, baseName, err)
	}
	o.logger.Info("print job submitted",
		logging.String("file", baseName),
		logging.String("printer", target),
	)
	if o.notifier != nil {
		if err := o.notifier.NotifyPrintStarted(ctx, baseName, target); err != nil {
			o.logger.Warn("print-started notification failed", logging.Error(err))
		}
	}

	if err := o.sleep(ctx, o.settleDelay); err != nil {
		return OutcomePrinted, nil
	}
	outcome := o.poller.Wait(ctx, baseName)
	o.logger.Info("print wait finished",
		logging.String("file", baseName),
		logging.String("poll_outcome", outcome.String()),
	)
	return OutcomePrinted, nil
}

func (o *Orchestrator) confirm(ctx context.Context, baseName string) bool {
	if o.confirmer == nil {
		return false
	}
	ok, err := o.confirmer.Confirm(ctx, baseName)
	if err != nil {
		// Failing open would surprise the user; a broken prompt means no.
		o.logger.Warn("print confirmation failed; not printing",
			logging.Error(err),
			logging.String("file", baseName),
		)
		return false
	}
	return ok
}

// overrideDefault switches the system default printer to target when it
// differs, returning a restore func that puts the original back. The restore
// func is non-nil only when the default was actually changed; it runs on
// every exit path of Print because the default printer is shared, global
// state that must never leak a changed value.
func (o *Orchestrator) overrideDefault(ctx context.Context, target string) (func(), error) {
	current, err := o.spooler.DefaultPrinter(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read current default: %w", ErrSwitch, err)
	}
	if strings.EqualFold(strings.TrimSpace(current), target) {
		return nil, nil
	}
	if err := o.spooler.SetDefaultPrinter(ctx, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSwitch, err)
	}
	o.logger.Debug("default printer overridden",
		logging.String("from", current),
		logging.String("to", target),
	)
	original := current
	return func() {
		if original == "" {
			// The spooler cannot express "no default", so the override
			// stays installed; all we can do is say so.
			o.logger.Error("no previous default printer; override left in place",
				logging.String("printer", target),
				logging.String(logging.FieldEventType, "printer_restore_skipped"),
				logging.String(logging.FieldErrorHint, "clear the default printer manually with lpoptions"),
			)
			return
		}
		// Restore must run even when the surrounding context is cancelled.
		restoreCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := o.spooler.SetDefaultPrinter(restoreCtx, original); err != nil {
			o.logger.Error("failed to restore default printer",
				logging.Error(err),
				logging.String("printer", original),
				logging.String(logging.FieldEventType, "printer_restore_failed"),
				logging.String(logging.FieldErrorHint, "restore the default printer manually with lpoptions -d"),
			)
		}
	}, nil
}
