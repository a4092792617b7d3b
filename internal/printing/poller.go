package printing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"printdrop/internal/logging"
)

// PollOutcome describes why the print-wait finished. Every outcome means the
// pipeline moves on; the poller never blocks an item past its ceiling.
type PollOutcome int

const (
	// PollStabilized means the job count went unchanged for the configured
	// number of consecutive ticks.
	PollStabilized PollOutcome = iota
	// PollTimedOut means the overall ceiling elapsed first.
	PollTimedOut
	// PollSpoolerUnavailable means job enumeration failed; absence of
	// observability is not treated as an unfinished job.
	PollSpoolerUnavailable
	// PollCancelled means the surrounding context was cancelled.
	PollCancelled
)

func (o PollOutcome) String() string {
	switch o {
	case PollStabilized:
		return "stabilized"
	case PollTimedOut:
		return "timed_out"
	case PollSpoolerUnavailable:
		return "spooler_unavailable"
	default:
		return "cancelled"
	}
}

// Poller infers print completion by watching the spooler's total job count
// settle.
type Poller struct {
	spooler     Spooler
	logger      *slog.Logger
	interval    time.Duration
	timeout     time.Duration
	stableTicks int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewPoller constructs a poller over the given spooler.
func NewPoller(spooler Spooler, logger *slog.Logger, interval, timeout time.Duration, stableTicks int) *Poller {
	if stableTicks < 1 {
		stableTicks = 1
	}
	return &Poller{
		spooler:     spooler,
		logger:      logging.WithComponent(logger, "print-poller"),
		interval:    interval,
		timeout:     timeout,
		stableTicks: stableTicks,
		now:         time.Now,
		sleep:       sleepCtx,
	}
}

// Wait polls until the job count stabilizes or the ceiling elapses. A
// sighting of baseName among the spooled document names resets the stability
// counter: the job is still actively present, so stabilization restarts.
func (p *Poller) Wait(ctx context.Context, baseName string) PollOutcome {
	start := p.now()
	lastCount := -1
	stable := 0

	for {
		if p.now().Sub(start) > p.timeout {
			p.logger.Warn("print wait ceiling reached",
				logging.String("document", baseName),
				logging.Duration("timeout", p.timeout),
				logging.String(logging.FieldEventType, "print_poll_timeout"),
			)
			return PollTimedOut
		}

		current, sighted, err := p.observe(ctx, baseName)
		if err != nil {
			p.logger.Warn("spooler enumeration failed; assuming job finished",
				logging.Error(err),
				logging.String(logging.FieldEventType, "print_poll_enumeration_failed"),
				logging.String(logging.FieldErrorHint, "check that the CUPS scheduler is running"),
			)
			return PollSpoolerUnavailable
		}

		switch {
		case sighted:
			stable = 0
		case current == lastCount:
			stable++
		default:
			stable = 0
		}
		lastCount = current

		if stable >= p.stableTicks {
			p.logger.Debug("print job count stabilized",
				logging.String("document", baseName),
				logging.Int("job_count", current),
			)
			return PollStabilized
		}

		if err := p.sleep(ctx, p.interval); err != nil {
			return PollCancelled
		}
	}
}

// observe sums the job count across all local printers and reports whether
// any spooled document name contains baseName.
func (p *Poller) observe(ctx context.Context, baseName string) (int, bool, error) {
	printers, err := p.spooler.Printers(ctx)
	if err != nil {
		return 0, false, err
	}

	total := 0
	sighted := false
	needle := strings.ToLower(baseName)
	for _, printer := range printers {
		jobs, err := p.spooler.Jobs(ctx, printer)
		if err != nil {
			return 0, false, err
		}
		total += len(jobs)
		for _, job := range jobs {
			if strings.Contains(strings.ToLower(job.Document), needle) {
				sighted = true
			}
		}
	}
	return total, sighted, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
