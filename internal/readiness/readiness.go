// Package readiness waits for a newly arrived file to be released by its
// writer before the pipeline moves it.
package readiness

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// Status is the outcome of a single readiness probe. Locked is an expected,
// frequent condition and is reported as a value rather than an error.
type Status int

const (
	// Ready means the file exists and is not held by another process.
	Ready Status = iota
	// Locked means the file is still held open exclusively by its writer.
	Locked
	// Gone means the file vanished; an external process moved or deleted it.
	Gone
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Locked:
		return "locked"
	default:
		return "gone"
	}
}

// Prober performs one readiness check.
type Prober func(path string) Status

// Probe opens the file for writing and takes a non-blocking exclusive flock.
// Either failing with anything other than a missing file means the writer
// still holds the file.
func Probe(path string) Status {
	before, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Gone
		}
		return Locked
	}

	handle, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Gone
		}
		return Locked
	}
	handle.Close()

	lock := flock.New(path)
	acquired, err := lock.TryLock()
	if err != nil || !acquired {
		return Locked
	}
	defer lock.Unlock()

	return verifyUnchanged(before, path)
}

// verifyUnchanged re-stats path after the lock attempt. The flock call
// recreates a file that vanished between the open probe and the lock
// attempt, so a bare existence check would archive an empty ghost; the file
// must still be the one probed. A recreated empty file is removed so it
// cannot resurface as a later event.
func verifyUnchanged(before os.FileInfo, path string) Status {
	after, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Gone
		}
		return Locked
	}
	if !os.SameFile(before, after) {
		if after.Size() == 0 {
			_ = os.Remove(path)
		}
		return Gone
	}
	return Ready
}

// Waiter polls a file with a bounded retry budget.
type Waiter struct {
	attempts int
	interval time.Duration
	probe    Prober
	sleep    func(ctx context.Context, d time.Duration) error
}

// New constructs a waiter with the default prober.
func New(attempts int, interval time.Duration) *Waiter {
	return NewWithProber(attempts, interval, Probe)
}

// NewWithProber allows injecting the probe function (used in tests).
func NewWithProber(attempts int, interval time.Duration, probe Prober) *Waiter {
	if attempts < 1 {
		attempts = 1
	}
	return &Waiter{
		attempts: attempts,
		interval: interval,
		probe:    probe,
		sleep:    sleepCtx,
	}
}

// Wait probes until the file is ready, gone, or the retry budget runs out.
// Exhaustion returns Locked; the caller decides whether that is fatal for
// the item. A cancelled context returns its error with the last status.
func (w *Waiter) Wait(ctx context.Context, path string) (Status, error) {
	status := Locked
	for attempt := 1; attempt <= w.attempts; attempt++ {
		status = w.probe(path)
		if status != Locked {
			return status, nil
		}
		if attempt == w.attempts {
			break
		}
		if err := w.sleep(ctx, w.interval); err != nil {
			return status, err
		}
	}
	return Locked, nil
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
