// Package mover relocates a matched file into its archive destination with
// a bounded retry budget.
package mover

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrDestinationExists is the terminal outcome when the computed destination
// path is already occupied. The archive is append-only; an existing file is
// never overwritten and never retried.
var ErrDestinationExists = errors.New("destination file already exists")

// ErrRetryExhausted wraps the final attempt error once the retry budget is
// spent.
var ErrRetryExhausted = errors.New("move retries exhausted")

// Mover moves files with retry-on-failure semantics.
type Mover struct {
	attempts int
	backoff  time.Duration
	rename   func(src, dst string) error
	sleep    func(ctx context.Context, d time.Duration) error
}

// New constructs a mover. attempts below 1 are clamped to 1.
func New(attempts int, backoff time.Duration) *Mover {
	if attempts < 1 {
		attempts = 1
	}
	return &Mover{
		attempts: attempts,
		backoff:  backoff,
		rename:   renameAcrossDevices,
		sleep:    sleepCtx,
	}
}

// WithRename overrides the rename operation (used in tests).
func (m *Mover) WithRename(rename func(src, dst string) error) *Mover {
	m.rename = rename
	return m
}

// Move relocates src into destDir, creating destDir if absent. The returned
// path is the final location of the file. A pre-existing file at the
// destination yields ErrDestinationExists with src left untouched; any other
// failure is retried up to the attempt budget with backoff in between, and
// exhaustion yields an error wrapping ErrRetryExhausted.
func (m *Mover) Move(ctx context.Context, src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination directory %q: %w", destDir, err)
	}

	destPath := filepath.Join(destDir, filepath.Base(src))
	if _, err := os.Stat(destPath); err == nil {
		return destPath, fmt.Errorf("%w: %s", ErrDestinationExists, destPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat destination %q: %w", destPath, err)
	}

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		lastErr = m.rename(src, destPath)
		if lastErr == nil {
			return destPath, nil
		}
		if attempt == m.attempts {
			break
		}
		if err := m.sleep(ctx, m.backoff); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, m.attempts, lastErr)
}

// renameAcrossDevices renames src to dst, falling back to copy-and-remove
// when the destination lives on a different filesystem.
func renameAcrossDevices(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if copyErr := copyFile(src, dst); copyErr != nil {
			return copyErr
		}
		return os.Remove(src)
	}
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
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
