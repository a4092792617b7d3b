package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"printdrop/internal/mover"
	"printdrop/internal/printing"
)

// ErrLockTimeout indicates the readiness wait exhausted its retry budget
// while the file was still held by its writer.
var ErrLockTimeout = errors.New("file lock wait timed out")

// Re-exported sentinels so callers can classify item failures without
// importing every pipeline collaborator.
var (
	ErrDestinationExists  = mover.ErrDestinationExists
	ErrMoveRetryExhausted = mover.ErrRetryExhausted
	ErrPrintSubmit        = printing.ErrSubmit
)

// Wrap tags an error with operation context for logging and notification.
func Wrap(operation, message string, err error) error {
	detail := message
	if operation = strings.TrimSpace(operation); operation != "" {
		detail = operation + ": " + message
	}
	if err != nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	return errors.New(detail)
}
