// Package printing submits archived files to the print subsystem and infers
// job completion from the spooler's queue contents. Print submission is
// fire-and-forget at the OS layer, so completion has to be observed rather
// than awaited.
package printing

import "context"

// Job is one spooled print job.
type Job struct {
	ID       string
	Printer  string
	Document string
}

// Spooler abstracts the OS print subsystem.
type Spooler interface {
	// DefaultPrinter returns the current default destination, or empty when
	// none is set.
	DefaultPrinter(ctx context.Context) (string, error)
	// SetDefaultPrinter changes the default destination.
	SetDefaultPrinter(ctx context.Context, name string) error
	// Submit sends the file at path to the default destination.
	Submit(ctx context.Context, path string) error
	// Printers enumerates the local printer names.
	Printers(ctx context.Context) ([]string, error)
	// Jobs enumerates the queued jobs of one printer.
	Jobs(ctx context.Context, printer string) ([]Job, error)
}

// Confirmer asks the user whether a file should be printed. Implementations
// are synchronous; any internal failure must be treated as "no".
type Confirmer interface {
	Confirm(ctx context.Context, filename string) (bool, error)
}
