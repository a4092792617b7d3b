package printing

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// CUPSSpooler talks to the CUPS scheduler through its command line tools
// (lpstat, lpoptions, lp, lpq).
type CUPSSpooler struct {
	runner commandRunner
}

// NewCUPSSpooler constructs the default spooler implementation.
func NewCUPSSpooler() *CUPSSpooler {
	return &CUPSSpooler{runner: execCommandRunner{}}
}

func (s *CUPSSpooler) DefaultPrinter(ctx context.Context) (string, error) {
	output, err := s.runner.Output(ctx, "lpstat", "-d")
	if err != nil {
		return "", fmt.Errorf("lpstat -d: %w", err)
	}
	// "system default destination: officejet" or
	// "no system default destination"
	line := strings.TrimSpace(string(output))
	if idx := strings.LastIndex(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:]), nil
	}
	return "", nil
}

func (s *CUPSSpooler) SetDefaultPrinter(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("printer name must not be empty")
	}
	if _, err := s.runner.Output(ctx, "lpoptions", "-d", name); err != nil {
		return fmt.Errorf("lpoptions -d %s: %w", name, err)
	}
	return nil
}

func (s *CUPSSpooler) Submit(ctx context.Context, path string) error {
	if _, err := s.runner.Output(ctx, "lp", "--", path); err != nil {
		return fmt.Errorf("lp %s: %w", path, err)
	}
	return nil
}

func (s *CUPSSpooler) Printers(ctx context.Context) ([]string, error) {
	output, err := s.runner.Output(ctx, "lpstat", "-p")
	if err != nil {
		// lpstat -p exits non-zero when no printers exist.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, nil
		}
		return nil, fmt.Errorf("lpstat -p: %w", err)
	}

	var printers []string
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		// "printer officejet is idle.  enabled since ..."
		fields := strings.Fields(scanner.Text())
		if len(fields) >= 2 && fields[0] == "printer" {
			printers = append(printers, fields[1])
		}
	}
	return printers, nil
}

func (s *CUPSSpooler) Jobs(ctx context.Context, printer string) ([]Job, error) {
	output, err := s.runner.Output(ctx, "lpq", "-P", printer)
	if err != nil {
		return nil, fmt.Errorf("lpq -P %s: %w", printer, err)
	}

	// Job lines follow the "Rank Owner Job File(s) Total Size" header; the
	// status banner before it is noise.
	var jobs []Job
	inListing := false
	scanner := bufio.NewScanner(strings.NewReader(string(output)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "Rank") {
			inListing = true
			continue
		}
		if !inListing || line == "" {
			continue
		}
		// "active user 123 invoice_42.pdf 12288 bytes"
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		jobs = append(jobs, Job{
			ID:       fields[2],
			Printer:  printer,
			Document: strings.Join(fields[3:len(fields)-2], " "),
		})
	}
	return jobs, nil
}
