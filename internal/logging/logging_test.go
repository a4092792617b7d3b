package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"printdrop/internal/logging"
)

func newFileLogger(t *testing.T, opts logging.Options) (logFn func(), read func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.log")
	opts.OutputPaths = []string{path}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	read = func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		return string(data)
	}
	return func() {
		logger.Info("file queued",
			logging.String(logging.FieldComponent, "daemon"),
			logging.String("file", "invoice_42.pdf"),
		)
	}, read
}

func TestConsoleFormat(t *testing.T) {
	logFn, read := newFileLogger(t, logging.Options{Format: "console", Level: "info"})
	logFn()

	line := strings.TrimSpace(read())
	if !strings.Contains(line, "INFO daemon: file queued") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "file=invoice_42.pdf") {
		t.Fatalf("attribute missing from console line: %q", line)
	}
}

func TestJSONFormat(t *testing.T) {
	logFn, read := newFileLogger(t, logging.Options{Format: "json", Level: "info"})
	logFn()

	line := strings.TrimSpace(read())
	if !strings.Contains(line, `"ts":`) {
		t.Fatalf("expected ts key in json line: %q", line)
	}
	if !strings.Contains(line, `"level":"info"`) {
		t.Fatalf("expected lowercase level in json line: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	logFn, read := newFileLogger(t, logging.Options{Format: "console", Level: "warn"})
	logFn()

	if got := strings.TrimSpace(read()); got != "" {
		t.Fatalf("info line must be filtered at warn level, got %q", got)
	}
}

func TestUnsupportedFormatRejected(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithComponentTagsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logging.WithComponent(logger, "watcher").Info("watching directory")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "watcher: watching directory") {
		t.Fatalf("component prefix missing: %q", data)
	}
}
