package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"printdrop/internal/config"
	"printdrop/internal/history"
	"printdrop/internal/logging"
	"printdrop/internal/mover"
	"printdrop/internal/pipeline"
	"printdrop/internal/printing"
	"printdrop/internal/queue"
	"printdrop/internal/readiness"
	"printdrop/internal/rules"
	"printdrop/internal/testsupport"
)

type spoolerStub struct {
	defaultPrinter string
	setCalls       []string
	submitted      []string
	submitErr      error
}

func (s *spoolerStub) DefaultPrinter(ctx context.Context) (string, error) {
	return s.defaultPrinter, nil
}

func (s *spoolerStub) SetDefaultPrinter(ctx context.Context, name string) error {
	s.setCalls = append(s.setCalls, name)
	s.defaultPrinter = name
	return nil
}

func (s *spoolerStub) Submit(ctx context.Context, path string) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, path)
	return nil
}

func (s *spoolerStub) Printers(ctx context.Context) ([]string, error) { return nil, nil }

func (s *spoolerStub) Jobs(ctx context.Context, printer string) ([]printing.Job, error) {
	return nil, nil
}

type notifierSpy struct {
	archived []string
	noPrint  []string
	printing []string
	errored  []string
}

func (n *notifierSpy) NotifyArchived(ctx context.Context, filename, destination string) error {
	n.archived = append(n.archived, filename)
	return nil
}

func (n *notifierSpy) NotifyArchivedWithoutPrinting(ctx context.Context, filename string) error {
	n.noPrint = append(n.noPrint, filename)
	return nil
}

func (n *notifierSpy) NotifyPrintStarted(ctx context.Context, filename, printer string) error {
	n.printing = append(n.printing, filename)
	return nil
}

func (n *notifierSpy) NotifyError(ctx context.Context, err error, contextLabel string) error {
	n.errored = append(n.errored, contextLabel)
	return nil
}

func (n *notifierSpy) TestNotification(ctx context.Context) error { return nil }

type answer bool

func (a answer) Confirm(ctx context.Context, filename string) (bool, error) {
	return bool(a), nil
}

type fixture struct {
	processor *pipeline.Processor
	spooler   *spoolerStub
	notifier  *notifierSpy
}

func newFixture(t *testing.T, spooler *spoolerStub, confirmer printing.Confirmer, journal *history.Store) *fixture {
	t.Helper()
	logger := logging.NewNop()
	notifier := &notifierSpy{}
	poller := printing.NewPoller(spooler, logger, time.Millisecond, time.Second, 1)
	orchestrator := printing.NewOrchestrator(spooler, confirmer, poller, notifier, logger, "", 0)
	waiter := readiness.New(3, time.Millisecond)
	fileMover := mover.New(3, time.Millisecond)
	return &fixture{
		processor: pipeline.NewProcessor(waiter, fileMover, orchestrator, notifier, journal, logger),
		spooler:   spooler,
		notifier:  notifier,
	}
}

func newItem(t *testing.T, path string, rule config.RuleConfig) *queue.Item {
	t.Helper()
	set, err := rules.Compile([]config.RuleConfig{rule})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	match := set.Match(filepath.Base(path))
	if match == nil {
		t.Fatalf("no rule match for %s", path)
	}
	return queue.NewItem(path, match)
}

func TestProcessArchivesWithoutPrinting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "watch", "invoice_42.pdf")
	testsupport.WriteFile(t, src, "payload")

	fx := newFixture(t, &spoolerStub{}, nil, nil)
	item := newItem(t, src, config.RuleConfig{
		Pattern:     `^invoice_(?P<id>\d+)\.pdf$`,
		Destination: filepath.Join(dir, "archive", "{id}"),
		Print:       false,
	})

	result := fx.processor.Process(context.Background(), item)
	if result.Err != nil {
		t.Fatalf("Process failed: %v", result.Err)
	}
	if result.Outcome != history.OutcomeArchived {
		t.Fatalf("expected archived, got %s", result.Outcome)
	}
	wantDest := filepath.Join(dir, "archive", "42", "invoice_42.pdf")
	if result.Destination != wantDest {
		t.Fatalf("expected destination %s, got %s", wantDest, result.Destination)
	}
	if _, err := os.Stat(wantDest); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
	if len(fx.notifier.archived) != 1 || fx.notifier.archived[0] != "invoice_42.pdf" {
		t.Fatalf("expected archive notification, got %v", fx.notifier.archived)
	}
	if len(fx.spooler.submitted) != 0 {
		t.Fatal("print must not run for a never-print rule")
	}
}

func TestProcessPrintsWithPrinterOverride(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "watch", "invoice_42.pdf")
	testsupport.WriteFile(t, src, "payload")

	fx := newFixture(t, &spoolerStub{defaultPrinter: "HP1"}, nil, nil)
	item := newItem(t, src, config.RuleConfig{
		Pattern:     `^invoice_`,
		Destination: filepath.Join(dir, "archive"),
		Print:       true,
		Printer:     "HP2",
	})

	result := fx.processor.Process(context.Background(), item)
	if result.Err != nil {
		t.Fatalf("Process failed: %v", result.Err)
	}
	if result.Outcome != history.OutcomePrinted || !result.Printed {
		t.Fatalf("expected printed outcome, got %+v", result)
	}
	if len(fx.spooler.submitted) != 1 || fx.spooler.submitted[0] != result.Destination {
		t.Fatalf("expected archived path submitted, got %v", fx.spooler.submitted)
	}
	if len(fx.spooler.setCalls) != 2 || fx.spooler.setCalls[0] != "HP2" || fx.spooler.setCalls[1] != "HP1" {
		t.Fatalf("expected override to HP2 then restore to HP1, got %v", fx.spooler.setCalls)
	}
	if len(fx.notifier.archived) != 1 || len(fx.notifier.printing) != 1 {
		t.Fatalf("expected archive then print-started notifications, got %+v", fx.notifier)
	}
}

func TestProcessPromptDeclined(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "watch", "scan.pdf")
	testsupport.WriteFile(t, src, "payload")

	fx := newFixture(t, &spoolerStub{defaultPrinter: "HP1"}, answer(false), nil)
	item := newItem(t, src, config.RuleConfig{
		Pattern:     `^scan`,
		Destination: filepath.Join(dir, "archive"),
		Print:       "prompt",
	})

	result := fx.processor.Process(context.Background(), item)
	if result.Err != nil {
		t.Fatalf("Process failed: %v", result.Err)
	}
	if result.Outcome != history.OutcomeArchivedNoPrint {
		t.Fatalf("expected archived_no_print, got %s", result.Outcome)
	}
	if _, err := os.Stat(result.Destination); err != nil {
		t.Fatal("file must be archived even when printing is declined")
	}
	if len(fx.spooler.submitted) != 0 || len(fx.spooler.setCalls) != 0 {
		t.Fatal("a declined prompt must leave the spooler untouched")
	}
	if len(fx.notifier.noPrint) != 1 {
		t.Fatalf("expected declined-print notification, got %v", fx.notifier.noPrint)
	}
}

func TestProcessSkipsVanishedFile(t *testing.T) {
	dir := t.TempDir()
	fx := newFixture(t, &spoolerStub{}, nil, nil)
	item := newItem(t, filepath.Join(dir, "watch", "gone.pdf"), config.RuleConfig{
		Pattern:     `^gone`,
		Destination: filepath.Join(dir, "archive"),
	})

	result := fx.processor.Process(context.Background(), item)
	if result.Err != nil {
		t.Fatalf("a vanished file is not an error: %v", result.Err)
	}
	if result.Outcome != history.OutcomeSkippedGone {
		t.Fatalf("expected skipped_gone, got %s", result.Outcome)
	}
	if len(fx.notifier.errored) != 0 {
		t.Fatal("no error notification for a vanished file")
	}
}

func TestProcessDestinationExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "watch", "doc.pdf")
	testsupport.WriteFile(t, src, "new")
	destDir := filepath.Join(dir, "archive")
	testsupport.WriteFile(t, filepath.Join(destDir, "doc.pdf"), "old")

	fx := newFixture(t, &spoolerStub{}, nil, nil)
	item := newItem(t, src, config.RuleConfig{Pattern: `^doc`, Destination: destDir})

	result := fx.processor.Process(context.Background(), item)
	if !errors.Is(result.Err, pipeline.ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", result.Err)
	}
	if result.Outcome != history.OutcomeDestinationExists {
		t.Fatalf("expected destination_exists, got %s", result.Outcome)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("source must be left in place on collision")
	}
	if len(fx.notifier.errored) != 1 {
		t.Fatalf("expected one error notification, got %v", fx.notifier.errored)
	}
}

func TestProcessLockTimeout(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "watch", "doc.pdf")
	testsupport.WriteFile(t, src, "payload")

	logger := logging.NewNop()
	notifier := &notifierSpy{}
	spooler := &spoolerStub{}
	poller := printing.NewPoller(spooler, logger, time.Millisecond, time.Second, 1)
	orchestrator := printing.NewOrchestrator(spooler, nil, poller, notifier, logger, "", 0)
	waiter := readiness.NewWithProber(3, time.Millisecond, func(string) readiness.Status {
		return readiness.Locked
	})
	processor := pipeline.NewProcessor(waiter, mover.New(3, time.Millisecond), orchestrator, notifier, nil, logger)

	item := newItem(t, src, config.RuleConfig{Pattern: `^doc`, Destination: filepath.Join(dir, "archive")})
	result := processor.Process(context.Background(), item)
	if !errors.Is(result.Err, pipeline.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", result.Err)
	}
	if result.Outcome != history.OutcomeFailed {
		t.Fatalf("expected failed, got %s", result.Outcome)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("locked file must not be moved")
	}
}

func TestProcessSubmitFailureKeepsArchive(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "watch", "doc.pdf")
	testsupport.WriteFile(t, src, "payload")

	fx := newFixture(t, &spoolerStub{defaultPrinter: "HP1", submitErr: errors.New("lp: connection refused")}, nil, nil)
	item := newItem(t, src, config.RuleConfig{
		Pattern:     `^doc`,
		Destination: filepath.Join(dir, "archive"),
		Print:       true,
		Printer:     "HP1",
	})

	result := fx.processor.Process(context.Background(), item)
	if !errors.Is(result.Err, pipeline.ErrPrintSubmit) {
		t.Fatalf("expected ErrPrintSubmit, got %v", result.Err)
	}
	if result.Outcome != history.OutcomeArchived {
		t.Fatalf("archive must survive a failed submit, got %s", result.Outcome)
	}
	if _, err := os.Stat(result.Destination); err != nil {
		t.Fatal("archived file missing after failed submit")
	}
}

func TestProcessRecordsJournalEntry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	journal, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer journal.Close()

	src := filepath.Join(cfg.Paths.WatchDir, "doc_7.pdf")
	testsupport.WriteFile(t, src, "payload")

	fx := newFixture(t, &spoolerStub{}, nil, journal)
	item := newItem(t, src, cfg.Rules[0])

	result := fx.processor.Process(context.Background(), item)
	if result.Err != nil {
		t.Fatalf("Process failed: %v", result.Err)
	}

	entries, err := journal.Recent(context.Background(), 10, false)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(entries))
	}
	if entries[0].Outcome != history.OutcomeArchived || entries[0].Path != src {
		t.Fatalf("unexpected journal entry: %+v", entries[0])
	}
}
