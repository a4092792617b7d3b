package history_test

import (
	"context"
	"testing"
	"time"

	"printdrop/internal/history"
	"printdrop/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	entries := []history.Entry{
		{Path: "/watch/a.pdf", Destination: "/archive/a.pdf", Pattern: `^a`, Outcome: history.OutcomeArchived, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{Path: "/watch/b.pdf", Destination: "/archive/b.pdf", Pattern: `^b`, Outcome: history.OutcomePrinted, Printed: true, StartedAt: base.Add(time.Second), FinishedAt: base.Add(2 * time.Second)},
		{Path: "/watch/c.pdf", Pattern: `^c`, Outcome: history.OutcomeFailed, Error: "move retries exhausted", StartedAt: base.Add(2 * time.Second), FinishedAt: base.Add(3 * time.Second)},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10, false)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Path != "/watch/c.pdf" {
		t.Fatalf("expected newest first, got %s", got[0].Path)
	}
	if !got[1].Printed {
		t.Fatal("printed flag lost on round trip")
	}
	if got[0].Error != "move retries exhausted" {
		t.Fatalf("error text lost: %q", got[0].Error)
	}
}

func TestRecentFailedOnly(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	ok := history.Entry{Path: "/watch/a.pdf", Outcome: history.OutcomeArchived, StartedAt: now, FinishedAt: now}
	bad := history.Entry{Path: "/watch/b.pdf", Outcome: history.OutcomeFailed, Error: "boom", StartedAt: now, FinishedAt: now}
	for _, entry := range []history.Entry{ok, bad} {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10, true)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != history.OutcomeFailed {
		t.Fatalf("expected only the failed entry, got %+v", got)
	}
}

func TestRecentLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		entry := history.Entry{
			Path:       "/watch/doc.pdf",
			Outcome:    history.OutcomeArchived,
			StartedAt:  now.Add(time.Duration(i) * time.Second),
			FinishedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.Recent(ctx, 2, false)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(got))
	}
}

func TestRecordRejectsEmptyOutcome(t *testing.T) {
	store := openStore(t)
	if err := store.Record(context.Background(), history.Entry{Path: "/watch/a.pdf"}); err == nil {
		t.Fatal("expected error for empty outcome")
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now()

	old := history.Entry{Path: "/watch/old.pdf", Outcome: history.OutcomeArchived, StartedAt: now.Add(-48 * time.Hour), FinishedAt: now.Add(-48 * time.Hour)}
	fresh := history.Entry{Path: "/watch/new.pdf", Outcome: history.OutcomeArchived, StartedAt: now, FinishedAt: now}
	for _, entry := range []history.Entry{old, fresh} {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	removed, err := store.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}

	got, err := store.Recent(ctx, 10, false)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Path != "/watch/new.pdf" {
		t.Fatalf("unexpected survivors: %+v", got)
	}
}

func TestReopenPreservesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	entry := history.Entry{Path: "/watch/a.pdf", Outcome: history.OutcomeArchived, StartedAt: time.Now(), FinishedAt: time.Now()}
	if err := store.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Recent(context.Background(), 10, false)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected persisted entry after reopen, got %d", len(got))
	}
}
