package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storefront/internal/apperr"
)

type item struct {
	ID  string `json:"id"`
	Qty int    `json:"qty"`
}

func openFile(t *testing.T, dir string) *FileBackend {
	t.Helper()
	b, err := OpenFileBackend(dir)
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	return b
}

func TestLoadMissingCollectionIsEmptyAndInitialized(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(openFile(t, dir))

	if err := s.Init(ctx, "items"); err != nil {
		t.Fatalf("init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "items.json"))
	if err != nil {
		t.Fatalf("read initialized file: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Fatalf("initialized body = %q", data)
	}

	items, err := NewCollection[item](s, "items").Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty collection, got %v", items)
	}
}

func TestReplaceOverwritesWholeCollection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := NewCollection[item](New(openFile(t, dir)), "items")

	if err := c.Replace(ctx, []item{{ID: "A", Qty: 1}, {ID: "B", Qty: 2}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := c.Replace(ctx, []item{{ID: "C", Qty: 3}}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	items, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 1 || items[0].ID != "C" {
		t.Fatalf("unexpected items %v", items)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), tempSuffix) {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestCorruptCollectionIsStorageError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "items.json"), []byte(`[{"id":"A"`), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	c := NewCollection[item](New(openFile(t, dir)), "items")
	_, err := c.Load(ctx)
	if !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}

	// not repaired
	data, _ := os.ReadFile(filepath.Join(dir, "items.json"))
	if string(data) != `[{"id":"A"` {
		t.Fatalf("corrupt file was modified: %q", data)
	}
}

func TestMultiCollectionCommitIsJournaled(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := openFile(t, dir)
	s := New(b)

	crash := errors.New("crash after journal")
	b.afterJournal = func() error { return crash }

	err := s.Update(ctx, []string{"stock", "receipts"}, func(tx *Tx) error {
		if err := Put(tx, "stock", []item{{ID: "P1", Qty: 7}}); err != nil {
			return err
		}
		return Put(tx, "receipts", []item{{ID: "R1", Qty: 3}})
	})
	if !errors.Is(err, crash) {
		t.Fatalf("expected simulated crash, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "stock.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("collection written before recovery: %v", err)
	}

	restarted := openFile(t, dir)
	report, err := restarted.Recover()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(report.Replayed) != 1 {
		t.Fatalf("expected one replayed journal, got %+v", report)
	}

	s2 := New(restarted)
	stock, err := NewCollection[item](s2, "stock").Load(ctx)
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	receipts, err := NewCollection[item](s2, "receipts").Load(ctx)
	if err != nil {
		t.Fatalf("load receipts: %v", err)
	}
	if len(stock) != 1 || stock[0].Qty != 7 || len(receipts) != 1 || receipts[0].ID != "R1" {
		t.Fatalf("journal not applied: stock=%v receipts=%v", stock, receipts)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), journalPrefix) {
			t.Fatalf("journal left behind: %s", e.Name())
		}
	}
}

func TestRecoverDiscardsUnreadableJournalAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, journalPrefix+"broken"+journalSuffix), []byte("{"), 0o644); err != nil {
		t.Fatalf("write journal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "items.json.123"+tempSuffix), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}

	report, err := openFile(t, dir).Recover()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(report.Discarded) != 1 || report.TempFiles != 1 || len(report.Replayed) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}

func TestFailedApplyBlocksBackendUntilRecover(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := openFile(t, dir)
	s := New(b)

	// a non-empty directory in place of stock.json makes its rename fail
	// after receipts.json has already been replaced
	blocker := filepath.Join(dir, "stock.json")
	if err := os.MkdirAll(filepath.Join(blocker, "busy"), 0o755); err != nil {
		t.Fatalf("create blocker: %v", err)
	}

	err := s.Update(ctx, []string{"stock", "receipts"}, func(tx *Tx) error {
		if err := Put(tx, "stock", []item{{ID: "P1", Qty: 7}}); err != nil {
			return err
		}
		return Put(tx, "receipts", []item{{ID: "R1", Qty: 3}})
	})
	if !errors.Is(err, ErrNeedsRecovery) || !apperr.Is(err, apperr.KindStorage) {
		t.Fatalf("expected storage error needing recovery, got %v", err)
	}

	if _, err := NewCollection[item](s, "receipts").Load(ctx); !errors.Is(err, ErrNeedsRecovery) {
		t.Fatalf("partial commit readable: %v", err)
	}
	if err := os.RemoveAll(blocker); err != nil {
		t.Fatalf("remove blocker: %v", err)
	}
	err = NewCollection[item](s, "stock").Replace(ctx, []item{{ID: "P1", Qty: 1}})
	if !errors.Is(err, ErrNeedsRecovery) {
		t.Fatalf("commit accepted on failed backend: %v", err)
	}

	report, err := b.Recover()
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if len(report.Replayed) != 1 {
		t.Fatalf("expected one replayed journal, got %+v", report)
	}
	stock, err := NewCollection[item](s, "stock").Load(ctx)
	if err != nil {
		t.Fatalf("load stock after recover: %v", err)
	}
	if len(stock) != 1 || stock[0].Qty != 7 {
		t.Fatalf("stock = %v, want the journaled commit", stock)
	}

	if err := NewCollection[item](s, "stock").Replace(ctx, []item{{ID: "P1", Qty: 1}}); err != nil {
		t.Fatalf("commit after recover: %v", err)
	}
	restarted := openFile(t, dir)
	if report, err := restarted.Recover(); err != nil || len(report.Replayed) != 0 {
		t.Fatalf("stale journal left: %+v, %v", report, err)
	}
	stock, err = NewCollection[item](New(restarted), "stock").Load(ctx)
	if err != nil || len(stock) != 1 || stock[0].Qty != 1 {
		t.Fatalf("later commit lost after restart: %v, %v", stock, err)
	}
}
