package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"storefront/pkg/database"

	"gorm.io/gorm"
)

func openSQL(t *testing.T) (*SQLBackend, *gorm.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "store_test.db"), 0)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	b := NewSQLBackend(db)
	t.Cleanup(func() { b.Close() })
	return b, db
}

func TestSQLBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, _ := openSQL(t)
	s := New(b)

	if _, err := b.Read(ctx, "items"); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}

	c := NewCollection[item](s, "items")
	if err := c.Replace(ctx, []item{{ID: "A", Qty: 2}}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := c.Replace(ctx, []item{{ID: "A", Qty: 5}, {ID: "B", Qty: 1}}); err != nil {
		t.Fatalf("replace again: %v", err)
	}

	items, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 2 || items[0].Qty != 5 {
		t.Fatalf("unexpected items %v", items)
	}
}

func TestSQLBackendCommitIsAtomic(t *testing.T) {
	ctx := context.Background()
	b, db := openSQL(t)
	s := New(b)

	if err := s.Update(ctx, []string{"stock", "receipts"}, func(tx *Tx) error {
		if err := Put(tx, "stock", []item{{ID: "P1", Qty: 10}}); err != nil {
			return err
		}
		return Put(tx, "receipts", []item{})
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	boom := errors.New("boom")
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_stock", func(tx *gorm.DB) {
		if rec, ok := tx.Statement.Dest.(*collectionRecord); ok && rec.Name == "stock" {
			tx.AddError(boom)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	err = s.Update(ctx, []string{"stock", "receipts"}, func(tx *Tx) error {
		if err := Put(tx, "stock", []item{{ID: "P1", Qty: 7}}); err != nil {
			return err
		}
		return Put(tx, "receipts", []item{{ID: "R1", Qty: 3}})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	// receipts sorts first and was written before the failure
	receipts, err := NewCollection[item](s, "receipts").Load(ctx)
	if err != nil {
		t.Fatalf("load receipts: %v", err)
	}
	if len(receipts) != 0 {
		t.Fatalf("receipts changed despite failed commit: %v", receipts)
	}
	stock, err := NewCollection[item](s, "stock").Load(ctx)
	if err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if stock[0].Qty != 10 {
		t.Fatalf("stock changed despite failed commit: %v", stock)
	}
}
