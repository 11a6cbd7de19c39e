package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/apperr"
)

func TestUpdateSeesStagedWritesAndDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := New(openFile(t, t.TempDir()))
	c := NewCollection[item](s, "items")

	if err := c.Replace(ctx, []item{{ID: "A", Qty: 1}}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	rollback := errors.New("rollback")
	err := s.Update(ctx, []string{"items"}, func(tx *Tx) error {
		if err := c.Put(tx, []item{{ID: "A", Qty: 99}}); err != nil {
			return err
		}
		items, err := c.Get(tx)
		if err != nil {
			return err
		}
		if items[0].Qty != 99 {
			t.Errorf("staged write not visible, got %v", items)
		}
		return rollback
	})
	if !errors.Is(err, rollback) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	items, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items[0].Qty != 1 {
		t.Fatalf("failed update was persisted: %v", items)
	}
}

func TestTransactionScope(t *testing.T) {
	ctx := context.Background()
	s := New(openFile(t, t.TempDir()))

	err := s.Update(ctx, []string{"items"}, func(tx *Tx) error {
		_, err := Get[item](tx, "other")
		return err
	})
	if err == nil {
		t.Fatalf("expected error reading an unlocked collection")
	}

	err = s.View(ctx, []string{"items"}, func(tx *Tx) error {
		return Put(tx, "items", []item{{ID: "A"}})
	})
	if err == nil {
		t.Fatalf("expected error staging inside View")
	}
}

func TestLockTimeoutIsRetryable(t *testing.T) {
	ctx := context.Background()
	s := New(openFile(t, t.TempDir()), WithLockTimeout(50*time.Millisecond))

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Update(ctx, []string{"items"}, func(tx *Tx) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := s.Update(ctx, []string{"items"}, func(tx *Tx) error { return nil })
	close(done)

	if !apperr.Is(err, apperr.KindUnavailable) || !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestConcurrentUpdatesLoseNothing(t *testing.T) {
	ctx := context.Background()
	s := New(openFile(t, t.TempDir()))
	c := NewCollection[item](s, "items")
	if err := c.Replace(ctx, []item{{ID: "counter"}}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, []string{"items"}, func(tx *Tx) error {
				items, err := c.Get(tx)
				if err != nil {
					return err
				}
				items[0].Qty++
				return c.Put(tx, items)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	items, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items[0].Qty != workers {
		t.Fatalf("lost update: counter = %d, want %d", items[0].Qty, workers)
	}
}

func TestAcquireOrdersAndDedupes(t *testing.T) {
	l := NewLocker(time.Second)
	release, err := l.Acquire(context.Background(), []string{"b", "a", "b"}, true)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()

	// both locks must be free again
	release, err = l.Acquire(context.Background(), []string{"a", "b"}, true)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	release()
}
