package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/apperr"
	"storefront/internal/model"
)

func TestAddCartLineMergesQuantities(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	if _, err := svc.AddCartLine(ctx, "U1", p.ProductID, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	lines, err := svc.AddCartLine(ctx, "U1", p.ProductID, 3)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if len(lines) != 1 || lines[0].Quantity != 5 {
		t.Fatalf("lines = %+v, want one line of 5", lines)
	}

	got, err := svc.GetCart(ctx, "U1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(got) != 1 || got[0].ProductID != p.ProductID || got[0].Quantity != 5 {
		t.Fatalf("stored cart = %+v", got)
	}
}

func TestAddThenRemoveLeavesEmptyCart(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	if _, err := svc.AddCartLine(ctx, "U1", p.ProductID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	lines, err := svc.RemoveCartLine(ctx, "U1", p.ProductID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("lines = %+v, want empty", lines)
	}
	got, err := svc.GetCart(ctx, "U1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("cart = %#v, want empty non-nil", got)
	}
}

func TestCartErrors(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	if _, err := svc.AddCartLine(ctx, "U1", "MISSING", 1); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown product: got %v, want not found", err)
	}
	if _, err := svc.AddCartLine(ctx, "U1", p.ProductID, 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("zero quantity: got %v, want validation", err)
	}
	if _, err := svc.RemoveCartLine(ctx, "U1", p.ProductID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("no cart: got %v, want not found", err)
	}
	if _, err := svc.AddCartLine(ctx, "U1", p.ProductID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.SetCartQuantity(ctx, "U1", "OTHER", 2); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("missing line: got %v, want not found", err)
	}
	lines, err := svc.SetCartQuantity(ctx, "U1", p.ProductID, 4)
	if err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if lines[0].Quantity != 4 {
		t.Fatalf("quantity = %d, want 4", lines[0].Quantity)
	}
}

func TestConcurrentCartAddsLoseNothing(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	p := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	ctx := context.Background()

	const users, adds = 4, 10
	var wg sync.WaitGroup
	errs := make(chan error, users*adds)
	for u := 0; u < users; u++ {
		for i := 0; i < adds; i++ {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				if _, err := svc.AddCartLine(ctx, user, p.ProductID, 1); err != nil {
					errs <- err
				}
			}(fmt.Sprintf("U%d", u))
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("add: %v", err)
	}

	for u := 0; u < users; u++ {
		lines, err := svc.GetCart(ctx, fmt.Sprintf("U%d", u))
		if err != nil {
			t.Fatalf("get cart: %v", err)
		}
		if len(lines) != 1 || lines[0].Quantity != adds {
			t.Fatalf("user U%d cart = %+v, want %d units", u, lines, adds)
		}
	}
}

func TestDeleteProductCleansCarts(t *testing.T) {
	svc := newTestService(t)
	f := seedCatalog(t, svc)
	phone := mustProduct(t, svc, f.product("Phone", "199.99", 10))
	tablet := mustProduct(t, svc, f.product("Tablet", "299.99", 3))
	ctx := context.Background()

	for _, id := range []string{phone.ProductID, tablet.ProductID} {
		if _, err := svc.AddCartLine(ctx, "U1", id, 1); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := svc.DeleteProduct(ctx, phone.ProductID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	lines, err := svc.GetCart(ctx, "U1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	want := []model.CartLine{{ProductID: tablet.ProductID, Quantity: 1}}
	if len(lines) != 1 || lines[0] != want[0] {
		t.Fatalf("cart = %+v, want %+v", lines, want)
	}
}
